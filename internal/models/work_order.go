package models

import "time"

// Work order and checklist statuses. Stored as plain columns but only these
// values are ever written.
const (
	StatusOpen       = "OPEN"
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// Inspector is an authenticated field inspector. ChatUserID links the row to
// the messaging-platform identity that conversations are keyed on. Phone is
// optional; NULL rows never collide on the unique index.
type Inspector struct {
	ID         uint    `gorm:"primaryKey;autoIncrement"`
	Name       string  `gorm:"size:128;not null"`
	Phone      *string `gorm:"size:32;uniqueIndex"`
	ChatUserID string  `gorm:"size:128;index"`
	CreatedAt  time.Time
}

// WorkOrder is one inspection job assigned to an inspector.
type WorkOrder struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Reference    string `gorm:"size:64;uniqueIndex;not null"`
	PropertyName string `gorm:"size:256;not null"`
	Address      string `gorm:"size:512"`
	Status       string `gorm:"size:16;default:OPEN;index"`
	InspectorID  uint   `gorm:"index"`
	ScheduledFor *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time

	Items []ChecklistItem `gorm:"foreignKey:WorkOrderID"`
}
