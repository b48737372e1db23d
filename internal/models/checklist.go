package models

import "time"

// ChecklistItem is a top-level inspectable area of a property. Inspectors see
// it as a "location"; the finer-grained ChecklistLocation below it is the
// "sub-location".
type ChecklistItem struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	WorkOrderID uint   `gorm:"not null;index"`
	Name        string `gorm:"size:256;not null"`
	Sequence    int    `gorm:"default:0"`
	Status      string `gorm:"size:16;default:PENDING;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Locations []ChecklistLocation `gorm:"foreignKey:ItemID"`
	Tasks     []ChecklistTask     `gorm:"foreignKey:ItemID"`
}

// ChecklistLocation is an optional sub-location within a ChecklistItem,
// grouping the tasks inspected together in one pass.
type ChecklistLocation struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ItemID    uint   `gorm:"not null;index"`
	Name      string `gorm:"size:256;not null"`
	Sequence  int    `gorm:"default:0"`
	Status    string `gorm:"size:16;default:PENDING;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Tasks []ChecklistTask `gorm:"foreignKey:LocationID"`
}

// ChecklistTask is the smallest inspectable unit. It carries exactly one
// condition rating once inspected. LocationID is nil for tasks that hang
// directly off an item with no sub-locations.
type ChecklistTask struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	ItemID     uint   `gorm:"not null;index"`
	LocationID *uint  `gorm:"index"`
	Name       string `gorm:"size:256;not null"`
	Sequence   int    `gorm:"default:0"`
	Condition  string `gorm:"size:24"`
	Status     string `gorm:"size:16;default:PENDING;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
