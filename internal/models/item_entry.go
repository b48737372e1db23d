package models

import "time"

// ItemEntry is the persisted record of one inspection pass over a location,
// sub-location or task. It holds remarks and links media and findings.
// TaskID is nil until the entry is attached to a task (or for sub-location
// runs, where findings carry the per-task detail instead).
type ItemEntry struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	InspectorID uint   `gorm:"not null;index"`
	ItemID      uint   `gorm:"not null;index"`
	LocationID  *uint  `gorm:"index"`
	TaskID      *uint  `gorm:"index"`
	Remarks     string `gorm:"type:text"`
	Completed   bool   `gorm:"default:false;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Media    []ItemEntryMedia       `gorm:"foreignKey:EntryID"`
	Findings []ChecklistTaskFinding `gorm:"foreignKey:EntryID"`
}

// ItemEntryMedia is one media reference (photo, video) attached to an entry.
type ItemEntryMedia struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	EntryID   uint   `gorm:"not null;index"`
	URL       string `gorm:"size:512;not null"`
	MediaType string `gorm:"size:16;default:image"`
	Caption   string `gorm:"size:256"`
	TaskID    *uint  `gorm:"index"`
	CreatedAt time.Time
}

// ChecklistTaskFinding is per-task detail attached to a specific entry.
// The (EntryID, TaskID) pair is unique; Detail is merged, never overwritten.
type ChecklistTaskFinding struct {
	ID        uint          `gorm:"primaryKey;autoIncrement"`
	EntryID   uint          `gorm:"not null;uniqueIndex:idx_entry_task"`
	TaskID    uint          `gorm:"not null;uniqueIndex:idx_entry_task"`
	Detail    FindingDetail `gorm:"type:json;serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FindingDetail is the typed per-task finding payload. Optional fields stay
// empty rather than null so Merge can treat empty as "not provided".
type FindingDetail struct {
	Condition  string `json:"condition,omitempty"`
	Cause      string `json:"cause,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	Remarks    string `json:"remarks,omitempty"`
}

// Merge overlays non-empty fields of other onto d and returns the result.
// A cause captured before a later condition update is preserved.
func (d FindingDetail) Merge(other FindingDetail) FindingDetail {
	if other.Condition != "" {
		d.Condition = other.Condition
	}
	if other.Cause != "" {
		d.Cause = other.Cause
	}
	if other.Resolution != "" {
		d.Resolution = other.Resolution
	}
	if other.Remarks != "" {
		d.Remarks = other.Remarks
	}
	return d
}
