package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mkale/sitewalk/internal/models"
)

// CreateEntry persists a new inspection record.
func (s *Store) CreateEntry(e *models.ItemEntry) error {
	if err := s.db.Create(e).Error; err != nil {
		return fmt.Errorf("store: create entry: %w", err)
	}
	return nil
}

// Entry fetches one inspection record by id.
func (s *Store) Entry(id uint) (*models.ItemEntry, error) {
	var e models.ItemEntry
	err := s.db.First(&e, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: entry %d: %w", id, err)
	}
	return &e, nil
}

// LatestOrphanEntry returns the most recent incomplete entry for this
// inspector, item and sub-location that has no task attached, or ErrNotFound.
// These are leftovers of abandoned steps; the coordinator reattaches them
// instead of creating duplicates. Matching the sub-location keeps an
// abandoned run's record from leaking into a sibling scope.
func (s *Store) LatestOrphanEntry(inspectorID, itemID uint, locationID *uint) (*models.ItemEntry, error) {
	q := s.db.Where("inspector_id = ? AND item_id = ? AND task_id IS NULL AND completed = ?",
		inspectorID, itemID, false)
	if locationID != nil {
		q = q.Where("location_id = ?", *locationID)
	} else {
		q = q.Where("location_id IS NULL")
	}
	var e models.ItemEntry
	err := q.Order("id DESC").First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: orphan entry for inspector %d item %d: %w", inspectorID, itemID, err)
	}
	return &e, nil
}

// AttachEntryTask binds an entry to a task.
func (s *Store) AttachEntryTask(entryID, taskID uint) error {
	err := s.db.Model(&models.ItemEntry{}).Where("id = ?", entryID).
		Update("task_id", taskID).Error
	if err != nil {
		return fmt.Errorf("store: attach entry %d to task %d: %w", entryID, taskID, err)
	}
	return nil
}

// UpdateEntryRemarks sets an entry's remarks text.
func (s *Store) UpdateEntryRemarks(entryID uint, remarks string) error {
	err := s.db.Model(&models.ItemEntry{}).Where("id = ?", entryID).
		Update("remarks", remarks).Error
	if err != nil {
		return fmt.Errorf("store: update entry %d remarks: %w", entryID, err)
	}
	return nil
}

// SetEntryCompleted marks an entry finalized.
func (s *Store) SetEntryCompleted(entryID uint, completed bool) error {
	err := s.db.Model(&models.ItemEntry{}).Where("id = ?", entryID).
		Update("completed", completed).Error
	if err != nil {
		return fmt.Errorf("store: set entry %d completed: %w", entryID, err)
	}
	return nil
}

// AddMedia persists one media reference on an entry.
func (s *Store) AddMedia(m *models.ItemEntryMedia) error {
	if err := s.db.Create(m).Error; err != nil {
		return fmt.Errorf("store: add media: %w", err)
	}
	return nil
}

// MediaCount counts media attached to an entry.
func (s *Store) MediaCount(entryID uint) (int64, error) {
	var n int64
	err := s.db.Model(&models.ItemEntryMedia{}).
		Where("entry_id = ?", entryID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("store: media count for entry %d: %w", entryID, err)
	}
	return n, nil
}

// Finding fetches the per-task finding for an entry, or ErrNotFound.
func (s *Store) Finding(entryID, taskID uint) (*models.ChecklistTaskFinding, error) {
	var f models.ChecklistTaskFinding
	err := s.db.Where("entry_id = ? AND task_id = ?", entryID, taskID).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: finding entry %d task %d: %w", entryID, taskID, err)
	}
	return &f, nil
}

// UpsertFinding merges detail into the finding keyed by (entryID, taskID),
// creating it when absent. Merge is field-wise; existing values survive
// unless the new detail provides a replacement.
func (s *Store) UpsertFinding(entryID, taskID uint, detail models.FindingDetail) error {
	existing, err := s.Finding(entryID, taskID)
	if errors.Is(err, ErrNotFound) {
		f := models.ChecklistTaskFinding{
			EntryID: entryID,
			TaskID:  taskID,
			Detail:  detail,
		}
		if err := s.db.Create(&f).Error; err != nil {
			return fmt.Errorf("store: create finding entry %d task %d: %w", entryID, taskID, err)
		}
		return nil
	}
	if err != nil {
		return err
	}

	existing.Detail = existing.Detail.Merge(detail)
	if err := s.db.Save(existing).Error; err != nil {
		return fmt.Errorf("store: update finding entry %d task %d: %w", entryID, taskID, err)
	}
	return nil
}
