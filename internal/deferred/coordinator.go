// Package deferred coordinates condition, finding and media persistence.
// In immediate mode every write lands as it arrives; in deferred mode writes
// accumulate in the session buffers and are committed as one best-effort
// batch when a sub-location run is finalized.
package deferred

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mkale/sitewalk/internal/condition"
	"github.com/mkale/sitewalk/internal/models"
	"github.com/mkale/sitewalk/internal/session"
	"github.com/mkale/sitewalk/internal/store"
)

// Mode selects the persistence strategy.
type Mode string

const (
	Immediate Mode = "immediate"
	Deferred  Mode = "deferred"
)

// ParseMode converts a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Immediate, Deferred:
		return Mode(s), nil
	}
	return "", fmt.Errorf("deferred: unknown write mode %q", s)
}

// Coordinator owns entry creation, buffering and the flush protocol.
type Coordinator struct {
	store *store.Store
	mode  Mode
}

// CoordinatorOpts holds parameters for creating a Coordinator.
type CoordinatorOpts struct {
	Store *store.Store
	Mode  Mode // defaults to Deferred
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(opts CoordinatorOpts) (*Coordinator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("deferred: coordinator: store is required")
	}
	mode := opts.Mode
	if mode == "" {
		mode = Deferred
	}
	if mode != Immediate && mode != Deferred {
		return nil, fmt.Errorf("deferred: coordinator: invalid mode %q", mode)
	}
	return &Coordinator{store: opts.Store, mode: mode}, nil
}

// Mode returns the configured write mode.
func (c *Coordinator) Mode() Mode { return c.mode }

// EnsureEntry returns the inspection record for the current run, creating it
// lazily on first write. When an orphan entry already exists for this
// inspector, item and sub-location (left by an abandoned step) it is
// reattached instead of duplicated, most-recent-first, best-effort. The
// resulting id is cached on the session so the run keeps editing one record.
func (c *Coordinator) EnsureEntry(ctx context.Context, s *session.Session, itemID uint, locationID, taskID *uint) (uint, error) {
	if s.CurrentEntryID != 0 {
		return s.CurrentEntryID, nil
	}

	orphan, err := c.store.LatestOrphanEntry(s.InspectorID, itemID, locationID)
	if err == nil {
		if taskID != nil {
			if err := c.store.AttachEntryTask(orphan.ID, *taskID); err != nil {
				return 0, err
			}
		}
		s.CurrentEntryID = orphan.ID
		return orphan.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}

	entry := models.ItemEntry{
		InspectorID: s.InspectorID,
		ItemID:      itemID,
		LocationID:  locationID,
		TaskID:      taskID,
	}
	if err := c.store.CreateEntry(&entry); err != nil {
		return 0, err
	}
	s.CurrentEntryID = entry.ID
	return entry.ID, nil
}

// RecordConditions stores condition assignments for one sub-location run.
// Deferred mode buffers them on the session (replacing any previous buffer
// for the same scope); immediate mode persists each one now.
func (c *Coordinator) RecordConditions(ctx context.Context, s *session.Session, itemID, locationID uint, tcs []session.TaskCondition) error {
	if c.mode == Deferred {
		s.SetConditions(itemID, locationID, tcs)
		return nil
	}

	locID := optional(locationID)
	entryID, err := c.EnsureEntry(ctx, s, itemID, locID, nil)
	if err != nil {
		return err
	}
	for _, tc := range tcs {
		if err := c.store.SetTaskCondition(tc.TaskID, string(tc.Condition)); err != nil {
			return err
		}
		detail := models.FindingDetail{Condition: string(tc.Condition)}
		if err := c.store.UpsertFinding(entryID, tc.TaskID, detail); err != nil {
			return err
		}
	}
	return nil
}

// RecordTaskCondition persists one condition for the per-task flow. Unlike
// the sub-location batch this always writes through: the entry is created
// (or an orphan reattached) on this first write and the condition lands
// immediately in either mode.
func (c *Coordinator) RecordTaskCondition(ctx context.Context, s *session.Session, itemID, taskID uint, cond condition.Condition) error {
	tid := taskID
	entryID, err := c.EnsureEntry(ctx, s, itemID, optional(s.CurrentLocationID), &tid)
	if err != nil {
		return err
	}
	if err := c.store.SetTaskCondition(taskID, string(cond)); err != nil {
		return err
	}
	return c.store.UpsertFinding(entryID, taskID, models.FindingDetail{Condition: string(cond)})
}

// RecordFinding stores cause/resolution detail for one task.
func (c *Coordinator) RecordFinding(ctx context.Context, s *session.Session, itemID, taskID uint, cause, resolution string) error {
	if c.mode == Deferred && s.CurrentEntryID == 0 {
		s.SetFinding(taskID, cause, resolution)
		return nil
	}

	entryID, err := c.EnsureEntry(ctx, s, itemID, optional(s.CurrentLocationID), nil)
	if err != nil {
		return err
	}
	return c.store.UpsertFinding(entryID, taskID, models.FindingDetail{
		Cause:      cause,
		Resolution: resolution,
	})
}

// RecordMedia stores one uploaded media reference. Once an entry exists for
// the run the reference is attached directly; before that it is buffered on
// the session and drained at flush.
func (c *Coordinator) RecordMedia(ctx context.Context, s *session.Session, m session.Media) error {
	if c.mode == Deferred && s.CurrentEntryID == 0 {
		s.AddMedia(m)
		return nil
	}

	entryID, err := c.EnsureEntry(ctx, s, m.ItemID, m.LocationID, m.TaskID)
	if err != nil {
		return err
	}
	return c.store.AddMedia(&models.ItemEntryMedia{
		EntryID:   entryID,
		URL:       m.URL,
		MediaType: m.MediaType,
		Caption:   m.Caption,
		TaskID:    m.TaskID,
	})
}

// MediaCount returns buffered plus persisted media for the current scope.
func (c *Coordinator) MediaCount(s *session.Session, itemID, locationID uint) (int, error) {
	count := 0
	for _, m := range s.PendingMedia {
		if m.ItemID == itemID && (m.LocationID == nil || *m.LocationID == locationID) {
			count++
		}
	}
	if s.CurrentEntryID != 0 {
		n, err := c.store.MediaCount(s.CurrentEntryID)
		if err != nil {
			return 0, err
		}
		count += int(n)
	}
	return count, nil
}

// FlushReport summarizes one deferred commit.
type FlushReport struct {
	EntryID    uint
	Conditions int
	Findings   int
	Media      int
	Failures   int
}

// Flush commits every buffered condition, finding and media reference for
// the (item, sub-location) scope as one batch. Failures on independent tasks
// are logged and skipped, never rolled back: every write here is idempotent
// and safe to repeat on retry. Buffers for other scopes are untouched.
func (c *Coordinator) Flush(ctx context.Context, s *session.Session, itemID, locationID uint) (*FlushReport, error) {
	entryID, err := c.EnsureEntry(ctx, s, itemID, optional(locationID), nil)
	if err != nil {
		return nil, fmt.Errorf("deferred: flush: %w", err)
	}

	conds, findings, media := s.TakeScope(itemID, locationID)
	report := &FlushReport{EntryID: entryID}

	for _, tc := range conds {
		if err := c.store.SetTaskCondition(tc.TaskID, string(tc.Condition)); err != nil {
			log.Printf("deferred: flush: task %d condition: %v", tc.TaskID, err)
			report.Failures++
			continue
		}
		report.Conditions++

		detail := models.FindingDetail{Condition: string(tc.Condition)}
		if f, ok := findings[tc.TaskID]; ok {
			detail.Cause = f.Cause
			detail.Resolution = f.Resolution
		}
		if err := c.store.UpsertFinding(entryID, tc.TaskID, detail); err != nil {
			log.Printf("deferred: flush: task %d finding: %v", tc.TaskID, err)
			report.Failures++
			continue
		}
		report.Findings++
	}

	for _, m := range media {
		err := c.store.AddMedia(&models.ItemEntryMedia{
			EntryID:   entryID,
			URL:       m.URL,
			MediaType: m.MediaType,
			Caption:   m.Caption,
			TaskID:    m.TaskID,
		})
		if err != nil {
			log.Printf("deferred: flush: media %s: %v", m.URL, err)
			report.Failures++
			continue
		}
		report.Media++
	}

	if s.PendingRemarks != "" {
		if err := c.store.UpdateEntryRemarks(entryID, s.PendingRemarks); err != nil {
			log.Printf("deferred: flush: remarks: %v", err)
			report.Failures++
		}
	}

	return report, nil
}

// optional wraps a non-zero id in a pointer.
func optional(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}
