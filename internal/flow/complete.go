package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkale/sitewalk/internal/condition"
	"github.com/mkale/sitewalk/internal/models"
	"github.com/mkale/sitewalk/internal/session"
)

// MarkSubLocationComplete validates and closes out the active sub-location:
// every open task must be rated, FAIR/UNSATISFACTORY tasks need cause and
// resolution, and media must exist unless everything was NOT_APPLICABLE.
// This is a deferred-mode commit point.
func (m *Machine) MarkSubLocationComplete(ctx context.Context, s *session.Session) (Result, error) {
	if s.JobStatus != session.JobStarted || s.CurrentItemID == 0 || s.CurrentLocationID == 0 {
		return Failf("No sub-location is active."), nil
	}
	loc, err := m.store.Location(s.CurrentLocationID)
	if err != nil {
		return nil, err
	}
	tasks, err := m.store.TasksByLocation(loc.ID)
	if err != nil {
		return nil, err
	}
	if r := m.validateScope(s, s.CurrentItemID, loc.ID, tasks); r != nil {
		return r, nil
	}

	if err := m.completeScope(ctx, s, s.CurrentItemID, loc.ID, tasks); err != nil {
		return nil, err
	}
	if err := m.store.SetLocationStatus(loc.ID, models.StatusCompleted); err != nil {
		return nil, err
	}
	cascaded, err := m.cascadeCompletion(s)
	if err != nil {
		return nil, err
	}

	s.ClearTaskScratch()
	s.CurrentLocationID = 0
	s.LastMenu = session.MenuSubLocations

	msg := "\"" + loc.Name + "\" marked complete."
	switch cascaded {
	case cascadeItem:
		msg += " That was the last sub-location here, so the location is complete too."
	case cascadeJob:
		msg += " That wraps up the location and the whole job. Nice work."
	default:
		msg += " Pick the next sub-location by number."
	}
	return OK(msg).withStage(s), nil
}

// MarkLocationComplete validates and closes out the active location. Any
// sub-location still open is validated and committed here as well, so a
// buffered run never has to be confirmed twice.
func (m *Machine) MarkLocationComplete(ctx context.Context, s *session.Session) (Result, error) {
	if s.JobStatus != session.JobStarted || s.CurrentItemID == 0 {
		return Failf("No location is active."), nil
	}
	item, err := m.store.Item(s.CurrentItemID)
	if err != nil {
		return nil, err
	}
	locs, err := m.store.LocationsByItem(item.ID)
	if err != nil {
		return nil, err
	}

	if len(locs) == 0 {
		tasks, err := m.store.TasksByItem(item.ID)
		if err != nil {
			return nil, err
		}
		if r := m.validateScope(s, item.ID, 0, tasks); r != nil {
			return r, nil
		}
		if err := m.completeScope(ctx, s, item.ID, 0, tasks); err != nil {
			return nil, err
		}
	} else {
		for _, loc := range locs {
			if loc.Status == models.StatusCompleted {
				continue
			}
			tasks, err := m.store.TasksByLocation(loc.ID)
			if err != nil {
				return nil, err
			}
			if r := m.validateScope(s, item.ID, loc.ID, tasks); r != nil {
				return r.With("subLocation", loc.Name), nil
			}
			s.CurrentEntryID = 0 // each sub-location commits to its own entry
			if err := m.completeScope(ctx, s, item.ID, loc.ID, tasks); err != nil {
				return nil, err
			}
			if err := m.store.SetLocationStatus(loc.ID, models.StatusCompleted); err != nil {
				return nil, err
			}
		}
	}

	if err := m.store.SetItemStatus(item.ID, models.StatusCompleted); err != nil {
		return nil, err
	}
	jobDone, err := m.cascadeWorkOrder(s)
	if err != nil {
		return nil, err
	}

	s.ClearTaskScratch()
	s.CurrentItemID = 0
	s.CurrentLocationID = 0
	s.LastMenu = session.MenuLocations

	msg := "\"" + item.Name + "\" marked complete."
	if jobDone {
		msg += " Every location is done; the job is complete. Nice work."
	} else {
		msg += " Pick the next location by number."
	}
	return OK(msg).withStage(s), nil
}

// validateScope checks a scope's open tasks for completeness. Returns a
// failure result naming what's missing, or nil when the scope may close.
// Tasks already completed through the per-task flow are skipped.
func (m *Machine) validateScope(s *session.Session, itemID, locID uint, tasks []models.ChecklistTask) Result {
	var unrated, undetailed []string
	mediaNeeded := false

	for _, t := range tasks {
		if t.Status == models.StatusCompleted {
			continue
		}
		cond := m.conditionFor(s, itemID, locID, t)
		if cond == "" {
			unrated = append(unrated, t.Name)
			continue
		}
		if condition.RequiresMedia(cond) {
			mediaNeeded = true
		}
		if condition.RequiresCauseResolution(cond) {
			cause, resolution := m.causeResolution(s, t.ID)
			if cause == "" || resolution == "" {
				undetailed = append(undetailed, t.Name)
			}
		}
	}

	if len(unrated) > 0 {
		return Failf("Not yet — these tasks still need a condition: %s.", strings.Join(unrated, ", "))
	}
	if len(undetailed) > 0 {
		return Failf("FAIR and UNSATISFACTORY tasks need a cause and resolution first: %s.", strings.Join(undetailed, ", "))
	}
	if mediaNeeded {
		n, err := m.scopedMediaCount(s, itemID, locID)
		if err != nil {
			return Failf("Couldn't check attached media: %v.", err)
		}
		if n == 0 {
			return Failf("Attach at least one photo before completing — only all-NOT_APPLICABLE areas can go without.")
		}
	}
	return nil
}

// completeScope flushes the scope's buffered work, closes its entry, and
// marks its open tasks completed.
func (m *Machine) completeScope(ctx context.Context, s *session.Session, itemID, locID uint, tasks []models.ChecklistTask) error {
	report, err := m.coord.Flush(ctx, s, itemID, locID)
	if err != nil {
		return err
	}
	if err := m.store.SetEntryCompleted(report.EntryID, true); err != nil {
		return err
	}
	for _, t := range tasks {
		if t.Status == models.StatusCompleted {
			continue
		}
		if err := m.store.SetTaskStatus(t.ID, models.StatusCompleted); err != nil {
			return err
		}
	}
	return nil
}

// scopedMediaCount counts media for one scope: buffered references plus, for
// the currently active run, anything already attached to its entry.
func (m *Machine) scopedMediaCount(s *session.Session, itemID, locID uint) (int, error) {
	count := 0
	for _, md := range s.PendingMedia {
		sameItem := md.ItemID == itemID
		sameLoc := md.LocationID == nil || *md.LocationID == locID
		if sameItem && sameLoc {
			count++
		}
	}
	if itemID == s.CurrentItemID && locID == s.CurrentLocationID && s.CurrentEntryID != 0 {
		n, err := m.store.MediaCount(s.CurrentEntryID)
		if err != nil {
			return 0, err
		}
		count += int(n)
	}
	return count, nil
}

type cascade int

const (
	cascadeNone cascade = iota
	cascadeItem
	cascadeJob
)

// cascadeCompletion propagates sub-location completion upward: the parent
// location completes when its last sub-location does, and the work order
// completes when its last location does.
func (m *Machine) cascadeCompletion(s *session.Session) (cascade, error) {
	n, err := m.store.CountIncompleteLocations(s.CurrentItemID)
	if err != nil {
		return cascadeNone, err
	}
	if n > 0 {
		return cascadeNone, nil
	}
	if err := m.store.SetItemStatus(s.CurrentItemID, models.StatusCompleted); err != nil {
		return cascadeNone, err
	}
	done, err := m.cascadeWorkOrder(s)
	if err != nil {
		return cascadeItem, err
	}
	if done {
		return cascadeJob, nil
	}
	return cascadeItem, nil
}

// cascadeWorkOrder completes the work order once no incomplete locations
// remain.
func (m *Machine) cascadeWorkOrder(s *session.Session) (bool, error) {
	n, err := m.store.CountIncompleteItems(s.WorkOrderID)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if err := m.store.SetWorkOrderStatus(s.WorkOrderID, models.StatusCompleted); err != nil {
		return false, fmt.Errorf("flow: complete work order: %w", err)
	}
	return true, nil
}
