// Package flow owns the conversation phase state machine: which states a
// conversation can be in, which transitions are legal, and what a numeric or
// free-text reply means at each step. Guard rejections return a user-facing
// result and mutate nothing.
package flow

import (
	"context"
	"fmt"

	"github.com/mkale/sitewalk/internal/condition"
	"github.com/mkale/sitewalk/internal/deferred"
	"github.com/mkale/sitewalk/internal/models"
	"github.com/mkale/sitewalk/internal/session"
	"github.com/mkale/sitewalk/internal/store"
)

// Machine executes conversation transitions against the session and the
// data-access layer. It is stateless itself; all mutable state lives in the
// session and the database.
type Machine struct {
	store *store.Store
	coord *deferred.Coordinator
}

// MachineOpts holds parameters for creating a Machine.
type MachineOpts struct {
	Store       *store.Store
	Coordinator *deferred.Coordinator
}

// NewMachine creates a Machine.
func NewMachine(opts MachineOpts) (*Machine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("flow: machine: store is required")
	}
	if opts.Coordinator == nil {
		return nil, fmt.Errorf("flow: machine: coordinator is required")
	}
	return &Machine{store: opts.Store, coord: opts.Coordinator}, nil
}

// Result is the structured outcome of one transition, rendered to JSON for
// the tool-calling caller. Success results carry a human-readable message
// and, where relevant, the new taskFlowStage so the caller can render the
// right prompt.
type Result map[string]interface{}

// OK builds a success result with a display message.
func OK(message string) Result {
	return Result{"success": true, "message": message}
}

// Failf builds a failure result with actionable text. Failures from guards
// leave the session untouched.
func Failf(format string, args ...interface{}) Result {
	return Result{"success": false, "error": fmt.Sprintf(format, args...)}
}

// With adds a field to the result.
func (r Result) With(key string, val interface{}) Result {
	r[key] = val
	return r
}

// Ok reports whether the result is a success.
func (r Result) Ok() bool {
	ok, _ := r["success"].(bool)
	return ok
}

// withStage records the session's stage on the result.
func (r Result) withStage(s *session.Session) Result {
	return r.With("taskFlowStage", string(s.Stage))
}

// NumericReply resolves a bare 1-2 digit reply. The last menu shown wins
// over the task flow stage, so a "2" meant as a menu pick is never misread
// as a condition code; the machine clears LastMenu when a task flow begins,
// which is what makes that ordering safe.
func (m *Machine) NumericReply(ctx context.Context, s *session.Session, n int) (Result, error) {
	switch s.LastMenu {
	case session.MenuJobs:
		return m.SelectJob(ctx, s, n)
	case session.MenuConfirm:
		switch n {
		case 1:
			return m.StartJob(ctx, s)
		case 2:
			return m.CancelJob(ctx, s)
		}
		return Failf("Reply 1 to start the job or 2 to go back."), nil
	case session.MenuLocations:
		return m.SelectLocation(ctx, s, n)
	case session.MenuSubLocations:
		return m.SelectSubLocation(ctx, s, n)
	case session.MenuTasks:
		return m.SelectTask(ctx, s, n)
	}

	if s.Stage == session.StageCondition {
		if c, ok := condition.FromOrdinal(n); ok {
			return m.SetTaskCondition(ctx, s, string(c))
		}
		return Failf("Reply with a number 1-5: %s", conditionLegend()), nil
	}
	return Failf("Not sure what %d refers to. Ask for the job list or the current tasks first.", n), nil
}

// scopeTasks lists the tasks for the active sub-location, or the item's
// direct tasks when no sub-location is selected.
func (m *Machine) scopeTasks(s *session.Session) ([]models.ChecklistTask, error) {
	if s.CurrentLocationID != 0 {
		return m.store.TasksByLocation(s.CurrentLocationID)
	}
	return m.store.TasksByItem(s.CurrentItemID)
}
