package flow

import (
	"context"

	"github.com/mkale/sitewalk/internal/models"
	"github.com/mkale/sitewalk/internal/session"
)

// Jobs lists the inspector's open work orders as a numbered menu.
func (m *Machine) Jobs(ctx context.Context, s *session.Session) (Result, error) {
	orders, err := m.store.OpenWorkOrders(s.InspectorID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return OK("No open jobs assigned to you right now."), nil
	}
	s.LastMenu = session.MenuJobs
	return OK(formatJobs(orders)).With("jobs", len(orders)), nil
}

// SelectJob picks a job from the last jobs menu and asks for confirmation.
func (m *Machine) SelectJob(ctx context.Context, s *session.Session, n int) (Result, error) {
	orders, err := m.store.OpenWorkOrders(s.InspectorID)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(orders) {
		return Failf("Pick a job between 1 and %d.", len(orders)), nil
	}
	wo := orders[n-1]
	s.WorkOrderID = wo.ID
	s.JobStatus = session.JobConfirming
	s.LastMenu = session.MenuConfirm
	return OK(formatConfirm(&wo)).With("workOrderId", wo.ID), nil
}

// StartJob begins the confirmed job. Rejected unless a job is awaiting
// confirmation; the rejection mutates nothing.
func (m *Machine) StartJob(ctx context.Context, s *session.Session) (Result, error) {
	if s.JobStatus != session.JobConfirming {
		return Failf("No job is awaiting confirmation. Ask for your job list and pick one first."), nil
	}
	if err := m.store.SetWorkOrderStatus(s.WorkOrderID, models.StatusInProgress); err != nil {
		return nil, err
	}
	s.JobStatus = session.JobStarted
	return m.locationsMenu(ctx, s, "Job started. ")
}

// CancelJob abandons the confirmation step and returns to the jobs menu.
func (m *Machine) CancelJob(ctx context.Context, s *session.Session) (Result, error) {
	if s.JobStatus != session.JobConfirming {
		return Failf("No job is awaiting confirmation."), nil
	}
	s.WorkOrderID = 0
	s.JobStatus = session.JobNone
	return m.Jobs(ctx, s)
}

// JobLocations lists the started job's locations.
func (m *Machine) JobLocations(ctx context.Context, s *session.Session) (Result, error) {
	if s.JobStatus != session.JobStarted {
		return Failf("Start a job before navigating its locations."), nil
	}
	return m.locationsMenu(ctx, s, "")
}

// locationsMenu builds the numbered location list and records the menu.
func (m *Machine) locationsMenu(ctx context.Context, s *session.Session, prefix string) (Result, error) {
	items, err := m.store.ItemsByWorkOrder(s.WorkOrderID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return OK(prefix + "This job has no checklist locations."), nil
	}
	s.LastMenu = session.MenuLocations
	return OK(prefix + formatItems(items)).With("locations", len(items)), nil
}

// SelectLocation enters a location. When it has sub-locations those are
// listed next; otherwise its tasks are listed directly.
func (m *Machine) SelectLocation(ctx context.Context, s *session.Session, n int) (Result, error) {
	if s.JobStatus != session.JobStarted {
		return Failf("Start a job before navigating its locations."), nil
	}
	items, err := m.store.ItemsByWorkOrder(s.WorkOrderID)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(items) {
		return Failf("Pick a location between 1 and %d.", len(items)), nil
	}
	item := items[n-1]

	locs, err := m.store.LocationsByItem(item.ID)
	if err != nil {
		return nil, err
	}

	// Entering a scope abandons any in-flight run; the next write starts a
	// fresh entry for the new target.
	s.ClearTaskScratch()
	s.CurrentItemID = item.ID
	s.CurrentLocationID = 0

	if len(locs) > 0 {
		s.LastMenu = session.MenuSubLocations
		return OK(formatLocations(item.Name, locs)).With("subLocations", len(locs)), nil
	}

	tasks, err := m.store.TasksByItem(item.ID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return OK("No tasks under " + item.Name + "."), nil
	}
	s.LastMenu = session.MenuTasks
	return OK(formatTasks(item.Name, tasks)).With("tasks", len(tasks)), nil
}

// SelectSubLocation enters a sub-location and lists its tasks.
func (m *Machine) SelectSubLocation(ctx context.Context, s *session.Session, n int) (Result, error) {
	if s.JobStatus != session.JobStarted || s.CurrentItemID == 0 {
		return Failf("Pick a location before its sub-locations."), nil
	}
	locs, err := m.store.LocationsByItem(s.CurrentItemID)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(locs) {
		return Failf("Pick a sub-location between 1 and %d.", len(locs)), nil
	}
	loc := locs[n-1]
	s.ClearTaskScratch()
	s.CurrentLocationID = loc.ID

	tasks, err := m.store.TasksByLocation(loc.ID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return OK("No tasks under " + loc.Name + "."), nil
	}
	s.LastMenu = session.MenuTasks
	return OK(formatTasks(loc.Name, tasks)).With("tasks", len(tasks)), nil
}

// SubLocationTasks re-lists the tasks for the active scope.
func (m *Machine) SubLocationTasks(ctx context.Context, s *session.Session) (Result, error) {
	if s.JobStatus != session.JobStarted || s.CurrentItemID == 0 {
		return Failf("Pick a location first."), nil
	}
	tasks, err := m.scopeTasks(s)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return OK("No tasks in the current scope."), nil
	}
	s.LastMenu = session.MenuTasks
	return OK(formatTasks(scopeName(m, s), tasks)).With("tasks", len(tasks)), nil
}

// SelectTask enters the per-task flow for one task. LastMenu is cleared so
// the next bare digit reads as a condition code, not a menu pick.
func (m *Machine) SelectTask(ctx context.Context, s *session.Session, n int) (Result, error) {
	if s.JobStatus != session.JobStarted || s.CurrentItemID == 0 {
		return Failf("Pick a location first."), nil
	}
	tasks, err := m.scopeTasks(s)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(tasks) {
		return Failf("Pick a task between 1 and %d.", len(tasks)), nil
	}
	task := tasks[n-1]
	s.ClearTaskScratch()
	s.CurrentTaskID = task.ID
	s.Stage = session.StageCondition
	s.LastMenu = session.MenuNone
	return OK("Rate \"" + task.Name + "\": " + conditionLegend()).
		With("taskId", task.ID).withStage(s), nil
}

// scopeName resolves a display name for the active scope, best-effort.
func scopeName(m *Machine, s *session.Session) string {
	if s.CurrentLocationID != 0 {
		if loc, err := m.store.Location(s.CurrentLocationID); err == nil {
			return loc.Name
		}
	}
	if item, err := m.store.Item(s.CurrentItemID); err == nil {
		return item.Name
	}
	return "current scope"
}
