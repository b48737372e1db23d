package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mkale/sitewalk/internal/condition"
	"github.com/mkale/sitewalk/internal/deferred"
	"github.com/mkale/sitewalk/internal/models"
	"github.com/mkale/sitewalk/internal/session"
	"github.com/mkale/sitewalk/internal/store"
)

// SetSubLocationConditions parses one free-text message into per-task
// condition assignments for the active scope and records them.
func (m *Machine) SetSubLocationConditions(ctx context.Context, s *session.Session, text string) (Result, error) {
	if s.JobStatus != session.JobStarted || s.CurrentItemID == 0 {
		return Failf("Pick a location before rating its tasks."), nil
	}
	tasks, err := m.scopeTasks(s)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return Failf("The current scope has no tasks to rate."), nil
	}

	assigns, perr := condition.Parse(text, len(tasks))
	if perr != nil {
		var pe *condition.ParseError
		if errors.As(perr, &pe) {
			return Failf("I couldn't read any conditions from that. Use e.g. \"1 Good, 2 Fair\" with values %s.",
				conditionNames()), nil
		}
		return nil, perr
	}

	tcs := make([]session.TaskCondition, 0, len(assigns))
	for _, a := range assigns {
		tcs = append(tcs, session.TaskCondition{
			TaskID:    tasks[a.Position-1].ID,
			Condition: a.Condition,
		})
	}
	if err := m.coord.RecordConditions(ctx, s, s.CurrentItemID, s.CurrentLocationID, tcs); err != nil {
		return nil, err
	}

	needsDetail := false
	for _, tc := range tcs {
		if condition.RequiresCauseResolution(tc.Condition) {
			needsDetail = true
			break
		}
	}

	s.LastMenu = session.MenuNone
	summary := formatAssignments(tasks, assigns)
	if needsDetail {
		s.Stage = session.StageCause
		return OK(summary + "\n" + causeResolutionPrompt(tasks, tcs)).
			With("assigned", len(assigns)).withStage(s), nil
	}
	s.Stage = session.StageRemarks
	return OK(summary + "\nAny remarks for this area? Send them now.").
		With("assigned", len(assigns)).withStage(s), nil
}

// SetTaskCondition records a condition for the active task and routes the
// flow: FAIR and UNSATISFACTORY go through cause/resolution, everything
// else straight to remarks.
func (m *Machine) SetTaskCondition(ctx context.Context, s *session.Session, condText string) (Result, error) {
	if s.CurrentTaskID == 0 {
		return Failf("Pick a task before setting a condition."), nil
	}
	cond, ok := condition.FromWord(condText)
	if !ok {
		return Failf("Unknown condition %q. Allowed values: %s.", condText, conditionNames()), nil
	}
	if err := m.coord.RecordTaskCondition(ctx, s, s.CurrentItemID, s.CurrentTaskID, cond); err != nil {
		return nil, err
	}

	if condition.RequiresCauseResolution(cond) {
		s.Stage = session.StageCause
		return OK(string(cond) + " recorded. What caused it?").withStage(s), nil
	}
	s.Stage = session.StageRemarks
	return OK(string(cond) + " recorded. Any remarks? Send them now.").withStage(s), nil
}

// SetTaskCause captures the cause for the active task.
func (m *Machine) SetTaskCause(ctx context.Context, s *session.Session, text string) (Result, error) {
	if s.CurrentTaskID == 0 || s.Stage != session.StageCause {
		return Failf("No task is waiting for a cause right now."), nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Failf("The cause can't be empty."), nil
	}
	s.PendingCause = text
	if err := m.coord.RecordFinding(ctx, s, s.CurrentItemID, s.CurrentTaskID, text, ""); err != nil {
		return nil, err
	}
	s.Stage = session.StageResolution
	return OK("Got it. How was it resolved (or how should it be)?").withStage(s), nil
}

// SetTaskResolution captures the resolution for the active task.
func (m *Machine) SetTaskResolution(ctx context.Context, s *session.Session, text string) (Result, error) {
	if s.CurrentTaskID == 0 || s.Stage != session.StageResolution {
		return Failf("No task is waiting for a resolution right now."), nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Failf("The resolution can't be empty."), nil
	}
	s.PendingResolution = text
	if err := m.coord.RecordFinding(ctx, s, s.CurrentItemID, s.CurrentTaskID, "", text); err != nil {
		return nil, err
	}
	s.Stage = session.StageRemarks
	return OK("Noted. Any remarks? Send them now.").withStage(s), nil
}

// SetTaskRemarks captures free-text remarks for the active task.
func (m *Machine) SetTaskRemarks(ctx context.Context, s *session.Session, text string) (Result, error) {
	if s.CurrentTaskID == 0 {
		return Failf("No task is active."), nil
	}
	s.PendingRemarks = strings.TrimSpace(text)
	if s.CurrentEntryID != 0 && s.PendingRemarks != "" {
		if err := m.store.UpdateEntryRemarks(s.CurrentEntryID, s.PendingRemarks); err != nil {
			return nil, err
		}
	}
	s.Stage = session.StageMedia
	return OK("Remarks saved. Attach at least one photo, or skip if the task was not applicable.").withStage(s), nil
}

// SetSubLocationCauseResolution parses one enumerated message into cause and
// resolution answers for every task in scope that needs them. The numbered
// segments index the prompted questions in order: cause then resolution per
// task.
func (m *Machine) SetSubLocationCauseResolution(ctx context.Context, s *session.Session, text string) (Result, error) {
	if s.JobStatus != session.JobStarted || s.CurrentItemID == 0 {
		return Failf("Pick a location before answering cause and resolution."), nil
	}
	tasks, err := m.scopeTasks(s)
	if err != nil {
		return nil, err
	}
	needing := m.tasksNeedingDetail(s, tasks)
	if len(needing) == 0 {
		return Failf("No task in this scope needs a cause or resolution."), nil
	}

	answers := splitAnswers(text, 2*len(needing))
	if len(answers) == 0 {
		return Failf("Send answers like \"1: what caused it, 2: how it was resolved\"."), nil
	}

	for i, task := range needing {
		cause, resolution := "", ""
		if v, ok := answers[2*i+1]; ok {
			cause = v
		}
		if v, ok := answers[2*i+2]; ok {
			resolution = v
		}
		if cause == "" && resolution == "" {
			continue
		}
		s.SetFinding(task.ID, cause, resolution)
		if err := m.coord.RecordFinding(ctx, s, s.CurrentItemID, task.ID, cause, resolution); err != nil {
			return nil, err
		}
	}

	s.Stage = session.StageRemarks
	return OK("Cause and resolution recorded. Any remarks for this area? Send them now.").withStage(s), nil
}

// SetSubLocationRemarks captures remarks for the active sub-location run.
// In deferred mode this is the commit point: every buffered condition,
// finding and media reference for the scope is flushed in one batch.
func (m *Machine) SetSubLocationRemarks(ctx context.Context, s *session.Session, text string) (Result, error) {
	if s.JobStatus != session.JobStarted || s.CurrentItemID == 0 {
		return Failf("Pick a location before adding remarks."), nil
	}
	s.PendingRemarks = strings.TrimSpace(text)

	if m.coord.Mode() == deferred.Deferred {
		report, err := m.coord.Flush(ctx, s, s.CurrentItemID, s.CurrentLocationID)
		if err != nil {
			return nil, err
		}
		s.Stage = session.StageMedia
		return OK("Remarks saved. Attach at least one photo, or skip if everything was not applicable.").
			With("flushed", report.Conditions).withStage(s), nil
	}

	entryID, err := m.coord.EnsureEntry(ctx, s, s.CurrentItemID, optionalID(s.CurrentLocationID), nil)
	if err != nil {
		return nil, err
	}
	if s.PendingRemarks != "" {
		if err := m.store.UpdateEntryRemarks(entryID, s.PendingRemarks); err != nil {
			return nil, err
		}
	}
	s.Stage = session.StageMedia
	return OK("Remarks saved. Attach at least one photo, or skip if everything was not applicable.").withStage(s), nil
}

// AttachMedia records one uploaded media reference for the active scope.
func (m *Machine) AttachMedia(ctx context.Context, s *session.Session, url, mediaType, caption string) (Result, error) {
	if s.JobStatus != session.JobStarted || s.CurrentItemID == 0 {
		return Failf("Pick a location before attaching media."), nil
	}
	if url == "" {
		return Failf("The media upload did not produce a URL; try sending it again."), nil
	}
	if mediaType == "" {
		mediaType = "image"
	}

	media := session.Media{
		URL:        url,
		MediaType:  mediaType,
		Caption:    caption,
		ItemID:     s.CurrentItemID,
		LocationID: optionalID(s.CurrentLocationID),
		TaskID:     optionalID(s.CurrentTaskID),
	}
	if err := m.coord.RecordMedia(ctx, s, media); err != nil {
		return nil, err
	}

	n, err := m.coord.MediaCount(s, s.CurrentItemID, s.CurrentLocationID)
	if err != nil {
		return nil, err
	}
	return OK(fmt.Sprintf("Photo attached (%d total). Send more, or finish this task when done.", n)).
		With("mediaCount", n).withStage(s), nil
}

// SkipMedia is only legal when every active condition is NOT_APPLICABLE.
// Otherwise the request is rejected and the stage stays unchanged.
func (m *Machine) SkipMedia(ctx context.Context, s *session.Session) (Result, error) {
	if s.CurrentItemID == 0 {
		return Failf("Nothing to skip — no inspection is in progress."), nil
	}
	conds, err := m.activeConditions(s)
	if err != nil {
		return nil, err
	}
	if len(conds) == 0 {
		return Failf("Set a condition before deciding on photos."), nil
	}
	for _, c := range conds {
		if condition.RequiresMedia(c) {
			return Failf("Photos can only be skipped when the condition is NOT_APPLICABLE; this one is %s. Attach at least one photo.", c), nil
		}
	}
	s.Stage = session.StageConfirm
	return OK("Okay, no photos needed. Finish this task when ready.").withStage(s), nil
}

// FinalizeTask completes (or abandons) the active task. completed=true is
// gated: media must be attached unless the condition is NOT_APPLICABLE, and
// FAIR/UNSATISFACTORY need a cause and resolution — from the pending
// values, the persisted finding, or a pattern match over the remarks, in
// that priority order.
func (m *Machine) FinalizeTask(ctx context.Context, s *session.Session, completed bool) (Result, error) {
	if s.CurrentTaskID == 0 {
		return Failf("No task is active."), nil
	}
	task, err := m.store.Task(s.CurrentTaskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Failf("That task no longer exists."), nil
		}
		return nil, err
	}

	if !completed {
		s.ClearTaskScratch()
		s.LastMenu = session.MenuTasks
		return OK("Task left incomplete — you can come back to it from the task list.").withStage(s), nil
	}

	cond := m.conditionFor(s, s.CurrentItemID, s.CurrentLocationID, *task)
	if cond == "" {
		return Failf("Set a condition for \"%s\" before finishing it.", task.Name), nil
	}

	// Every gate runs before the first write; a rejected finalize mutates
	// nothing.
	var cause, resolution string
	if condition.RequiresCauseResolution(cond) {
		cause, resolution = m.causeResolution(s, task.ID)
		if cause == "" || resolution == "" {
			return Failf("%s needs both a cause and a resolution before finishing. Missing: %s.",
				cond, missingDetail(cause, resolution)), nil
		}
	}

	if condition.RequiresMedia(cond) {
		n, err := m.coord.MediaCount(s, s.CurrentItemID, s.CurrentLocationID)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return Failf("Attach at least one photo before finishing — only NOT_APPLICABLE tasks can go without."), nil
		}
	}

	entryID, err := m.coord.EnsureEntry(ctx, s, s.CurrentItemID, optionalID(s.CurrentLocationID), &task.ID)
	if err != nil {
		return nil, err
	}
	if condition.RequiresCauseResolution(cond) {
		detail := models.FindingDetail{Cause: cause, Resolution: resolution}
		if err := m.store.UpsertFinding(entryID, task.ID, detail); err != nil {
			return nil, err
		}
	}
	if _, err := m.coord.Flush(ctx, s, s.CurrentItemID, s.CurrentLocationID); err != nil {
		return nil, err
	}
	if err := m.store.SetEntryCompleted(entryID, true); err != nil {
		return nil, err
	}
	if err := m.store.SetTaskStatus(task.ID, models.StatusCompleted); err != nil {
		return nil, err
	}

	s.ClearTaskScratch()
	s.LastMenu = session.MenuTasks
	return OK("Task \"" + task.Name + "\" completed. Pick the next task by number.").withStage(s), nil
}
