package flow

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mkale/sitewalk/internal/condition"
	"github.com/mkale/sitewalk/internal/models"
	"github.com/mkale/sitewalk/internal/session"
	"github.com/mkale/sitewalk/internal/store"
)

// remarkCauseRe and remarkResolutionRe recover cause/resolution detail from
// free-text remarks like "cause: loose hinge; fix: re-tightened" when the
// inspector never answered the dedicated prompts.
var (
	remarkCauseRe      = regexp.MustCompile(`(?i)cause\s*[:\-]\s*([^.;,\n]+)`)
	remarkResolutionRe = regexp.MustCompile(`(?i)(?:resolution|resolved|fix|action)\s*[:\-]\s*([^.;,\n]+)`)
)

// answerRe matches one "<number><separator><text>" segment of an enumerated
// reply, e.g. "1: loose hinge".
var answerRe = regexp.MustCompile(`(\d{1,2})\s*[:.\-]\s*([^,;\n]+)`)

// conditionFor resolves a task's active condition for a scope: the deferred
// buffer first, then the persisted task row.
func (m *Machine) conditionFor(s *session.Session, itemID, locationID uint, task models.ChecklistTask) condition.Condition {
	if set := s.Conditions(itemID, locationID); set != nil {
		for _, tc := range set.Tasks {
			if tc.TaskID == task.ID {
				return tc.Condition
			}
		}
	}
	return condition.Condition(task.Condition)
}

// activeConditions collects the condition(s) governing the current media
// requirement: the active task's condition when one is selected, otherwise
// every recorded condition in the scope.
func (m *Machine) activeConditions(s *session.Session) ([]condition.Condition, error) {
	if s.CurrentTaskID != 0 {
		task, err := m.store.Task(s.CurrentTaskID)
		if err != nil {
			return nil, err
		}
		c := m.conditionFor(s, s.CurrentItemID, s.CurrentLocationID, *task)
		if c == "" {
			return nil, nil
		}
		return []condition.Condition{c}, nil
	}

	tasks, err := m.scopeTasks(s)
	if err != nil {
		return nil, err
	}
	var out []condition.Condition
	for _, t := range tasks {
		if c := m.conditionFor(s, s.CurrentItemID, s.CurrentLocationID, t); c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// tasksNeedingDetail filters the scope's tasks down to those whose recorded
// condition requires a cause and resolution, in sequence order.
func (m *Machine) tasksNeedingDetail(s *session.Session, tasks []models.ChecklistTask) []models.ChecklistTask {
	var out []models.ChecklistTask
	for _, t := range tasks {
		if condition.RequiresCauseResolution(m.conditionFor(s, s.CurrentItemID, s.CurrentLocationID, t)) {
			out = append(out, t)
		}
	}
	return out
}

// causeResolution resolves the best-known cause and resolution for a task,
// in priority order: the in-flight scratch values, the buffered finding, the
// persisted finding, then a pattern match over the remarks.
func (m *Machine) causeResolution(s *session.Session, taskID uint) (cause, resolution string) {
	if s.CurrentTaskID == taskID {
		cause, resolution = s.PendingCause, s.PendingResolution
	}
	if f, ok := s.PendingFindings[taskID]; ok {
		if cause == "" {
			cause = f.Cause
		}
		if resolution == "" {
			resolution = f.Resolution
		}
	}
	if (cause == "" || resolution == "") && s.CurrentEntryID != 0 {
		if f, err := m.store.Finding(s.CurrentEntryID, taskID); err == nil {
			if cause == "" {
				cause = f.Detail.Cause
			}
			if resolution == "" {
				resolution = f.Detail.Resolution
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return cause, resolution
		}
	}
	if cause == "" || resolution == "" {
		remarks := s.PendingRemarks
		if remarks == "" && s.CurrentEntryID != 0 {
			if e, err := m.store.Entry(s.CurrentEntryID); err == nil {
				remarks = e.Remarks
			}
		}
		if cause == "" {
			if mt := remarkCauseRe.FindStringSubmatch(remarks); mt != nil {
				cause = strings.TrimSpace(mt[1])
			}
		}
		if resolution == "" {
			if mt := remarkResolutionRe.FindStringSubmatch(remarks); mt != nil {
				resolution = strings.TrimSpace(mt[1])
			}
		}
	}
	return cause, resolution
}

// splitAnswers parses one enumerated reply into numbered answers. Numbered
// segments win; a plain comma/semicolon list is assigned to slots 1..N in
// order. Slot numbers outside [1, max] are dropped.
func splitAnswers(text string, max int) map[int]string {
	out := make(map[int]string)
	for _, mt := range answerRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(mt[1])
		if err != nil || n < 1 || n > max {
			continue
		}
		out[n] = strings.TrimSpace(mt[2])
	}
	if len(out) > 0 {
		return out
	}

	slot := 1
	for _, part := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	}) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if slot > max {
			break
		}
		out[slot] = part
		slot++
	}
	return out
}

// missingDetail names which of cause/resolution are still empty.
func missingDetail(cause, resolution string) string {
	var missing []string
	if cause == "" {
		missing = append(missing, "cause")
	}
	if resolution == "" {
		missing = append(missing, "resolution")
	}
	sort.Strings(missing)
	return strings.Join(missing, " and ")
}

// optionalID wraps a non-zero id in a pointer for nullable foreign keys.
func optionalID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}
