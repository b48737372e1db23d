package flow

import (
	"fmt"
	"strings"

	"github.com/mkale/sitewalk/internal/condition"
	"github.com/mkale/sitewalk/internal/models"
	"github.com/mkale/sitewalk/internal/session"
)

// formatJobs renders the open work orders as a numbered menu.
func formatJobs(orders []models.WorkOrder) string {
	var b strings.Builder
	b.WriteString("Your open jobs:\n")
	for i, wo := range orders {
		fmt.Fprintf(&b, "%d. %s — %s", i+1, wo.Reference, wo.PropertyName)
		if wo.Address != "" {
			fmt.Fprintf(&b, ", %s", wo.Address)
		}
		b.WriteString("\n")
	}
	b.WriteString("Reply with a number to pick one.")
	return b.String()
}

// formatConfirm renders the start-job confirmation prompt.
func formatConfirm(wo *models.WorkOrder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s", wo.Reference, wo.PropertyName)
	if wo.Address != "" {
		fmt.Fprintf(&b, "\n%s", wo.Address)
	}
	if wo.ScheduledFor != nil {
		fmt.Fprintf(&b, "\nScheduled %s", wo.ScheduledFor.Format("Mon Jan 2, 3:04 PM"))
	}
	b.WriteString("\n1. Start this job\n2. Back to job list")
	return b.String()
}

// formatItems renders a job's locations as a numbered menu. Completed
// locations are marked so the inspector can see progress at a glance.
func formatItems(items []models.ChecklistItem) string {
	var b strings.Builder
	b.WriteString("Locations:\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, item.Name, doneMark(item.Status))
	}
	b.WriteString("Reply with a number to pick one.")
	return b.String()
}

// formatLocations renders a location's sub-locations as a numbered menu.
func formatLocations(itemName string, locs []models.ChecklistLocation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — sub-locations:\n", itemName)
	for i, loc := range locs {
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, loc.Name, doneMark(loc.Status))
	}
	b.WriteString("Reply with a number to pick one.")
	return b.String()
}

// formatTasks renders a scope's tasks as a numbered menu with any recorded
// conditions.
func formatTasks(scopeName string, tasks []models.ChecklistTask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — tasks:\n", scopeName)
	for i, t := range tasks {
		fmt.Fprintf(&b, "%d. %s", i+1, t.Name)
		if t.Condition != "" {
			fmt.Fprintf(&b, " [%s]", t.Condition)
		}
		b.WriteString("\n")
	}
	b.WriteString("Pick a task by number, or rate them all in one message (e.g. \"1 Good, 2 Fair\").")
	return b.String()
}

// formatAssignments summarizes parsed condition assignments back to the
// inspector for confirmation.
func formatAssignments(tasks []models.ChecklistTask, assigns []condition.Assignment) string {
	var b strings.Builder
	b.WriteString("Recorded:\n")
	for _, a := range assigns {
		fmt.Fprintf(&b, "%d. %s — %s\n", a.Position, tasks[a.Position-1].Name, a.Condition)
	}
	return strings.TrimRight(b.String(), "\n")
}

// causeResolutionPrompt enumerates the follow-up questions for every task
// whose condition requires detail: cause then resolution, per task, so a
// single numbered reply can answer them all.
func causeResolutionPrompt(tasks []models.ChecklistTask, tcs []session.TaskCondition) string {
	names := make(map[uint]string, len(tasks))
	for _, t := range tasks {
		names[t.ID] = t.Name
	}

	var b strings.Builder
	b.WriteString("Some tasks need more detail. Answer by number:\n")
	q := 1
	for _, tc := range tcs {
		if !condition.RequiresCauseResolution(tc.Condition) {
			continue
		}
		fmt.Fprintf(&b, "%d. What caused \"%s\" to be %s?\n", q, names[tc.TaskID], tc.Condition)
		q++
		fmt.Fprintf(&b, "%d. How was it resolved?\n", q)
		q++
	}
	b.WriteString("Reply like \"1: loose hinge, 2: re-tightened\".")
	return b.String()
}

// conditionLegend renders the 1-5 condition shorthand.
func conditionLegend() string {
	var parts []string
	for i, c := range condition.All() {
		parts = append(parts, fmt.Sprintf("%d %s", i+1, c))
	}
	return strings.Join(parts, ", ")
}

// conditionNames lists the canonical condition names.
func conditionNames() string {
	names := make([]string, 0, len(condition.All()))
	for _, c := range condition.All() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// doneMark suffixes completed checklist rows.
func doneMark(status string) string {
	if status == models.StatusCompleted {
		return " ✓"
	}
	return ""
}
