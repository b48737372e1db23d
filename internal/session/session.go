// Package session defines the per-conversation state record and its
// TTL-bounded persistence. One Session exists per conversation identity; it
// is created on first contact, rewritten on every turn, and expires after
// inactivity — staleness is the only teardown.
package session

import (
	"time"

	"github.com/mkale/sitewalk/internal/condition"
)

// JobStatus governs whether job-selection or in-job operations are legal.
type JobStatus string

const (
	JobNone       JobStatus = ""
	JobConfirming JobStatus = "confirming"
	JobStarted    JobStatus = "started"
)

// Menu identifies the numbered list most recently shown to the inspector,
// so a bare numeric reply can be interpreted unambiguously.
type Menu string

const (
	MenuNone         Menu = ""
	MenuJobs         Menu = "jobs"
	MenuConfirm      Menu = "confirm"
	MenuLocations    Menu = "locations"
	MenuSubLocations Menu = "sublocations"
	MenuTasks        Menu = "tasks"
)

// Stage is the current step within the per-task or per-sub-location
// data-collection sequence.
type Stage string

const (
	StageNone       Stage = ""
	StageCondition  Stage = "condition"
	StageCause      Stage = "cause"
	StageResolution Stage = "resolution"
	StageRemarks    Stage = "remarks"
	StageMedia      Stage = "media"
	StageConfirm    Stage = "confirm"
)

// TaskCondition is one buffered (task, condition) pair.
type TaskCondition struct {
	TaskID    uint                `json:"taskId"`
	Condition condition.Condition `json:"condition"`
}

// ConditionSet buffers not-yet-persisted condition assignments for one
// (item, sub-location) run. At most one set exists per pair; re-buffering
// replaces it.
type ConditionSet struct {
	ItemID     uint            `json:"itemId"`
	LocationID uint            `json:"subLocationId"`
	Tasks      []TaskCondition `json:"tasks"`
}

// Finding buffers per-task cause/resolution detail awaiting flush.
type Finding struct {
	Cause      string `json:"cause,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// Media buffers one uploaded media reference awaiting attachment to an entry.
type Media struct {
	URL        string `json:"url"`
	MediaType  string `json:"mediaType"`
	Caption    string `json:"caption,omitempty"`
	TaskID     *uint  `json:"taskId,omitempty"`
	ItemID     uint   `json:"taskItemId"`
	LocationID *uint  `json:"subLocationId,omitempty"`
}

// Session is the mutable conversation state for one conversation identity.
type Session struct {
	ConversationID string    `json:"conversationId"`
	InspectorID    uint      `json:"inspectorId"`
	WorkOrderID    uint      `json:"workOrderId"`
	JobStatus      JobStatus `json:"jobStatus"`
	LastMenu       Menu      `json:"lastMenu"`

	// Active navigation path. CurrentItemID is the location shown to the
	// inspector; CurrentLocationID is the sub-location within it.
	CurrentItemID     uint `json:"currentLocationId"`
	CurrentLocationID uint `json:"currentSubLocationId"`
	CurrentTaskID     uint `json:"currentTaskId"`

	Stage          Stage `json:"taskFlowStage"`
	CurrentEntryID uint  `json:"currentTaskEntryId"`

	// Deferred-write buffers.
	PendingConditions []ConditionSet   `json:"pendingConditions,omitempty"`
	PendingFindings   map[uint]Finding `json:"pendingFindings,omitempty"`
	PendingMedia      []Media          `json:"pendingMediaUploads,omitempty"`

	// Scratch fields for the in-flight single value being collected.
	PendingCause      string `json:"pendingTaskCause,omitempty"`
	PendingResolution string `json:"pendingTaskResolution,omitempty"`
	PendingRemarks    string `json:"pendingTaskRemarks,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// New returns an empty session for a conversation identity.
func New(conversationID string) *Session {
	return &Session{ConversationID: conversationID}
}

// ClearTaskScratch resets the per-task scratch fields after a task or
// sub-location run completes, preserving navigation context so the next
// sibling task needs no re-navigation.
func (s *Session) ClearTaskScratch() {
	s.CurrentTaskID = 0
	s.CurrentEntryID = 0
	s.Stage = StageNone
	s.PendingCause = ""
	s.PendingResolution = ""
	s.PendingRemarks = ""
}

// SetConditions replaces or inserts the buffered condition set for the
// given (item, sub-location) pair. Uniqueness per pair is an invariant:
// re-buffering replaces, never duplicates.
func (s *Session) SetConditions(itemID, locationID uint, tasks []TaskCondition) {
	for i, cs := range s.PendingConditions {
		if cs.ItemID == itemID && cs.LocationID == locationID {
			s.PendingConditions[i].Tasks = tasks
			return
		}
	}
	s.PendingConditions = append(s.PendingConditions, ConditionSet{
		ItemID:     itemID,
		LocationID: locationID,
		Tasks:      tasks,
	})
}

// Conditions returns the buffered condition set for the pair, or nil.
func (s *Session) Conditions(itemID, locationID uint) *ConditionSet {
	for i, cs := range s.PendingConditions {
		if cs.ItemID == itemID && cs.LocationID == locationID {
			return &s.PendingConditions[i]
		}
	}
	return nil
}

// SetFinding merges cause/resolution detail into the buffered finding for a
// task. Empty values leave the existing field untouched.
func (s *Session) SetFinding(taskID uint, cause, resolution string) {
	if s.PendingFindings == nil {
		s.PendingFindings = make(map[uint]Finding)
	}
	f := s.PendingFindings[taskID]
	if cause != "" {
		f.Cause = cause
	}
	if resolution != "" {
		f.Resolution = resolution
	}
	s.PendingFindings[taskID] = f
}

// AddMedia buffers a media reference.
func (s *Session) AddMedia(m Media) {
	s.PendingMedia = append(s.PendingMedia, m)
}

// TakeScope removes and returns every buffered condition set, finding and
// media reference belonging to the (item, sub-location) pair, leaving
// unrelated buffered work for other sub-locations untouched.
func (s *Session) TakeScope(itemID, locationID uint) (conds []TaskCondition, findings map[uint]Finding, media []Media) {
	var keptSets []ConditionSet
	for _, cs := range s.PendingConditions {
		if cs.ItemID == itemID && cs.LocationID == locationID {
			conds = append(conds, cs.Tasks...)
		} else {
			keptSets = append(keptSets, cs)
		}
	}
	s.PendingConditions = keptSets

	findings = make(map[uint]Finding)
	taskIDs := make(map[uint]bool, len(conds))
	for _, tc := range conds {
		taskIDs[tc.TaskID] = true
	}
	for id, f := range s.PendingFindings {
		if taskIDs[id] {
			findings[id] = f
			delete(s.PendingFindings, id)
		}
	}

	var keptMedia []Media
	for _, m := range s.PendingMedia {
		sameItem := m.ItemID == itemID
		sameLoc := m.LocationID == nil || *m.LocationID == locationID
		if sameItem && sameLoc {
			media = append(media, m)
		} else {
			keptMedia = append(keptMedia, m)
		}
	}
	s.PendingMedia = keptMedia
	return conds, findings, media
}
