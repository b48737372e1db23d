// Package tools exposes the conversation state machine as a named tool
// surface for an LLM tool-calling loop. The dispatcher is the single
// mutation path: it serializes turns per conversation, loads the session,
// runs exactly one transition, and persists the session back.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mkale/sitewalk/internal/flow"
	"github.com/mkale/sitewalk/internal/session"
	"github.com/mkale/sitewalk/internal/store"
)

// Dispatcher routes tool invocations to state machine transitions.
type Dispatcher struct {
	sessions session.Store
	machine  *flow.Machine
	store    *store.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// DispatcherOpts holds parameters for creating a Dispatcher.
type DispatcherOpts struct {
	Sessions session.Store
	Machine  *flow.Machine
	Store    *store.Store
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts DispatcherOpts) (*Dispatcher, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("tools: dispatcher: session store is required")
	}
	if opts.Machine == nil {
		return nil, fmt.Errorf("tools: dispatcher: machine is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("tools: dispatcher: store is required")
	}
	return &Dispatcher{
		sessions: opts.Sessions,
		machine:  opts.Machine,
		store:    opts.Store,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// convLock returns the mutex serializing one conversation's turns. Two
// concurrent tool calls for the same conversation run one at a time so the
// second sees the first's session writes.
func (d *Dispatcher) convLock(conversationID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		d.locks[conversationID] = l
	}
	return l
}

// EnsureInspector binds a conversation to its inspector record, creating the
// session on first contact. Unknown chat users are rejected.
func (d *Dispatcher) EnsureInspector(ctx context.Context, conversationID, chatUserID string) error {
	lock := d.convLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	s, err := session.GetOrCreate(ctx, d.sessions, conversationID)
	if err != nil {
		return fmt.Errorf("tools: ensure inspector: %w", err)
	}
	if s.InspectorID != 0 {
		return nil
	}
	inspector, err := d.store.InspectorByChatUser(chatUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("tools: no inspector registered for chat user %s", chatUserID)
		}
		return fmt.Errorf("tools: ensure inspector: %w", err)
	}
	s.InspectorID = inspector.ID
	if err := d.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("tools: ensure inspector: %w", err)
	}
	return nil
}

// Dispatch runs one named tool call against the conversation's session and
// returns the structured result. Upstream failures never surface raw errors
// to the model; they are logged and replaced with an actionable message. The
// session is saved after every call so guard rejections still refresh its
// TTL without changing its content.
func (d *Dispatcher) Dispatch(ctx context.Context, conversationID, tool string, args map[string]interface{}) map[string]interface{} {
	lock := d.convLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	s, err := session.GetOrCreate(ctx, d.sessions, conversationID)
	if err != nil {
		log.Printf("tools: %s: load session %s: %v", tool, conversationID, err)
		return flow.Failf("Something went wrong loading your session. Please try again.")
	}

	res, err := d.call(ctx, s, tool, args)
	if err != nil {
		log.Printf("tools: %s: conversation %s: %v", tool, conversationID, err)
		return flow.Failf("Failed to save your answer. Please try again.")
	}

	if err := d.sessions.Save(ctx, s); err != nil {
		log.Printf("tools: %s: save session %s: %v", tool, conversationID, err)
		return flow.Failf("Failed to save your answer. Please try again.")
	}
	return res
}

func (d *Dispatcher) call(ctx context.Context, s *session.Session, tool string, args map[string]interface{}) (flow.Result, error) {
	m := d.machine
	switch tool {
	case "getJobs":
		return m.Jobs(ctx, s)
	case "selectJob":
		return m.SelectJob(ctx, s, intArg(args, "number"))
	case "startJob":
		return m.StartJob(ctx, s)
	case "cancelJob":
		return m.CancelJob(ctx, s)
	case "getJobLocations":
		return m.JobLocations(ctx, s)
	case "selectLocation":
		return m.SelectLocation(ctx, s, intArg(args, "number"))
	case "selectSubLocation":
		return m.SelectSubLocation(ctx, s, intArg(args, "number"))
	case "getSubLocationTasks":
		return m.SubLocationTasks(ctx, s)
	case "selectTask":
		return m.SelectTask(ctx, s, intArg(args, "number"))
	case "setTaskCondition":
		return m.SetTaskCondition(ctx, s, strArg(args, "condition"))
	case "setSubLocationConditions":
		return m.SetSubLocationConditions(ctx, s, strArg(args, "text"))
	case "setTaskCause":
		return m.SetTaskCause(ctx, s, strArg(args, "text"))
	case "setTaskResolution":
		return m.SetTaskResolution(ctx, s, strArg(args, "text"))
	case "setSubLocationCauseResolution":
		return m.SetSubLocationCauseResolution(ctx, s, strArg(args, "text"))
	case "setTaskRemarks":
		return m.SetTaskRemarks(ctx, s, strArg(args, "text"))
	case "setSubLocationRemarks":
		return m.SetSubLocationRemarks(ctx, s, strArg(args, "text"))
	case "attachMedia":
		return m.AttachMedia(ctx, s, strArg(args, "url"), strArg(args, "mediaType"), strArg(args, "caption"))
	case "skipMedia":
		return m.SkipMedia(ctx, s)
	case "finalizeTask":
		return m.FinalizeTask(ctx, s, boolArg(args, "completed"))
	case "markSubLocationComplete":
		return m.MarkSubLocationComplete(ctx, s)
	case "markLocationComplete":
		return m.MarkLocationComplete(ctx, s)
	case "numericReply":
		return m.NumericReply(ctx, s, intArg(args, "number"))
	}
	return flow.Failf("Unknown tool %q. Available tools: %s.", tool, strings.Join(Names(), ", ")), nil
}

// Names lists every tool the dispatcher accepts, sorted.
func Names() []string {
	names := []string{
		"getJobs", "selectJob", "startJob", "cancelJob",
		"getJobLocations", "selectLocation", "selectSubLocation",
		"getSubLocationTasks", "selectTask",
		"setTaskCondition", "setSubLocationConditions",
		"setTaskCause", "setTaskResolution", "setSubLocationCauseResolution",
		"setTaskRemarks", "setSubLocationRemarks",
		"attachMedia", "skipMedia",
		"finalizeTask", "markSubLocationComplete", "markLocationComplete",
		"numericReply",
	}
	sort.Strings(names)
	return names
}

// intArg coerces a JSON argument to int. Models send numbers as float64 and
// occasionally as strings; both are accepted.
func intArg(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil {
			return n
		}
	}
	return 0
}

func strArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func boolArg(args map[string]interface{}, key string) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	}
	return false
}
