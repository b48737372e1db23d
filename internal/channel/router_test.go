package channel

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mkale/sitewalk/internal/storage"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []string // "convID|text"
	reply string
	err   error
}

func (f *fakeRunner) RunTurn(ctx context.Context, conversationID, userText string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, conversationID+"|"+userText)
	return f.reply, f.err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type dispatchCall struct {
	tool string
	args map[string]interface{}
}

type fakeDispatcher struct {
	mu         sync.Mutex
	knownUsers map[string]bool
	calls      []dispatchCall
}

func (f *fakeDispatcher) EnsureInspector(ctx context.Context, conversationID, chatUserID string) error {
	if !f.knownUsers[chatUserID] {
		return fmt.Errorf("no inspector registered for chat user %s", chatUserID)
	}
	return nil
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, conversationID, tool string, args map[string]interface{}) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{tool: tool, args: args})
	return map[string]interface{}{"success": true, "message": "Photo attached (1 total)."}
}

func (f *fakeDispatcher) dispatched() []dispatchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dispatchCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// startRouter runs the router in the background and returns a stop function.
func startRouter(t *testing.T, r *Router) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()
	return func() {
		cancel()
		r.Close()
		<-done
	}
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRouter_TextMessageRunsTurn(t *testing.T) {
	ad := NewMockAdapter()
	runner := &fakeRunner{reply: "Here are your jobs."}
	disp := &fakeDispatcher{knownUsers: map[string]bool{"U1": true}}

	r, err := NewRouter(RouterOpts{
		Adapters:   []Adapter{ad},
		Runner:     runner,
		Dispatcher: disp,
		Objects:    storage.NewMemory(),
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	stop := startRouter(t, r)
	defer stop()

	ad.SimulateInbound(InboundMessage{
		Platform:  "slack",
		ChannelID: "C1",
		UserID:    "U1",
		Text:      "show my jobs",
	})

	waitFor(t, func() bool { return ad.SentCount() > 0 })
	sent, _ := ad.LastSent()
	if sent.Text != "Here are your jobs." || sent.ChannelID != "C1" {
		t.Errorf("sent = %+v", sent)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.calls) != 1 || runner.calls[0] != "slack:C1|show my jobs" {
		t.Errorf("runner calls = %v", runner.calls)
	}
}

func TestRouter_UnregisteredUserGetsGuidance(t *testing.T) {
	ad := NewMockAdapter()
	runner := &fakeRunner{reply: "hi"}
	disp := &fakeDispatcher{knownUsers: map[string]bool{}}

	r, err := NewRouter(RouterOpts{
		Adapters:   []Adapter{ad},
		Runner:     runner,
		Dispatcher: disp,
		Objects:    storage.NewMemory(),
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	stop := startRouter(t, r)
	defer stop()

	ad.SimulateInbound(InboundMessage{Platform: "slack", ChannelID: "C1", UserID: "U-nobody", Text: "hello"})

	waitFor(t, func() bool { return ad.SentCount() > 0 })
	sent, _ := ad.LastSent()
	if !strings.Contains(sent.Text, "registered") {
		t.Errorf("sent = %q", sent.Text)
	}
	if runner.callCount() != 0 {
		t.Error("turn ran for an unregistered user")
	}
}

func TestRouter_UploadOnlyMessageAttachesMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	ad := NewMockAdapter()
	runner := &fakeRunner{reply: "unused"}
	disp := &fakeDispatcher{knownUsers: map[string]bool{"U1": true}}
	objects := storage.NewMemory()

	r, err := NewRouter(RouterOpts{
		Adapters:   []Adapter{ad},
		Runner:     runner,
		Dispatcher: disp,
		Objects:    objects,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	stop := startRouter(t, r)
	defer stop()

	ad.SimulateInbound(InboundMessage{
		Platform:  "slack",
		ChannelID: "C1",
		UserID:    "U1",
		Attachments: []Attachment{
			{URL: srv.URL + "/f.jpg", MediaType: "image/jpeg", Filename: "f.jpg"},
		},
	})

	waitFor(t, func() bool { return len(disp.dispatched()) > 0 })
	calls := disp.dispatched()
	if calls[0].tool != "attachMedia" {
		t.Fatalf("tool = %q", calls[0].tool)
	}
	url, _ := calls[0].args["url"].(string)
	if !strings.HasPrefix(url, "memory://media/") || !strings.HasSuffix(url, "/f.jpg") {
		t.Errorf("stored url = %q", url)
	}
	if mt, _ := calls[0].args["mediaType"].(string); mt != "image" {
		t.Errorf("mediaType = %q", mt)
	}

	// The stored object holds the downloaded bytes.
	key := strings.TrimPrefix(url, "memory://")
	data, ok := objects.Get(key)
	if !ok || string(data) != "jpeg-bytes" {
		t.Errorf("stored object = %q, %v", data, ok)
	}

	// Upload-only messages reply with the attach result, no model turn.
	waitFor(t, func() bool { return ad.SentCount() > 0 })
	sent, _ := ad.LastSent()
	if !strings.Contains(sent.Text, "attached") {
		t.Errorf("sent = %q", sent.Text)
	}
	if runner.callCount() != 0 {
		t.Error("turn ran for an upload-only message")
	}
}

func TestMediaKind(t *testing.T) {
	tests := []struct{ mime, want string }{
		{"image/jpeg", "image"},
		{"image/png", "image"},
		{"video/mp4", "video"},
		{"application/pdf", "file"},
		{"", "file"},
	}
	for _, tt := range tests {
		if got := mediaKind(tt.mime); got != tt.want {
			t.Errorf("mediaKind(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}
