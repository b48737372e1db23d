package channel

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkale/sitewalk/internal/storage"
)

// maxDownloadParallel bounds concurrent attachment downloads per message.
const maxDownloadParallel = 4

// TurnRunner drives one assistant turn for a conversation.
type TurnRunner interface {
	RunTurn(ctx context.Context, conversationID, userText string) (string, error)
}

// ToolDispatcher is the subset of the tool dispatcher the router needs:
// identity binding and direct media attachment.
type ToolDispatcher interface {
	EnsureInspector(ctx context.Context, conversationID, chatUserID string) error
	Dispatch(ctx context.Context, conversationID, tool string, args map[string]interface{}) map[string]interface{}
}

// Router fans in messages from every connected adapter, uploads attachments
// to object storage, and turns each message into an assistant turn.
type Router struct {
	adapters   []Adapter
	runner     TurnRunner
	dispatcher ToolDispatcher
	objects    storage.ObjectStore
	httpc      *http.Client

	wg sync.WaitGroup
}

// RouterOpts holds parameters for creating a Router.
type RouterOpts struct {
	Adapters   []Adapter
	Runner     TurnRunner
	Dispatcher ToolDispatcher
	Objects    storage.ObjectStore
	HTTPClient *http.Client // optional
}

// NewRouter creates a Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if len(opts.Adapters) == 0 {
		return nil, fmt.Errorf("channel: router: at least one adapter is required")
	}
	if opts.Runner == nil {
		return nil, fmt.Errorf("channel: router: turn runner is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("channel: router: dispatcher is required")
	}
	if opts.Objects == nil {
		return nil, fmt.Errorf("channel: router: object store is required")
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Router{
		adapters:   opts.Adapters,
		runner:     opts.Runner,
		dispatcher: opts.Dispatcher,
		objects:    opts.Objects,
		httpc:      httpc,
	}, nil
}

// Run connects every adapter and processes inbound messages until the
// context is cancelled. It blocks.
func (r *Router) Run(ctx context.Context) error {
	merged := make(chan inboundFrom, 100)

	for _, ad := range r.adapters {
		if err := ad.Connect(ctx); err != nil {
			return fmt.Errorf("channel: router: %w", err)
		}
		inbound, err := ad.Listen(ctx)
		if err != nil {
			return fmt.Errorf("channel: router: %w", err)
		}

		r.wg.Add(1)
		go func(ad Adapter, inbound <-chan InboundMessage) {
			defer r.wg.Done()
			for msg := range inbound {
				merged <- inboundFrom{adapter: ad, msg: msg}
			}
		}(ad, inbound)
	}

	go func() {
		r.wg.Wait()
		close(merged)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-merged:
			if !ok {
				return nil
			}
			r.wg.Add(1)
			go func(in inboundFrom) {
				defer r.wg.Done()
				r.handle(ctx, in.adapter, in.msg)
			}(in)
		}
	}
}

// Close shuts down every adapter and waits for in-flight turns.
func (r *Router) Close() error {
	var first error
	for _, ad := range r.adapters {
		if err := ad.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.wg.Wait()
	return first
}

type inboundFrom struct {
	adapter Adapter
	msg     InboundMessage
}

// handle processes one inbound message: bind the inspector, attach any
// uploads, then run the model turn for the text.
func (r *Router) handle(ctx context.Context, ad Adapter, msg InboundMessage) {
	convID := msg.Platform + ":" + msg.ChannelID

	if err := r.dispatcher.EnsureInspector(ctx, convID, msg.UserID); err != nil {
		log.Printf("channel: %s: %v", convID, err)
		r.reply(ctx, ad, msg, "I don't have you registered as an inspector. Ask your coordinator to link your chat account.")
		return
	}

	var attachReply string
	if len(msg.Attachments) > 0 {
		attachReply = r.attachAll(ctx, ad, msg, convID)
	}

	if strings.TrimSpace(msg.Text) == "" {
		if attachReply != "" {
			r.reply(ctx, ad, msg, attachReply)
		}
		return
	}

	reply, err := r.runner.RunTurn(ctx, convID, msg.Text)
	if err != nil {
		log.Printf("channel: %s: turn: %v", convID, err)
		r.reply(ctx, ad, msg, "Sorry, something went wrong on my end. Please try that again.")
		return
	}
	r.reply(ctx, ad, msg, reply)
}

// attachAll downloads and stores the message's uploads in a bounded parallel
// batch, then attaches each stored URL to the inspection. Returns the last
// attachment result's message for upload-only messages.
func (r *Router) attachAll(ctx context.Context, ad Adapter, msg InboundMessage, convID string) string {
	type stored struct {
		url       string
		mediaType string
		caption   string
	}
	results := make([]stored, len(msg.Attachments))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxDownloadParallel)
	for i, att := range msg.Attachments {
		wg.Add(1)
		go func(i int, att Attachment) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			data, err := r.download(ctx, ad, att.URL)
			if err != nil {
				log.Printf("channel: %s: download %s: %v", convID, att.Filename, err)
				return
			}
			key := path.Join("media", uuid.NewString(), att.Filename)
			url, err := r.objects.Put(ctx, key, data, att.MediaType)
			if err != nil {
				log.Printf("channel: %s: store %s: %v", convID, att.Filename, err)
				return
			}
			results[i] = stored{url: url, mediaType: mediaKind(att.MediaType), caption: att.Filename}
		}(i, att)
	}
	wg.Wait()

	var lastMessage string
	for _, st := range results {
		if st.url == "" {
			continue
		}
		res := r.dispatcher.Dispatch(ctx, convID, "attachMedia", map[string]interface{}{
			"url":       st.url,
			"mediaType": st.mediaType,
			"caption":   st.caption,
		})
		if m, ok := res["message"].(string); ok {
			lastMessage = m
		} else if e, ok := res["error"].(string); ok {
			lastMessage = e
		}
	}
	return lastMessage
}

// download fetches an attachment, via the adapter's credentialed downloader
// when it provides one.
func (r *Router) download(ctx context.Context, ad Adapter, url string) ([]byte, error) {
	if dl, ok := ad.(Downloader); ok {
		return dl.Download(ctx, url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (r *Router) reply(ctx context.Context, ad Adapter, msg InboundMessage, text string) {
	if text == "" {
		return
	}
	err := ad.Send(ctx, OutboundMessage{ChannelID: msg.ChannelID, Text: text})
	if err != nil {
		log.Printf("channel: reply to %s/%s: %v", msg.Platform, msg.ChannelID, err)
	}
}

// mediaKind collapses a MIME type to the entry media type.
func mediaKind(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	default:
		return "file"
	}
}
