// Package channel bridges chat platforms (Slack, Discord) to the inspection
// assistant. Adapters normalize platform events into inbound messages; the
// router turns those into assistant turns and replies.
package channel

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must
// satisfy. Each adapter handles connection management and message
// sending/receiving for a single chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages from the platform.
	// The channel is closed when the context is cancelled or the adapter
	// is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// InboundMessage represents a message received from the chat platform.
type InboundMessage struct {
	Platform    string       // e.g. "slack", "discord"
	ChannelID   string       // platform-specific channel identifier
	UserID      string       // platform-specific user identifier
	UserName    string       // human-readable username
	Text        string       // raw message text
	Attachments []Attachment // files uploaded with the message
	Timestamp   time.Time    // when the message was sent
}

// Attachment is one file uploaded with an inbound message.
type Attachment struct {
	URL       string // platform URL to fetch the file from
	MediaType string // MIME type as reported by the platform
	Filename  string
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChannelID string // target channel
	Text      string // message text (platform-native formatting)
}

// Downloader is an optional interface for adapters whose attachment URLs
// need platform credentials to fetch.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}
