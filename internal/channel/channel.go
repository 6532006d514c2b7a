// Package channel abstracts the front-ends a user can talk through
// (console REPL, Telegram). A channel turns transport events into
// InboundMessages and delivers OutboundMessages back.
package channel

import (
	"context"
	"time"
)

// InboundMessage is one user request as received from a channel.
type InboundMessage struct {
	ChannelName string
	SenderID    string
	SenderName  string
	ChatID      string
	Text        string
	Timestamp   time.Time
}

// OutboundMessage is one reply headed back through a channel.
type OutboundMessage struct {
	ChatID  string
	Text    string
	ReplyTo string // optional message id to thread under
}

// Channel is a messaging front-end. Start is non-blocking; the channel
// keeps receiving until Stop or the Start context ends.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg OutboundMessage) error
	OnMessage(handler func(InboundMessage))
	IsRunning() bool
}
