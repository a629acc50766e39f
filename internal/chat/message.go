package chat

import (
	"context"
	"encoding/json"
	"time"
)

// Sender identifies a message author.
type Sender struct {
	Username       string  `json:"username"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

// Message is one chat message. Poll fetches carry the server's ordering;
// pushed messages are ordered by arrival.
type Message struct {
	ID        int64     `json:"id"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	IsRead    bool      `json:"is_read"`
}

// Conversation is a two-party thread as the conversations endpoint lists it.
type Conversation struct {
	ID           int64     `json:"id"`
	Participants []Sender  `json:"participants"`
	LastMessage  *Message  `json:"last_message,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EventKind distinguishes how an event's payload applies to a message list.
type EventKind int

const (
	// EventAppend adds one message to the end of the list (push mode).
	EventAppend EventKind = iota
	// EventSnapshot replaces the entire list (poll mode re-fetch).
	EventSnapshot
)

// Event is one delivery from a MessageStream. Raw carries the original
// frame for consumers that decode a shape other than Message, such as
// the notification inbox sharing the socket transport.
type Event struct {
	Kind     EventKind
	Message  Message
	Messages []Message
	Raw      json.RawMessage
}

// MessageStream is the transport-agnostic inbound side of chat. Sending is
// never part of the stream; messages go out over plain HTTP.
type MessageStream interface {
	Connect(ctx context.Context) error
	Events() <-chan Event
	Close() error
}
