package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/aryannishad-86/thriftgram/internal/chat"
)

// Kind matches the server's notification type field.
type Kind string

const (
	KindLike    Kind = "like"
	KindMessage Kind = "message"
	KindFollow  Kind = "follow"
)

// Notification is one inbox entry.
type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Type      Kind      `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type httpGetter interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Inbox holds the notification list and its unread badge. Pushed
// notifications land at the top; opening the inbox clears the badge
// locally without a server round trip.
type Inbox struct {
	http httpGetter

	mu     sync.Mutex
	items  []Notification
	unread int
}

func NewInbox(http httpGetter) (*Inbox, error) {
	if http == nil {
		return nil, fmt.Errorf("http client is required")
	}
	return &Inbox{http: http}, nil
}

// Refresh replaces the inbox with the server's current list. Unread is
// recounted from the fetched items.
func (i *Inbox) Refresh(ctx context.Context) error {
	var items []Notification
	if err := i.http.Get(ctx, "/notifications/", nil, &items); err != nil {
		return err
	}

	unread := 0
	for _, item := range items {
		if !item.IsRead {
			unread++
		}
	}

	i.mu.Lock()
	i.items = items
	i.unread = unread
	i.mu.Unlock()
	return nil
}

// Apply folds a pushed stream event into the inbox. Notification frames
// ride the same socket transport as chat, so the raw frame is decoded
// here into the notification shape; anything unparseable is ignored.
func (i *Inbox) Apply(event chat.Event) {
	if event.Kind != chat.EventAppend || len(event.Raw) == 0 {
		return
	}

	var incoming Notification
	if err := json.Unmarshal(event.Raw, &incoming); err != nil {
		return
	}
	i.Push(incoming)
}

// Push prepends one notification and bumps the badge.
func (i *Inbox) Push(incoming Notification) {
	i.mu.Lock()
	i.items = append([]Notification{incoming}, i.items...)
	i.unread++
	i.mu.Unlock()
}

// MarkAllRead zeroes the badge locally. The list itself is untouched.
func (i *Inbox) MarkAllRead() {
	i.mu.Lock()
	i.unread = 0
	i.mu.Unlock()
}

// Unread reports the badge count.
func (i *Inbox) Unread() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.unread
}

// Items returns a copy of the inbox, newest first.
func (i *Inbox) Items() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]Notification, len(i.items))
	copy(out, i.items)
	return out
}
