package chat

import "sync"

// Thread is the visible message list for one conversation. It applies
// stream events — appends from push mode, whole-list replacement from poll
// mode — and takes immediate local appends after a successful send.
type Thread struct {
	mu       sync.Mutex
	messages []Message
}

func NewThread() *Thread {
	return &Thread{}
}

// Apply folds one stream event into the thread.
func (t *Thread) Apply(event Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Kind {
	case EventAppend:
		t.messages = append(t.messages, event.Message)
	case EventSnapshot:
		t.messages = append([]Message(nil), event.Messages...)
	}
}

// AppendLocal adds a just-sent message without waiting for the stream.
func (t *Thread) AppendLocal(message Message) {
	t.mu.Lock()
	t.messages = append(t.messages, message)
	t.mu.Unlock()
}

// Messages returns a copy of the thread in display order.
func (t *Thread) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}
