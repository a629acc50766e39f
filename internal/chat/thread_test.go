package chat

import "testing"

func TestThreadAppendAndSnapshot(t *testing.T) {
	t.Parallel()

	thread := NewThread()
	thread.Apply(Event{Kind: EventAppend, Message: Message{ID: 1, Content: "hi"}})
	thread.Apply(Event{Kind: EventAppend, Message: Message{ID: 2, Content: "hello"}})

	if got := thread.Messages(); len(got) != 2 || got[1].ID != 2 {
		t.Fatalf("unexpected thread after appends: %+v", got)
	}

	// A snapshot replaces the list outright, it does not merge.
	thread.Apply(Event{Kind: EventSnapshot, Messages: []Message{{ID: 7, Content: "fresh"}}})
	got := thread.Messages()
	if len(got) != 1 || got[0].ID != 7 {
		t.Fatalf("snapshot must replace the list, got %+v", got)
	}
}

func TestThreadAppendLocal(t *testing.T) {
	t.Parallel()

	thread := NewThread()
	thread.Apply(Event{Kind: EventSnapshot, Messages: []Message{{ID: 1}}})
	thread.AppendLocal(Message{ID: 2, Content: "sent just now"})

	got := thread.Messages()
	if len(got) != 2 || got[1].Content != "sent just now" {
		t.Fatalf("local append missing: %+v", got)
	}
}

func TestThreadMessagesReturnsCopy(t *testing.T) {
	t.Parallel()

	thread := NewThread()
	thread.AppendLocal(Message{ID: 1, Content: "original"})

	view := thread.Messages()
	view[0].Content = "mutated"

	if got := thread.Messages(); got[0].Content != "original" {
		t.Fatal("caller mutation leaked into the thread")
	}
}
