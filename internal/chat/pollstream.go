package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aryannishad-86/thriftgram/pkg/logger"
)

type historyFetcher interface {
	History(ctx context.Context, conversationID int64) ([]Message, error)
}

// PollStream is the pull-mode chat transport: while a conversation is
// active it re-fetches the full message list on a fixed interval and emits
// each fetch as a snapshot that replaces the visible list. Fetch failures
// are logged and the next tick simply tries again; the view just goes a
// little stale.
type PollStream struct {
	fetch          historyFetcher
	conversationID int64
	interval       time.Duration
	logg           *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	events chan Event
}

func NewPollStream(fetch historyFetcher, conversationID int64, interval time.Duration, logg *logger.Logger) (*PollStream, error) {
	if fetch == nil {
		return nil, fmt.Errorf("history fetcher is required")
	}
	if conversationID <= 0 {
		return nil, fmt.Errorf("conversation id is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	return &PollStream{
		fetch:          fetch,
		conversationID: conversationID,
		interval:       interval,
		logg:           logg,
	}, nil
}

// Connect fetches the history once immediately, then keeps polling until
// Close.
func (s *PollStream) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("stream already connected")
	}
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	events := make(chan Event, 4)
	s.cancel = cancel
	s.done = done
	s.events = events
	s.mu.Unlock()

	if err := s.poll(ctx, events); err != nil && s.logg != nil {
		s.logg.Warn(ctx, fmt.Sprintf("initial history fetch: %v", err))
	}

	go s.loop(runCtx, done, events)
	return nil
}

// Events delivers snapshots. Each Connect starts a fresh channel; it
// closes when the stream shuts down.
func (s *PollStream) Events() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

func (s *PollStream) Close() error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (s *PollStream) loop(ctx context.Context, done chan struct{}, events chan Event) {
	defer func() {
		s.mu.Lock()
		if s.done == done {
			s.cancel()
			s.cancel = nil
			s.done = nil
		}
		s.mu.Unlock()
		close(events)
		close(done)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.poll(ctx, events); err != nil {
				if ctx.Err() != nil {
					return
				}
				if s.logg != nil {
					s.logg.Warn(ctx, fmt.Sprintf("polling conversation %d: %v", s.conversationID, err))
				}
			}
		}
	}
}

func (s *PollStream) poll(ctx context.Context, events chan Event) error {
	messages, err := s.fetch.History(ctx, s.conversationID)
	if err != nil {
		return err
	}

	select {
	case events <- Event{Kind: EventSnapshot, Messages: messages}:
	case <-ctx.Done():
	default:
		// A slow consumer keeps only the freshest snapshot.
		select {
		case <-events:
		default:
		}
		select {
		case events <- Event{Kind: EventSnapshot, Messages: messages}:
		default:
		}
	}
	return nil
}
