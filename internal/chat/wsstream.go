package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aryannishad-86/thriftgram/pkg/logger"
	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
)

// Reconnect policy: exponential from 1s, capped at 30s, jittered, at most
// eight attempts per connection loss. After exhaustion the stream goes
// degraded and stays down until Connect is called again.
const (
	reconnectBase     = time.Second
	reconnectCap      = 30 * time.Second
	reconnectJitter   = 500 * time.Millisecond
	reconnectAttempts = 8
)

// WebSocketStream is the push-mode chat transport. Inbound frames are JSON
// messages appended to the event channel; nothing is ever written to the
// socket.
type WebSocketStream struct {
	endpoint    string
	logg        *logger.Logger
	dialer      *websocket.Dialer
	backoffBase time.Duration
	maxRedials  uint64

	mu       sync.Mutex
	conn     *websocket.Conn
	cancel   context.CancelFunc
	done     chan struct{}
	events   chan Event
	degraded bool
}

// NewChatStream points a stream at a chat room.
func NewChatStream(socketURL, room string, logg *logger.Logger) (*WebSocketStream, error) {
	return newWebSocketStream(socketURL, fmt.Sprintf("/ws/chat/%s/", url.PathEscape(room)), logg)
}

// NewNotificationStream points a stream at the notifications channel.
func NewNotificationStream(socketURL string, logg *logger.Logger) (*WebSocketStream, error) {
	return newWebSocketStream(socketURL, "/ws/notifications/", logg)
}

func newWebSocketStream(socketURL, path string, logg *logger.Logger) (*WebSocketStream, error) {
	base, err := url.Parse(strings.TrimRight(socketURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing socket url: %w", err)
	}
	if base.Scheme != "ws" && base.Scheme != "wss" {
		return nil, fmt.Errorf("socket url must be ws(s), got %q", socketURL)
	}
	base.Path = strings.TrimRight(base.Path, "/") + path

	return &WebSocketStream{
		endpoint:    base.String(),
		logg:        logg,
		dialer:      websocket.DefaultDialer,
		backoffBase: reconnectBase,
		maxRedials:  reconnectAttempts,
	}, nil
}

// Connect dials the socket. The first dial is synchronous so the caller
// knows whether push mode came up; reconnects after that happen in the
// background with backoff.
func (s *WebSocketStream) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("stream already connected")
	}
	s.degraded = false
	s.mu.Unlock()

	conn, _, err := s.dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		s.setDegraded(true)
		return fmt.Errorf("dialing %s: %w", s.endpoint, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	events := make(chan Event, 16)

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.done = done
	s.events = events
	s.mu.Unlock()

	go s.readLoop(runCtx, conn, done, events)
	return nil
}

// Events delivers inbound messages. Each Connect starts a fresh channel;
// it closes when the stream shuts down for good.
func (s *WebSocketStream) Events() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

// Degraded reports whether the stream has given up on the socket. The UI
// stays usable; sends still go over HTTP.
func (s *WebSocketStream) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Close tears the stream down. Late frames after Close are dropped, never
// delivered.
func (s *WebSocketStream) Close() error {
	s.mu.Lock()
	cancel := s.cancel
	conn := s.conn
	done := s.done
	s.cancel = nil
	s.conn = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	var errs error
	if conn != nil {
		errs = multierr.Append(errs, conn.Close())
	}
	<-done
	return errs
}

func (s *WebSocketStream) readLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}, events chan Event) {
	defer func() {
		s.mu.Lock()
		if s.done == done {
			s.cancel()
			s.conn = nil
			s.cancel = nil
			s.done = nil
		}
		s.mu.Unlock()
		close(events)
		close(done)
	}()

	for {
		if err := s.consume(ctx, conn, events); err != nil {
			if ctx.Err() != nil {
				return
			}
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("chat socket dropped: %v", err))
			}
		}

		next, err := s.redial(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.setDegraded(true)
				if s.logg != nil {
					s.logg.Warn(ctx, fmt.Sprintf("chat socket reconnect exhausted: %v", err))
				}
			}
			return
		}
		conn = next
	}
}

// consume reads frames until the connection fails or the context ends.
func (s *WebSocketStream) consume(ctx context.Context, conn *websocket.Conn, events chan Event) error {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg Message
		if err := json.Unmarshal(frame, &msg); err != nil {
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("discarding malformed frame: %v", err))
			}
			continue
		}

		select {
		case events <- Event{Kind: EventAppend, Message: msg, Raw: frame}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *WebSocketStream) redial(ctx context.Context) (*websocket.Conn, error) {
	backoff := retry.NewExponential(s.backoffBase)
	backoff = retry.WithCappedDuration(reconnectCap, backoff)
	backoff = retry.WithJitter(reconnectJitter, backoff)
	backoff = retry.WithMaxRetries(s.maxRedials, backoff)

	var conn *websocket.Conn
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		dialed, _, err := s.dialer.DialContext(ctx, s.endpoint, nil)
		if err != nil {
			return retry.RetryableError(err)
		}
		conn = dialed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return conn, nil
}

func (s *WebSocketStream) setDegraded(degraded bool) {
	s.mu.Lock()
	s.degraded = degraded
	s.mu.Unlock()
}
