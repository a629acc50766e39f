package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aryannishad-86/thriftgram/internal/storage"
	pkgerrors "github.com/aryannishad-86/thriftgram/pkg/errors"
	"github.com/aryannishad-86/thriftgram/pkg/logger"
)

// Line is one entry in the cart. Adding the same listing twice produces two
// lines; the cart never merges by id.
type Line struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	ImageURL       string `json:"image_url"`
	Size           string `json:"size,omitempty"`
}

// Store is the local cart. It is not a source of truth: the server-side
// checkout re-prices everything, so persistence here is best-effort and
// failures never reach the caller.
type Store struct {
	persist storage.Store
	logg    *logger.Logger

	mu     sync.Mutex
	lines  []Line
	onOpen func()
}

func NewStore(persist storage.Store, logg *logger.Logger) (*Store, error) {
	if persist == nil {
		return nil, fmt.Errorf("storage is required")
	}
	return &Store{persist: persist, logg: logg}, nil
}

// OnOpen registers the open-cart-panel side effect fired by every AddLine.
func (s *Store) OnOpen(fn func()) {
	s.mu.Lock()
	s.onOpen = fn
	s.mu.Unlock()
}

// Load restores the persisted cart once at startup. A missing or corrupt
// blob leaves the cart empty; the user just starts fresh.
func (s *Store) Load(ctx context.Context) {
	blob, err := s.persist.Read(ctx, storage.KeyCart)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("reading saved cart: %v", err))
		}
		return
	}

	var lines []Line
	if err := json.Unmarshal(blob, &lines); err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("corrupt saved cart discarded: %v", err))
		}
		return
	}

	s.mu.Lock()
	s.lines = lines
	s.mu.Unlock()
}

// AddLine appends unconditionally, persists, and fires the open-panel hook.
// The only rejected input is a negative unit price.
func (s *Store) AddLine(ctx context.Context, line Line) error {
	if line.UnitPriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}

	s.mu.Lock()
	s.lines = append(s.lines, line)
	open := s.onOpen
	s.persistLocked(ctx)
	s.mu.Unlock()

	if open != nil {
		open()
	}
	return nil
}

// RemoveLine drops every line with the given id; absent ids are a no-op.
func (s *Store) RemoveLine(ctx context.Context, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.lines[:0]
	for _, line := range s.lines {
		if line.ID != id {
			kept = append(kept, line)
		}
	}
	s.lines = kept
	s.persistLocked(ctx)
}

// Lines returns a copy of the cart in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Total recomputes on every read so it can never go stale.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, line := range s.lines {
		total += line.UnitPriceCents
	}
	return total
}

// Clear empties the cart, for checkout completion.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	s.persistLocked(ctx)
}

// persistLocked snapshots the cart to storage. Failures are logged and
// swallowed; durability here is best-effort.
func (s *Store) persistLocked(ctx context.Context) {
	lines := s.lines
	if lines == nil {
		lines = []Line{}
	}
	blob, err := json.Marshal(lines)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("encoding cart: %v", err))
		}
		return
	}
	if err := s.persist.Write(ctx, storage.KeyCart, blob); err != nil && s.logg != nil {
		s.logg.Warn(ctx, fmt.Sprintf("persisting cart: %v", err))
	}
}
