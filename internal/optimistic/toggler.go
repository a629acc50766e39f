package optimistic

import (
	"context"
	"errors"
	"sync"
)

// ErrInFlight is returned when a mutation is attempted on an entity that
// already has one pending. The caller drops the attempt; nothing changed.
var ErrInFlight = errors.New("optimistic: mutation already in flight")

// Toggler runs optimistic mutations: apply locally first, confirm over the
// network, roll back verbatim on failure. A per-entity guard serializes
// toggles so a second tap cannot race the first one's completion — the
// caller picks the forward call from the previous state, and the guard is
// what keeps that previous state trustworthy.
type Toggler struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewToggler() *Toggler {
	return &Toggler{inflight: map[string]struct{}{}}
}

// Do applies the mutation for one entity. The sequence is:
// guard → apply → call → commit (nil) or rollback (call's error).
// While the call is pending, further Do invocations for the same entity
// return ErrInFlight without side effects. Distinct entities are independent.
func (t *Toggler) Do(ctx context.Context, entityID string, apply, rollback func(), call func(ctx context.Context) error) error {
	t.mu.Lock()
	if _, pending := t.inflight[entityID]; pending {
		t.mu.Unlock()
		return ErrInFlight
	}
	t.inflight[entityID] = struct{}{}
	t.mu.Unlock()

	apply()

	err := call(ctx)

	t.mu.Lock()
	delete(t.inflight, entityID)
	t.mu.Unlock()

	if err != nil {
		rollback()
		return err
	}
	return nil
}

// Pending reports whether a mutation for the entity is still awaiting its
// network result.
func (t *Toggler) Pending(entityID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, pending := t.inflight[entityID]
	return pending
}
