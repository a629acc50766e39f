package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aryannishad-86/thriftgram/internal/storage"
	"github.com/aryannishad-86/thriftgram/pkg/logger"
)

// maxEntries caps the history; the oldest entry falls off the end.
const maxEntries = 10

// History is the recent-searches list: most recent first, at most ten
// entries, case-insensitive de-duplication on insert.
type History struct {
	persist storage.Store
	logg    *logger.Logger

	mu      sync.Mutex
	entries []string
}

func NewHistory(persist storage.Store, logg *logger.Logger) (*History, error) {
	if persist == nil {
		return nil, fmt.Errorf("storage is required")
	}
	return &History{persist: persist, logg: logg}, nil
}

// Load restores persisted history; missing or corrupt state starts empty.
func (h *History) Load(ctx context.Context) {
	blob, err := h.persist.Read(ctx, storage.KeySearchHistory)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && h.logg != nil {
			h.logg.Warn(ctx, fmt.Sprintf("reading search history: %v", err))
		}
		return
	}

	var entries []string
	if err := json.Unmarshal(blob, &entries); err != nil {
		if h.logg != nil {
			h.logg.Warn(ctx, fmt.Sprintf("corrupt search history discarded: %v", err))
		}
		return
	}

	h.mu.Lock()
	h.entries = entries
	h.mu.Unlock()
}

// Add records a query at the front. Blank queries are ignored; an existing
// entry matching case-insensitively is replaced by the new spelling.
func (h *History) Add(ctx context.Context, query string) {
	if strings.TrimSpace(query) == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	kept := make([]string, 0, len(h.entries)+1)
	kept = append(kept, query)
	for _, entry := range h.entries {
		if strings.EqualFold(entry, query) {
			continue
		}
		kept = append(kept, entry)
	}
	if len(kept) > maxEntries {
		kept = kept[:maxEntries]
	}
	h.entries = kept
	h.persistLocked(ctx)
}

// List returns the history, most recent first.
func (h *History) List() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Remove drops the exact entry, if present.
func (h *History) Remove(ctx context.Context, query string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.entries[:0]
	for _, entry := range h.entries {
		if entry != query {
			kept = append(kept, entry)
		}
	}
	h.entries = kept
	h.persistLocked(ctx)
}

// Clear wipes the history entirely.
func (h *History) Clear(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = nil
	if err := h.persist.Delete(ctx, storage.KeySearchHistory); err != nil && h.logg != nil {
		h.logg.Warn(ctx, fmt.Sprintf("clearing search history: %v", err))
	}
}

func (h *History) persistLocked(ctx context.Context) {
	entries := h.entries
	if entries == nil {
		entries = []string{}
	}
	blob, err := json.Marshal(entries)
	if err != nil {
		if h.logg != nil {
			h.logg.Warn(ctx, fmt.Sprintf("encoding search history: %v", err))
		}
		return
	}
	if err := h.persist.Write(ctx, storage.KeySearchHistory, blob); err != nil && h.logg != nil {
		h.logg.Warn(ctx, fmt.Sprintf("persisting search history: %v", err))
	}
}
