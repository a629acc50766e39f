package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/aryannishad-86/thriftgram/internal/catalog"
	"github.com/aryannishad-86/thriftgram/pkg/logger"
)

// State is the loader's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateLoadingMore
	StateExhausted
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateLoadingMore:
		return "loading_more"
	case StateExhausted:
		return "exhausted"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type lister interface {
	List(ctx context.Context, filters catalog.Filters, page, pageSize int) (catalog.Page, error)
}

// Loader drives page-number pagination over the feed. Appended pages keep
// server order and are never deduplicated; a page that comes back empty is
// treated as the authoritative end of data whatever the server's next flag
// said.
type Loader struct {
	api      lister
	logg     *logger.Logger
	pageSize int

	mu         sync.Mutex
	state      State
	filters    catalog.Filters
	items      []catalog.ListingSummary
	page       int
	hasMore    bool
	generation int
	lastErr    error
}

func NewLoader(api lister, pageSize int, logg *logger.Logger) (*Loader, error) {
	if api == nil {
		return nil, fmt.Errorf("catalog api is required")
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive")
	}
	return &Loader{api: api, pageSize: pageSize, logg: logg, state: StateIdle}, nil
}

// SetFilters unconditionally restarts at page 1, discarding everything
// loaded so far — even when the new filters equal the old ones. A fetch
// superseded by a newer SetFilters is discarded when it completes.
func (l *Loader) SetFilters(ctx context.Context, filters catalog.Filters) error {
	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.state = StateLoading
	l.filters = filters
	l.items = nil
	l.page = 0
	l.hasMore = false
	l.lastErr = nil
	l.mu.Unlock()

	page, err := l.api.List(ctx, filters, 1, l.pageSize)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		// A newer filter change owns the loader now.
		return nil
	}
	if err != nil {
		l.state = StateError
		l.lastErr = err
		if l.logg != nil {
			l.logg.Warn(ctx, fmt.Sprintf("loading feed page 1: %v", err))
		}
		return err
	}

	l.items = append([]catalog.ListingSummary(nil), page.Items...)
	l.page = 1
	l.hasMore = page.HasMore
	if len(page.Items) == 0 || !page.HasMore {
		l.state = StateExhausted
		l.hasMore = false
	} else {
		l.state = StateLoaded
	}
	return nil
}

// Retry re-runs the first page with the current filters. It is the recovery
// path out of StateError but works as a full reload from any state.
func (l *Loader) Retry(ctx context.Context) error {
	l.mu.Lock()
	filters := l.filters
	l.mu.Unlock()
	return l.SetFilters(ctx, filters)
}

// LoadMore appends the next page. The trigger is ignored unless the loader
// sits in StateLoaded with more pages available, so duplicate in-flight
// requests are impossible. A failed append logs, reverts to the previous
// loaded page, and returns the error so the caller can offer a retry.
func (l *Loader) LoadMore(ctx context.Context) error {
	l.mu.Lock()
	if l.state != StateLoaded || !l.hasMore {
		l.mu.Unlock()
		return nil
	}
	l.state = StateLoadingMore
	gen := l.generation
	filters := l.filters
	nextPage := l.page + 1
	l.mu.Unlock()

	page, err := l.api.List(ctx, filters, nextPage, l.pageSize)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		return nil
	}
	if err != nil {
		l.state = StateLoaded
		if l.logg != nil {
			l.logg.Warn(ctx, fmt.Sprintf("loading feed page %d: %v", nextPage, err))
		}
		return err
	}

	if len(page.Items) == 0 {
		l.state = StateExhausted
		l.hasMore = false
		return nil
	}

	l.items = append(l.items, page.Items...)
	l.page = nextPage
	l.hasMore = page.HasMore
	if page.HasMore {
		l.state = StateLoaded
	} else {
		l.state = StateExhausted
	}
	return nil
}

// Items returns a copy of everything loaded so far, in server order.
func (l *Loader) Items() []catalog.ListingSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]catalog.ListingSummary, len(l.items))
	copy(out, l.items)
	return out
}

func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loader) Page() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

func (l *Loader) Exhausted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == StateExhausted
}

// Err returns the first-page failure that put the loader in StateError.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}
