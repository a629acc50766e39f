package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aryannishad-86/thriftgram/internal/catalog"
)

type scriptedLister struct {
	calls     int
	responses []func(filters catalog.Filters, page, pageSize int) (catalog.Page, error)
	onCall    func(page int)
}

func (s *scriptedLister) List(_ context.Context, filters catalog.Filters, page, pageSize int) (catalog.Page, error) {
	if s.onCall != nil {
		s.onCall(page)
	}
	if s.calls >= len(s.responses) {
		return catalog.Page{}, fmt.Errorf("unexpected call %d", s.calls)
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp(filters, page, pageSize)
}

func listings(start, n int) []catalog.ListingSummary {
	out := make([]catalog.ListingSummary, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, catalog.ListingSummary{ID: int64(start + i)})
	}
	return out
}

func page(items []catalog.ListingSummary, hasMore bool) func(catalog.Filters, int, int) (catalog.Page, error) {
	return func(catalog.Filters, int, int) (catalog.Page, error) {
		return catalog.Page{Items: items, HasMore: hasMore}, nil
	}
}

func failure(err error) func(catalog.Filters, int, int) (catalog.Page, error) {
	return func(catalog.Filters, int, int) (catalog.Page, error) {
		return catalog.Page{}, err
	}
}

func TestLoadThenExhaust(t *testing.T) {
	t.Parallel()

	lister := &scriptedLister{responses: []func(catalog.Filters, int, int) (catalog.Page, error){
		page(listings(1, 20), true),
		page(listings(21, 5), false),
	}}
	loader, err := NewLoader(lister, 20, nil)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	ctx := context.Background()

	if err := loader.SetFilters(ctx, catalog.Filters{}); err != nil {
		t.Fatalf("SetFilters: %v", err)
	}
	if loader.State() != StateLoaded || loader.Exhausted() {
		t.Fatalf("expected loaded page 1, state=%s", loader.State())
	}
	if got := len(loader.Items()); got != 20 {
		t.Fatalf("expected 20 items, got %d", got)
	}

	if err := loader.LoadMore(ctx); err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	if got := len(loader.Items()); got != 25 {
		t.Fatalf("expected 25 items, got %d", got)
	}
	if !loader.Exhausted() {
		t.Fatalf("expected exhausted after null next, state=%s", loader.State())
	}

	// Further triggers must not issue requests.
	before := lister.calls
	for i := 0; i < 3; i++ {
		if err := loader.LoadMore(ctx); err != nil {
			t.Fatalf("LoadMore after exhaustion: %v", err)
		}
	}
	if lister.calls != before {
		t.Fatalf("expected no further requests, calls went %d -> %d", before, lister.calls)
	}
}

func TestZeroItemPageForcesExhaustionDespiteHasMore(t *testing.T) {
	t.Parallel()

	lister := &scriptedLister{responses: []func(catalog.Filters, int, int) (catalog.Page, error){
		page(listings(1, 20), true),
		page(nil, true), // server claims more, sends nothing
	}}
	loader, _ := NewLoader(lister, 20, nil)
	ctx := context.Background()

	if err := loader.SetFilters(ctx, catalog.Filters{}); err != nil {
		t.Fatalf("SetFilters: %v", err)
	}
	if err := loader.LoadMore(ctx); err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	if !loader.Exhausted() {
		t.Fatal("empty page must be authoritative end of data")
	}
	if got := len(loader.Items()); got != 20 {
		t.Fatalf("expected items unchanged, got %d", got)
	}
}

func TestEmptyFirstPageExhaustsImmediately(t *testing.T) {
	t.Parallel()

	lister := &scriptedLister{responses: []func(catalog.Filters, int, int) (catalog.Page, error){
		page(nil, false),
	}}
	loader, _ := NewLoader(lister, 20, nil)

	if err := loader.SetFilters(context.Background(), catalog.Filters{}); err != nil {
		t.Fatalf("SetFilters: %v", err)
	}
	if !loader.Exhausted() {
		t.Fatalf("expected exhausted, state=%s", loader.State())
	}
}

func TestFilterChangeResetsBeforeResolution(t *testing.T) {
	t.Parallel()

	var loader *Loader
	fetches := 0
	lister := &scriptedLister{responses: []func(catalog.Filters, int, int) (catalog.Page, error){
		page(listings(1, 20), true),
		page(listings(100, 20), true),
	}}
	lister.onCall = func(requestedPage int) {
		fetches++
		if fetches != 2 {
			return
		}
		// Observed mid-flight on the filter change: the previous items and
		// page counter are already gone before the new page resolves.
		if got := len(loader.Items()); got != 0 {
			t.Errorf("expected items reset before resolution, got %d", got)
		}
		if got := loader.Page(); got != 0 {
			t.Errorf("expected page counter reset before resolution, got %d", got)
		}
	}

	loader, err := NewLoader(lister, 20, nil)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	ctx := context.Background()
	if err := loader.SetFilters(ctx, catalog.Filters{}); err != nil {
		t.Fatalf("SetFilters: %v", err)
	}
	if err := loader.SetFilters(ctx, catalog.Filters{Query: "denim"}); err != nil {
		t.Fatalf("SetFilters: %v", err)
	}

	items := loader.Items()
	if len(items) != 20 || items[0].ID != 100 {
		t.Fatalf("expected replacement items, got %d starting at %v", len(items), items[0].ID)
	}
	if loader.Page() != 1 {
		t.Fatalf("expected page 1 after filter change, got %d", loader.Page())
	}
}

func TestFirstPageFailureEntersErrorAndRetryRecovers(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	lister := &scriptedLister{responses: []func(catalog.Filters, int, int) (catalog.Page, error){
		failure(boom),
		page(listings(1, 5), false),
	}}
	loader, _ := NewLoader(lister, 20, nil)
	ctx := context.Background()

	if err := loader.SetFilters(ctx, catalog.Filters{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if loader.State() != StateError || !errors.Is(loader.Err(), boom) {
		t.Fatalf("expected error state, state=%s err=%v", loader.State(), loader.Err())
	}

	if err := loader.Retry(ctx); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if got := len(loader.Items()); got != 5 {
		t.Fatalf("expected 5 items after retry, got %d", got)
	}
	if loader.Err() != nil {
		t.Fatalf("expected cleared error, got %v", loader.Err())
	}
}

func TestLoadMoreFailureRevertsToLoaded(t *testing.T) {
	t.Parallel()

	boom := errors.New("502")
	lister := &scriptedLister{responses: []func(catalog.Filters, int, int) (catalog.Page, error){
		page(listings(1, 20), true),
		failure(boom),
		page(listings(21, 20), true),
	}}
	loader, _ := NewLoader(lister, 20, nil)
	ctx := context.Background()

	if err := loader.SetFilters(ctx, catalog.Filters{}); err != nil {
		t.Fatalf("SetFilters: %v", err)
	}
	if err := loader.LoadMore(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if loader.State() != StateLoaded || loader.Page() != 1 {
		t.Fatalf("expected revert to loaded page 1, state=%s page=%d", loader.State(), loader.Page())
	}
	if got := len(loader.Items()); got != 20 {
		t.Fatalf("expected items untouched, got %d", got)
	}

	// The trigger can simply fire again.
	if err := loader.LoadMore(ctx); err != nil {
		t.Fatalf("LoadMore retry: %v", err)
	}
	if got := len(loader.Items()); got != 40 {
		t.Fatalf("expected 40 items after retried load-more, got %d", got)
	}
	if loader.Page() != 2 {
		t.Fatalf("expected page 2, got %d", loader.Page())
	}
}

func TestLoadMoreIgnoredBeforeFirstLoad(t *testing.T) {
	t.Parallel()

	lister := &scriptedLister{}
	loader, _ := NewLoader(lister, 20, nil)

	if err := loader.LoadMore(context.Background()); err != nil {
		t.Fatalf("LoadMore on idle loader: %v", err)
	}
	if lister.calls != 0 {
		t.Fatalf("expected no requests, got %d", lister.calls)
	}
}
