package wishlist

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/aryannishad-86/thriftgram/internal/catalog"
	"github.com/aryannishad-86/thriftgram/internal/optimistic"
)

// Entry is one saved listing as the wishlist endpoint returns it.
type Entry struct {
	ID      int64                  `json:"id"`
	Item    catalog.ListingSummary `json:"item"`
	AddedAt time.Time              `json:"added_at"`
}

type httpClient interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, body, out any) error
}

type toggleInput struct {
	Item int64 `json:"item"`
}

// Service toggles and lists wishlist membership. Toggles are optimistic:
// the local flag flips immediately, the server call confirms it, and a
// failure flips it back. One pending toggle per item.
type Service struct {
	http    httpClient
	toggler *optimistic.Toggler

	mu     sync.Mutex
	wished map[int64]bool
}

func NewService(http httpClient) (*Service, error) {
	if http == nil {
		return nil, fmt.Errorf("http client is required")
	}
	return &Service{
		http:    http,
		toggler: optimistic.NewToggler(),
		wished:  map[int64]bool{},
	}, nil
}

// List fetches the saved entries and seeds the local membership flags.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := s.http.Get(ctx, "/wishlist/", nil, &entries); err != nil {
		return nil, err
	}

	s.mu.Lock()
	for _, entry := range entries {
		s.wished[entry.Item.ID] = true
	}
	s.mu.Unlock()
	return entries, nil
}

// Toggle flips wishlist membership for one item. Removal carries the item
// id in the request body, matching the remove endpoint's contract.
func (s *Service) Toggle(ctx context.Context, itemID int64) error {
	wasWished := s.IsWished(itemID)

	apply := func() { s.setWished(itemID, !wasWished) }
	rollback := func() { s.setWished(itemID, wasWished) }
	call := func(ctx context.Context) error {
		if wasWished {
			return s.http.Delete(ctx, "/wishlist/remove/", toggleInput{Item: itemID}, nil)
		}
		return s.http.Post(ctx, "/wishlist/", toggleInput{Item: itemID}, nil)
	}

	return s.toggler.Do(ctx, fmt.Sprintf("wishlist:%d", itemID), apply, rollback, call)
}

// IsWished reports the local membership flag for an item.
func (s *Service) IsWished(itemID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wished[itemID]
}

func (s *Service) setWished(itemID int64, wished bool) {
	s.mu.Lock()
	s.wished[itemID] = wished
	s.mu.Unlock()
}
