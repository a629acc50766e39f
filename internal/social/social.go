package social

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	pkgerrors "github.com/aryannishad-86/thriftgram/pkg/errors"

	"github.com/aryannishad-86/thriftgram/internal/optimistic"
)

// RankedUser is one leaderboard row, ordered by eco points.
type RankedUser struct {
	ID             int64   `json:"id"`
	Username       string  `json:"username"`
	ProfilePicture *string `json:"profile_picture"`
	EcoPoints      int64   `json:"eco_points"`
	CO2Saved       float64 `json:"co2_saved"`
	WaterSaved     float64 `json:"water_saved"`
}

type httpClient interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, body, out any) error
}

// Service covers follow relationships and the leaderboard. Follow toggles
// go through the optimistic helper keyed by handle, so a double tap on one
// profile cannot race itself while other profiles stay independent.
type Service struct {
	http    httpClient
	toggler *optimistic.Toggler

	mu        sync.Mutex
	following map[string]bool
}

func NewService(http httpClient) (*Service, error) {
	if http == nil {
		return nil, fmt.Errorf("http client is required")
	}
	return &Service{
		http:      http,
		toggler:   optimistic.NewToggler(),
		following: map[string]bool{},
	}, nil
}

// SeedFollowing records the server-reported state for a profile, the
// starting point a toggle flips from.
func (s *Service) SeedFollowing(handle string, following bool) {
	s.mu.Lock()
	s.following[handle] = following
	s.mu.Unlock()
}

// IsFollowing reports the local follow flag for a profile.
func (s *Service) IsFollowing(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.following[handle]
}

// ToggleFollow flips the follow state for one profile, optimistically.
func (s *Service) ToggleFollow(ctx context.Context, handle string) error {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}

	wasFollowing := s.IsFollowing(handle)

	apply := func() { s.setFollowing(handle, !wasFollowing) }
	rollback := func() { s.setFollowing(handle, wasFollowing) }
	call := func(ctx context.Context) error {
		escaped := url.PathEscape(handle)
		if wasFollowing {
			return s.http.Delete(ctx, fmt.Sprintf("/users/%s/unfollow/", escaped), nil, nil)
		}
		return s.http.Post(ctx, fmt.Sprintf("/users/%s/follow/", escaped), nil, nil)
	}

	return s.toggler.Do(ctx, "follow:"+handle, apply, rollback, call)
}

// Leaderboard fetches the ranked seller list.
func (s *Service) Leaderboard(ctx context.Context) ([]RankedUser, error) {
	var users []RankedUser
	if err := s.http.Get(ctx, "/leaderboard/", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Service) setFollowing(handle string, following bool) {
	s.mu.Lock()
	s.following[handle] = following
	s.mu.Unlock()
}
