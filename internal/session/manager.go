package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aryannishad-86/thriftgram/internal/storage"
	"github.com/aryannishad-86/thriftgram/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the locally persisted login state. Tokens are issued by the
// backend; this client only stores and presents them.
type Identity struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Username     string `json:"username"`
}

// Manager owns identity state. It implements rest.TokenSource, and its
// Clear method is wired as the API client's unauthorized hook: a 401
// anywhere wipes the whole session rather than limping on.
type Manager struct {
	store storage.Store
	logg  *logger.Logger

	mu      sync.RWMutex
	current Identity
}

func NewManager(store storage.Store, logg *logger.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	return &Manager{store: store, logg: logg}, nil
}

// Load restores a persisted identity. Missing or corrupt state is not an
// error: the user is simply logged out.
func (m *Manager) Load(ctx context.Context) {
	blob, err := m.store.Read(ctx, storage.KeyAuth)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && m.logg != nil {
			m.logg.Warn(ctx, fmt.Sprintf("reading saved session: %v", err))
		}
		return
	}

	var identity Identity
	if err := json.Unmarshal(blob, &identity); err != nil {
		if m.logg != nil {
			m.logg.Warn(ctx, fmt.Sprintf("corrupt saved session discarded: %v", err))
		}
		return
	}

	m.mu.Lock()
	m.current = identity
	m.mu.Unlock()
}

// Set stores a fresh identity and persists it.
func (m *Manager) Set(ctx context.Context, identity Identity) error {
	m.mu.Lock()
	m.current = identity
	m.mu.Unlock()

	blob, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := m.store.Write(ctx, storage.KeyAuth, blob); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}
	return nil
}

// Token returns the current access token; empty when logged out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.AccessToken
}

func (m *Manager) Username() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Username
}

func (m *Manager) Authenticated() bool {
	return m.Token() != ""
}

// Clear wipes both in-memory and persisted identity. Storage failures are
// logged and swallowed: the in-memory wipe already logged the user out.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	m.current = Identity{}
	m.mu.Unlock()

	if err := m.store.Delete(ctx, storage.KeyAuth); err != nil && m.logg != nil {
		m.logg.Warn(ctx, fmt.Sprintf("clearing saved session: %v", err))
	}
}

// ExpiresSoon reports whether the access token's exp claim falls within the
// margin. The parse is unverified: signature checks are the server's job,
// this is only a hint to prompt re-login before a request bounces.
func (m *Manager) ExpiresSoon(now time.Time, margin time.Duration) bool {
	token := m.Token()
	if token == "" {
		return false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return true
	}
	expiry, err := parsed.Claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return false
	}
	return now.Add(margin).After(expiry.Time)
}
