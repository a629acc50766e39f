package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aryannishad-86/thriftgram/pkg/config"
	"github.com/aryannishad-86/thriftgram/pkg/logger"
)

// ErrNotFound is returned when a key has never been written or was deleted.
var ErrNotFound = errors.New("storage: key not found")

// Store is the persistent key-value surface backing cart, session, and
// search-history state. Writes are whole-blob replacements; readers always
// see the last completed write.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Well-known keys. The search-history key keeps its historical name so
// existing local state survives upgrades.
const (
	KeyCart          = "cart"
	KeyAuth          = "auth"
	KeySearchHistory = "thriftgram_search_history"
)

// New builds the store selected by configuration.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverFile:
		return NewFileStore(cfg.Storage.Dir)
	case config.StorageDriverSQLite:
		return NewSQLiteStore(ctx, cfg.Storage.Dir, logg)
	case config.StorageDriverRedis:
		return NewRedisStore(ctx, cfg.Redis)
	case config.StorageDriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
