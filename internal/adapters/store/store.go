// Package store provides the credential store adapters: process memory, a
// private JSON file, and a shared Redis hash.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jsamuelsen/session-relay/internal/platform/config"
	"github.com/jsamuelsen/session-relay/internal/ports"
)

// checkName is the health check name shared by every driver.
const checkName = "credential-store"

// ErrStoreUnavailable is returned when the backing medium cannot be read or written.
var ErrStoreUnavailable = errors.New("credential store unavailable")

// Store is a credential store that reports its health and owns resources.
type Store interface {
	ports.CredentialStore
	ports.HealthChecker

	Close() error
}

// New opens the store selected by cfg.Driver.
func New(ctx context.Context, cfg *config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.StoreMemory, "":
		return NewMemoryStore(), nil
	case config.StoreFile:
		return NewFileStore(cfg.Path)
	case config.StoreRedis:
		return NewRedisStore(ctx, RedisConfig{Addr: cfg.RedisAddr, DB: cfg.RedisDB, Key: cfg.RedisKey})
	default:
		return nil, fmt.Errorf("unknown credential store driver %q", cfg.Driver)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
