package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jsamuelsen/session-relay/internal/domain"
	"github.com/jsamuelsen/session-relay/internal/ports"
)

// Hash fields of the session key.
const (
	fieldAccessToken  = "access_token"
	fieldRefreshToken = "refresh_token"
	fieldUserID       = "user_id"
	fieldUser         = "user"
	fieldIssuedAt     = "issued_at"
)

const (
	// renewalLockSuffix names the lock key next to the session hash.
	renewalLockSuffix = ":renewal-lock"

	lockPollInterval = 50 * time.Millisecond
)

// releaseLock deletes the lock only while it still holds our owner token,
// so an expired lock taken over by another relay is left alone.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Key is the hash holding the session.
	Key string
}

// RedisStore keeps the session in a Redis hash so several relay instances
// share one session. Updates are a single HSET; renewals across instances
// are serialized by AcquireRenewal.
type RedisStore struct {
	client *redis.Client
	key    string
}

var (
	_ Store               = (*RedisStore)(nil)
	_ ports.RenewalLocker = (*RedisStore)(nil)
)

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" || cfg.Key == "" {
		return nil, errors.New("redis address and key are required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, unavailable("connecting to redis", err)
	}

	return &RedisStore{client: client, key: cfg.Key}, nil
}

// AccessToken reads the access_token field of the session hash.
func (s *RedisStore) AccessToken(ctx context.Context) (string, error) {
	return s.field(ctx, fieldAccessToken)
}

// RefreshToken reads the refresh_token field of the session hash.
func (s *RedisStore) RefreshToken(ctx context.Context) (string, error) {
	return s.field(ctx, fieldRefreshToken)
}

// SetCredentials writes the non-empty fields of update with one HSET, so
// fields the update omits keep their stored values.
func (s *RedisStore) SetCredentials(ctx context.Context, update domain.CredentialUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}

	values := map[string]any{fieldAccessToken: update.AccessToken}
	if update.RefreshToken != "" {
		values[fieldRefreshToken] = update.RefreshToken
	}

	if update.UserID != "" {
		values[fieldUserID] = update.UserID
	}

	if update.UserData != nil {
		values[fieldUser] = string(update.UserData)
	}

	if !update.IssuedAt.IsZero() {
		values[fieldIssuedAt] = update.IssuedAt.UTC().Format(time.RFC3339Nano)
	}

	if err := s.client.HSet(ctx, s.key, values).Err(); err != nil {
		return unavailable("writing session", err)
	}

	return nil
}

// Clear deletes the session hash.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return unavailable("clearing session", err)
	}

	return nil
}

// Snapshot reads every field of the session hash.
func (s *RedisStore) Snapshot(ctx context.Context) (domain.Credentials, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return domain.Credentials{}, unavailable("reading session", err)
	}

	return decodeHash(fields)
}

// AcquireRenewal takes the session's renewal lock with SET NX PX, polling
// until it is free or ctx ends. Implements ports.RenewalLocker.
func (s *RedisStore) AcquireRenewal(ctx context.Context, ttl time.Duration) (ports.ReleaseFunc, error) {
	key := s.key + renewalLockSuffix
	owner := uuid.NewString()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		acquired, err := s.client.SetNX(ctx, key, owner, ttl).Result()
		if err != nil {
			return nil, unavailable("acquiring renewal lock", err)
		}

		if acquired {
			return func(ctx context.Context) error {
				if err := releaseLock.Run(ctx, s.client, []string{key}, owner).Err(); err != nil {
					return unavailable("releasing renewal lock", err)
				}

				return nil
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for renewal lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Name implements ports.HealthChecker.
func (s *RedisStore) Name() string { return checkName }

// Check pings the server.
func (s *RedisStore) Check(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("redis ping", err)
	}

	return nil
}

// Close closes the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) field(ctx context.Context, name string) (string, error) {
	v, err := s.client.HGet(ctx, s.key, name).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}

	if err != nil {
		return "", unavailable("reading "+name, err)
	}

	return v, nil
}

// decodeHash maps hash fields to credentials.
func decodeHash(fields map[string]string) (domain.Credentials, error) {
	creds := domain.Credentials{
		AccessToken:  fields[fieldAccessToken],
		RefreshToken: fields[fieldRefreshToken],
		UserID:       fields[fieldUserID],
	}

	if user := fields[fieldUser]; user != "" {
		if !json.Valid([]byte(user)) {
			return domain.Credentials{}, fmt.Errorf("%w: user snapshot is not JSON", ErrStoreUnavailable)
		}

		creds.UserData = json.RawMessage(user)
	}

	if issued := fields[fieldIssuedAt]; issued != "" {
		t, err := time.Parse(time.RFC3339Nano, issued)
		if err != nil {
			return domain.Credentials{}, unavailable("parsing issued_at", err)
		}

		creds.IssuedAt = t
	}

	return creds, nil
}
