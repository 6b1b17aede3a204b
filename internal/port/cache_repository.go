package port

import (
	"context"
	"time"
)

type CacheRepository interface {
	// AcquireLock takes a keyed lock, returns false if another holder owns it
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// ReleaseLock releases the lock only if value still matches
	ReleaseLock(ctx context.Context, key, value string) error

	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
