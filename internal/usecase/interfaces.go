package usecase

import (
	"context"
	"time"

	"github.com/iho/ledgercal/internal/domain"
)

// SnapshotSource supplies the current ledger snapshot. Implementations
// own fetching and version assignment; Latest must return the same
// snapshot value until a new fetch cycle produces one with a greater
// version token.
type SnapshotSource interface {
	Latest(ctx context.Context) (*domain.Snapshot, error)
	Refresh(ctx context.Context) (*domain.Snapshot, error)
}

// Cache defines caching operations for derived query results. Get
// reports a miss with ok=false rather than an error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
