package cache

import (
	"context"
	"time"
)

// Cache is the key-value surface behind RouteCache. Entries written with
// SetIndexed are recorded in an index set so DropIndex can remove them as a
// group without scanning the keyspace.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetIndexed(ctx context.Context, index, key string, value []byte, ttl time.Duration) error
	DropIndex(ctx context.Context, index string) (int, error)
	Close() error
}
