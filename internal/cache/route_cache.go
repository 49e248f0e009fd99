package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"flight_routes/internal/metrics"
	"flight_routes/internal/routing"
)

// RouteCache stores route search results on top of a Cache.
type RouteCache struct {
	c   Cache
	ttl time.Duration
}

func NewRouteCache(c Cache, ttl time.Duration) *RouteCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RouteCache{c: c, ttl: ttl}
}

// GetRoutes returns the cached result for key. A miss is (nil, false, nil).
func (r *RouteCache) GetRoutes(ctx context.Context, key string) ([]routing.Route, bool, error) {
	b, ok, err := r.c.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		metrics.IncRouteCacheLookup(false)
		return nil, false, nil
	}

	var routes []routing.Route
	if err := json.Unmarshal(b, &routes); err != nil {
		// a corrupt entry counts as a miss; the next put overwrites it
		metrics.IncRouteCacheLookup(false)
		return nil, false, nil
	}
	metrics.IncRouteCacheLookup(true)
	return routes, true, nil
}

// PutRoutes stores routes under key and records key in the route index.
func (r *RouteCache) PutRoutes(ctx context.Context, key string, routes []routing.Route) error {
	b, err := json.Marshal(routes)
	if err != nil {
		return fmt.Errorf("marshal routes: %w", err)
	}
	return r.c.SetIndexed(ctx, RouteKeysSetKey, key, b, r.ttl)
}

// InvalidateRoutes drops every cached route result.
func (r *RouteCache) InvalidateRoutes(ctx context.Context) error {
	_, err := r.c.DropIndex(ctx, RouteKeysSetKey)
	return err
}
