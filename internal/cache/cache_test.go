package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"flight_routes/internal/routing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCache is an in-memory Cache for tests.
type memCache struct {
	kv     map[string][]byte
	sets   map[string]map[string]struct{}
	getErr error
}

func newMemCache() *memCache {
	return &memCache{
		kv:   make(map[string][]byte),
		sets: make(map[string]map[string]struct{}),
	}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	b, ok := m.kv[key]
	return b, ok, nil
}

func (m *memCache) SetIndexed(_ context.Context, index, key string, value []byte, _ time.Duration) error {
	m.kv[key] = value
	if m.sets[index] == nil {
		m.sets[index] = make(map[string]struct{})
	}
	m.sets[index][key] = struct{}{}
	return nil
}

func (m *memCache) DropIndex(_ context.Context, index string) (int, error) {
	n := len(m.sets[index])
	for k := range m.sets[index] {
		delete(m.kv, k)
	}
	delete(m.sets, index)
	return n, nil
}

func (m *memCache) Close() error { return nil }

func TestRoutesKey(t *testing.T) {
	assert.Equal(t, "flight:routes:NYC:SEA:hops=all", RoutesKey(" nyc", "SEA", 0, false))
	assert.Equal(t, "flight:routes:NYC:SEA:hops=2", RoutesKey("NYC", "sea", 2, true))
	assert.Equal(t, "flight:routes:A%2FB:SEA:hops=all", RoutesKey("a/b", "SEA", 7, false))
}

func TestRouteCache_PutGetInvalidate(t *testing.T) {
	ctx := context.Background()
	mc := newMemCache()
	rc := NewRouteCache(mc, time.Minute)

	routes := []routing.Route{
		{Cities: []string{"NYC", "LAX"}, TotalPrice: 300},
		{Cities: []string{"NYC", "CHI", "LAX"}, TotalPrice: 350},
	}
	k1 := RoutesKey("NYC", "LAX", 0, false)
	k2 := RoutesKey("NYC", "LAX", 1, true)

	_, ok, err := rc.GetRoutes(ctx, k1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rc.PutRoutes(ctx, k1, routes))
	require.NoError(t, rc.PutRoutes(ctx, k2, routes[:1]))
	assert.Len(t, mc.sets[RouteKeysSetKey], 2)

	got, ok, err := rc.GetRoutes(ctx, k1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, routes, got)

	require.NoError(t, rc.InvalidateRoutes(ctx))

	for _, k := range []string{k1, k2} {
		_, ok, err = rc.GetRoutes(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Empty(t, mc.sets)
}

func TestRouteCache_EmptyResultIsCached(t *testing.T) {
	ctx := context.Background()
	rc := NewRouteCache(newMemCache(), 0)

	require.NoError(t, rc.PutRoutes(ctx, "k", []routing.Route{}))

	got, ok, err := rc.GetRoutes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRouteCache_CorruptEntryIsMiss(t *testing.T) {
	mc := newMemCache()
	mc.kv["k"] = []byte("{not json")

	_, ok, err := NewRouteCache(mc, time.Minute).GetRoutes(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRouteCache_GetError(t *testing.T) {
	mc := newMemCache()
	mc.getErr = errors.New("redis down")

	_, _, err := NewRouteCache(mc, time.Minute).GetRoutes(context.Background(), "k")
	assert.EqualError(t, err, "redis down")
}

func TestParseUsedMemory(t *testing.T) {
	info := "# Memory\r\nused_memory:1048576\r\nused_memory_human:1.00M\r\n"

	n, ok := parseUsedMemory(info)
	assert.True(t, ok)
	assert.Equal(t, int64(1048576), n)

	_, ok = parseUsedMemory("# Memory\r\n")
	assert.False(t, ok)
}
