package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flight_routes/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// metric operation labels
const (
	opGet    = "get"
	opSet    = "set"
	opDelete = "delete"
	opInfo   = "info"
)

type RedisCache struct {
	c *redis.Client
}

// NewRedisCache connects to addr and pings it before returning.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{c: rdb}, nil
}

func (r *RedisCache) Close() error { return r.c.Close() }

func (r *RedisCache) RawClient() *redis.Client { return r.c }

func (r *RedisCache) Get(ctx context.Context, key string) (b []byte, ok bool, err error) {
	defer observe(opGet, time.Now(), &err)

	b, err = r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// SetIndexed writes key and adds it to index in one MULTI/EXEC. The index
// lives as long as its newest member.
func (r *RedisCache) SetIndexed(ctx context.Context, index, key string, value []byte, ttl time.Duration) (err error) {
	defer observe(opSet, time.Now(), &err)

	_, err = r.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key, value, ttl)
		p.SAdd(ctx, index, key)
		p.Expire(ctx, index, ttl)
		return nil
	})
	return err
}

// DropIndex deletes every key recorded in index, then the index itself, and
// returns how many members it had.
func (r *RedisCache) DropIndex(ctx context.Context, index string) (n int, err error) {
	defer observe(opDelete, time.Now(), &err)

	keys, err := r.c.SMembers(ctx, index).Result()
	if err != nil {
		return 0, err
	}

	_, err = r.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if len(keys) > 0 {
			p.Del(ctx, keys...)
		}
		p.Del(ctx, index)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// observe is deferred with the call's start time and its named error.
func observe(op string, start time.Time, err *error) {
	metrics.ObserveRedisOp(op, time.Since(start), *err)
}
