package cache

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"flight_routes/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// StartRedisSizeCollector samples INFO memory every interval until ctx ends.
func StartRedisSizeCollector(ctx context.Context, client *redis.Client, interval time.Duration, logger *slog.Logger) {
	if client == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		update := func() {
			start := time.Now()
			info, err := client.Info(ctx, "memory").Result()
			observe(opInfo, start, &err)
			if err != nil {
				logger.Debug("redis info failed", slog.Any("err", err))
				return
			}
			if n, ok := parseUsedMemory(info); ok {
				metrics.SetRedisUsedBytes(n)
			}
		}

		update()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				update()
			}
		}
	}()
}

// parseUsedMemory finds the "used_memory:<bytes>" line of INFO memory.
func parseUsedMemory(info string) (int64, bool) {
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		v, ok := strings.CutPrefix(line, "used_memory:")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
