package metrics

import (
	"context"
	"log/slog"
	"time"
)

// StatsSource exposes the table counts sampled into gauges.
type StatsSource interface {
	CountFlights(ctx context.Context) (int64, error)
	CountOutboxByStatus(ctx context.Context) (map[string]int64, error)
}

// StartDBCollectors refreshes the database gauges every interval until ctx ends.
func StartDBCollectors(ctx context.Context, src StatsSource, interval time.Duration, logger *slog.Logger) {
	if src == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		UpdateDBGauges(ctx, src, logger)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				UpdateDBGauges(ctx, src, logger)
			}
		}
	}()
}

func UpdateDBGauges(ctx context.Context, src StatsSource, logger *slog.Logger) {
	if n, err := src.CountFlights(ctx); err != nil {
		logger.Warn("metrics: count flights", slog.Any("err", err))
	} else {
		SetFlightsStored(n)
	}

	counts, err := src.CountOutboxByStatus(ctx)
	if err != nil {
		logger.Warn("metrics: count outbox", slog.Any("err", err))
		return
	}
	for status, n := range counts {
		SetOutboxStatusCount(status, n)
	}
	SetOutboxPendingCount(counts["pending"])
}
