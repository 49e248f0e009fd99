package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"flight_routes/internal/metrics"
	"flight_routes/internal/models"
)

// OutboxStore is the part of the outbox repository the sender drives.
type OutboxStore interface {
	GetPendingMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error)
	MarkAsSent(ctx context.Context, messageID string) error
	MarkAsFailed(ctx context.Context, messageID string, errorMsg string) error
	CleanupOldMessages(ctx context.Context, retentionDays int) (int, error)
}

type Publisher interface {
	SendRaw(topic, key string, payload []byte) error
}

type OutboxSender struct {
	repo          OutboxStore
	producer      Publisher
	pollInterval  time.Duration
	batchSize     int
	retentionDays int
	maxRetries    int
	logger        *slog.Logger

	cleanupEvery time.Duration
}

func NewOutboxSender(
	repo OutboxStore,
	producer Publisher,
	pollInterval time.Duration,
	batchSize int,
	retentionDays int,
	maxRetries int,
	logger *slog.Logger,
) *OutboxSender {
	if maxRetries <= 0 {
		maxRetries = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if retentionDays < 0 {
		retentionDays = 0
	}

	return &OutboxSender{
		repo:          repo,
		producer:      producer,
		pollInterval:  pollInterval,
		batchSize:     batchSize,
		retentionDays: retentionDays,
		maxRetries:    maxRetries,
		logger:        logger,
		cleanupEvery:  time.Hour,
	}
}

// Start runs the relay loop in a goroutine until ctx is cancelled.
func (s *OutboxSender) Start(ctx context.Context) {
	go func() {
		s.logger.Info("outbox sender started")
		defer s.logger.Info("outbox sender stopped")

		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		cleanupTicker := time.NewTicker(s.cleanupEvery)
		defer cleanupTicker.Stop()

		s.flushOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.flushOnce(ctx)
			case <-cleanupTicker.C:
				s.cleanupOnce(ctx)
			}
		}
	}()
}

func (s *OutboxSender) flushOnce(ctx context.Context) {
	msgs, err := s.repo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("outbox get pending failed", slog.Any("err", err))
		}
		return
	}

	for _, m := range msgs {
		if err := s.sendOne(m); err != nil {
			// the repository flips the row to failed once retries run out
			if err2 := s.repo.MarkAsFailed(ctx, m.MessageID, err.Error()); err2 != nil {
				s.logger.Error("outbox mark failed error",
					slog.String("message_id", m.MessageID),
					slog.Any("err", err2),
				)
			}
			if m.RetryCount+1 >= s.maxRetries {
				metrics.IncOutboxFailed()
				s.logger.Warn("outbox message gave up",
					slog.String("message_id", m.MessageID),
					slog.Int("retries", m.RetryCount+1),
					slog.Any("err", err),
				)
			}
			continue
		}
		if err := s.repo.MarkAsSent(ctx, m.MessageID); err != nil {
			s.logger.Error("outbox mark sent failed",
				slog.String("message_id", m.MessageID),
				slog.Any("err", err),
			)
		}
	}
}

func (s *OutboxSender) sendOne(m *models.OutboxMessage) error {
	if m == nil {
		return fmt.Errorf("outbox message is nil")
	}
	if m.Topic == "" {
		return fmt.Errorf("outbox topic is empty")
	}
	if len(m.Payload) == 0 {
		return fmt.Errorf("outbox payload is empty")
	}

	metrics.ObserveOutboxLagSeconds(time.Since(m.CreatedAt).Seconds())
	start := time.Now()

	if err := s.producer.SendRaw(m.Topic, m.Key, m.Payload); err != nil {
		metrics.IncKafkaError("producer", "send")
		metrics.IncOutboxRetry()
		metrics.ObserveOutboxProcessing(time.Since(start))
		return fmt.Errorf("kafka send failed: %w", err)
	}

	metrics.IncKafkaSent()
	metrics.IncOutboxSent()
	metrics.ObserveOutboxProcessing(time.Since(start))
	return nil
}

func (s *OutboxSender) cleanupOnce(ctx context.Context) {
	if s.retentionDays <= 0 {
		return
	}
	n, err := s.repo.CleanupOldMessages(ctx, s.retentionDays)
	if err != nil {
		s.logger.Error("outbox cleanup failed", slog.Any("err", err))
		return
	}
	if n > 0 {
		s.logger.Info("outbox cleanup", slog.Int("deleted", n))
	}
}
