package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"flight_routes/internal/metrics"

	"github.com/IBM/sarama"
)

// RouteInvalidator drops cached route results.
type RouteInvalidator interface {
	InvalidateRoutes(ctx context.Context) error
}

type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler sarama.ConsumerGroupHandler
	logger  *slog.Logger
}

func NewConsumer(
	brokers []string,
	groupID string,
	topic string,
	invalidator RouteInvalidator,
	logger *slog.Logger,
) (*Consumer, error) {
	cfg := sarama.NewConfig()

	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest

	// offsets are committed by hand after the cache is invalidated
	cfg.Consumer.Offsets.AutoCommit.Enable = false

	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{
		sarama.NewBalanceStrategyRange(),
	}
	cfg.Consumer.Group.Session.Timeout = 30 * time.Second
	cfg.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	cfg.Version = sarama.V2_8_0_0

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return newConsumer(group, topic, invalidator, logger), nil
}

func newConsumer(group sarama.ConsumerGroup, topic string, invalidator RouteInvalidator, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		group:  group,
		topic:  topic,
		logger: logger,
		handler: &eventHandler{
			invalidator: invalidator,
			logger:      logger,
			backoff:     retryBackoff,
		},
	}
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.logger.Error("consumer group error", slog.Any("err", err))
			metrics.IncKafkaError("consumer", "group")
		}
	}()

	for {
		err := c.group.Consume(ctx, []string{c.topic}, c.handler)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("consume loop error", slog.Any("err", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type eventHandler struct {
	invalidator RouteInvalidator
	logger      *slog.Logger
	backoff     func(attempt int) time.Duration
}

func (h *eventHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *eventHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *eventHandler) ConsumeClaim(
	session sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	for msg := range claim.Messages() {
		lag := claim.HighWaterMarkOffset() - msg.Offset - 1
		metrics.SetKafkaConsumerLag(msg.Topic, msg.Partition, lag)

		if err := h.processWithRetry(session.Context(), msg); err != nil {
			metrics.IncKafkaError("consumer", "process")
			// not marked: the message is read again after the next rebalance
			return err
		}

		session.MarkMessage(msg, "")
		session.Commit()
	}
	return nil
}

func (h *eventHandler) processWithRetry(ctx context.Context, m *sarama.ConsumerMessage) error {
	ev, err := DecodeFlightEvent(m.Value)
	if err != nil {
		// a malformed event will never succeed; skip it
		metrics.IncKafkaError("consumer", "decode")
		h.logger.Warn("skip undecodable flight event",
			slog.String("topic", m.Topic),
			slog.Int("partition", int(m.Partition)),
			slog.Int64("offset", m.Offset),
			slog.Any("err", err),
		)
		return nil
	}

	for attempt := 1; ; attempt++ {
		err := h.invalidator.InvalidateRoutes(ctx)
		if err == nil {
			metrics.IncKafkaProcessed(ev.Type)
			h.logger.Debug("route cache invalidated",
				slog.String("event_id", ev.EventID),
				slog.String("type", ev.Type),
			)
			return nil
		}

		backoff := h.backoff(attempt)
		h.logger.Warn("invalidate routes failed",
			slog.String("event_id", ev.EventID),
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", backoff),
			slog.Any("err", err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// retryBackoff grows linearly from 1s and caps at 30s.
func retryBackoff(attempt int) time.Duration {
	d := time.Duration(attempt) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
