package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"flight_routes/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
)

const outboxTable = "outbox_messages"

// outboxColumns match the db tags of models.OutboxMessage.
var outboxColumns = []string{
	"id",
	"message_id::text AS message_id",
	"topic",
	"message_key",
	"payload",
	"status",
	"retry_count",
	"created_at",
	"sent_at",
	"last_error",
}

// OutboxRepository keeps flight events until the sender has published them.
type OutboxRepository struct {
	db         DBTX
	sb         sq.StatementBuilderType
	maxRetries int
}

func NewOutboxRepository(db DBTX, maxRetries int) *OutboxRepository {
	if maxRetries <= 0 {
		maxRetries = 10
	}
	return &OutboxRepository{
		db:         db,
		sb:         sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		maxRetries: maxRetries,
	}
}

// CreateMessage stores msg as pending. It is meant to run inside the
// transaction that made the change the message describes.
func (r *OutboxRepository) CreateMessage(ctx context.Context, db DBTX, msg *models.OutboxMessage) error {
	if err := checkOutboxMessage(msg); err != nil {
		return err
	}

	sqlStr, args, err := r.sb.
		Insert(outboxTable).
		Columns("topic", "message_key", "payload", "status", "retry_count").
		Values(msg.Topic, msg.Key, []byte(msg.Payload), OutboxStatusPending, 0).
		Suffix("RETURNING id, message_id::text, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build outbox insert: %w", err)
	}

	if err := db.QueryRow(ctx, sqlStr, args...).Scan(&msg.ID, &msg.MessageID, &msg.CreatedAt); err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}

	msg.Status = OutboxStatusPending
	msg.RetryCount = 0
	msg.SentAt = nil
	msg.LastError = nil
	return nil
}

func checkOutboxMessage(msg *models.OutboxMessage) error {
	switch {
	case msg == nil:
		return fmt.Errorf("outbox message is nil")
	case msg.Topic == "":
		return fmt.Errorf("topic is empty")
	case len(msg.Payload) == 0:
		return fmt.Errorf("payload is empty")
	case !json.Valid(msg.Payload):
		return fmt.Errorf("payload is not valid json")
	}
	return nil
}

// GetPendingMessages returns up to limit pending messages, oldest first.
func (r *OutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	sqlStr, args, err := r.pendingQuery(limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build outbox select pending: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query outbox pending: %w", err)
	}

	msgs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.OutboxMessage])
	if err != nil {
		return nil, fmt.Errorf("collect outbox rows: %w", err)
	}
	return msgs, nil
}

func (r *OutboxRepository) pendingQuery(limit int) sq.SelectBuilder {
	if limit <= 0 {
		limit = 100
	}
	return r.sb.
		Select(outboxColumns...).
		From(outboxTable).
		Where(sq.Eq{"status": OutboxStatusPending}).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(limit))
}

func (r *OutboxRepository) MarkAsSent(ctx context.Context, messageID string) error {
	if messageID == "" {
		return fmt.Errorf("messageID is empty")
	}
	return r.updateOne(ctx, r.markSentQuery(messageID), "mark outbox sent")
}

func (r *OutboxRepository) markSentQuery(messageID string) sq.UpdateBuilder {
	return r.sb.
		Update(outboxTable).
		Set("status", OutboxStatusSent).
		Set("sent_at", sq.Expr("NOW()")).
		Set("last_error", nil).
		Where(sq.Eq{"message_id": messageID})
}

// MarkAsFailed bumps retry_count and records errorMsg. The message turns
// failed once retry_count reaches the configured limit.
func (r *OutboxRepository) MarkAsFailed(ctx context.Context, messageID string, errorMsg string) error {
	if messageID == "" {
		return fmt.Errorf("messageID is empty")
	}
	if errorMsg == "" {
		errorMsg = "unknown error"
	}
	return r.updateOne(ctx, r.markFailedQuery(messageID, errorMsg), "mark outbox failed")
}

func (r *OutboxRepository) markFailedQuery(messageID, errorMsg string) sq.UpdateBuilder {
	return r.sb.
		Update(outboxTable).
		Set("retry_count", sq.Expr("retry_count + 1")).
		Set("last_error", errorMsg).
		Set("status", sq.Expr(
			"CASE WHEN (retry_count + 1) >= ? THEN ? ELSE ? END",
			r.maxRetries, OutboxStatusFailed, OutboxStatusPending,
		)).
		Where(sq.Eq{"message_id": messageID})
}

// updateOne runs q and reports ErrNotFound when no row matched.
func (r *OutboxRepository) updateOne(ctx context.Context, q sq.Sqlizer, op string) error {
	n, err := r.exec(ctx, q, op)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OutboxRepository) exec(ctx context.Context, q sq.Sqlizer, op string) (int64, error) {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}

// CleanupOldMessages deletes sent messages older than retentionDays.
func (r *OutboxRepository) CleanupOldMessages(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	n, err := r.exec(ctx, r.cleanupQuery(retentionDays), "cleanup outbox")
	return int(n), err
}

func (r *OutboxRepository) cleanupQuery(retentionDays int) sq.DeleteBuilder {
	return r.sb.
		Delete(outboxTable).
		Where(sq.Eq{"status": OutboxStatusSent}).
		Where(sq.Expr("created_at < NOW() - (? * INTERVAL '1 day')", retentionDays))
}

// CountByStatus returns the number of outbox messages per status.
func (r *OutboxRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	sqlStr, args, err := r.sb.
		Select("status", "COUNT(*)").
		From(outboxTable).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build outbox count: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("count outbox: %w", err)
	}

	res := make(map[string]int64)
	var (
		status string
		n      int64
	)
	_, err = pgx.ForEachRow(rows, []any{&status, &n}, func() error {
		res[status] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan outbox counts: %w", err)
	}
	return res, nil
}
