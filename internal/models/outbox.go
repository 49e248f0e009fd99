package models

import (
	"encoding/json"
	"time"
)

type OutboxMessage struct {
	ID        int64           `db:"id"`
	MessageID string          `db:"message_id"`
	Topic     string          `db:"topic"`
	Key       string          `db:"message_key"`
	Payload   json.RawMessage `db:"payload"`

	Status     string     `db:"status"` // pending, sent, failed
	RetryCount int        `db:"retry_count"`
	CreatedAt  time.Time  `db:"created_at"`
	SentAt     *time.Time `db:"sent_at"`
	LastError  *string    `db:"last_error"`
}
