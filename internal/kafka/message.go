package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"flight_routes/internal/models"

	"github.com/google/uuid"
)

const (
	EventFlightCreated  = "flight_created"
	EventFlightsDeleted = "flights_deleted"
)

// FlightEvent is published for every change to the flight set. Consumers use
// it to drop route results computed from the old set.
type FlightEvent struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	Source      string    `json:"source,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Price       int       `json:"price,omitempty"`
	Deleted     int       `json:"deleted,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func NewFlightCreatedEvent(f *models.Flight, now time.Time) *FlightEvent {
	return &FlightEvent{
		EventID:     uuid.NewString(),
		Type:        EventFlightCreated,
		Source:      f.Source,
		Destination: f.Destination,
		Price:       f.Price,
		OccurredAt:  now.UTC(),
	}
}

func NewFlightsDeletedEvent(deleted int, now time.Time) *FlightEvent {
	return &FlightEvent{
		EventID:    uuid.NewString(),
		Type:       EventFlightsDeleted,
		Deleted:    deleted,
		OccurredAt: now.UTC(),
	}
}

// Key partitions events by source airport; bulk deletes share one key.
func (e *FlightEvent) Key() string {
	if e.Source != "" {
		return e.Source
	}
	return e.Type
}

// OutboxMessage wraps the event for storage in the outbox on topic.
func (e *FlightEvent) OutboxMessage(topic string) (*models.OutboxMessage, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal flight event: %w", err)
	}
	return &models.OutboxMessage{
		Topic:   topic,
		Key:     e.Key(),
		Payload: payload,
	}, nil
}

func DecodeFlightEvent(b []byte) (*FlightEvent, error) {
	var e FlightEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("unmarshal flight event: %w", err)
	}
	switch e.Type {
	case EventFlightCreated, EventFlightsDeleted:
	default:
		return nil, fmt.Errorf("unknown flight event type %q", e.Type)
	}
	return &e, nil
}
