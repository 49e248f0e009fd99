package repository

import (
	"context"
	"fmt"

	"flight_routes/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FlightStore groups the flight writes that must land together with their
// outbox events.
type FlightStore struct {
	db      *pgxpool.Pool
	flights *FlightRepository
	outbox  *OutboxRepository
}

func NewFlightStore(db *pgxpool.Pool, flights *FlightRepository, outbox *OutboxRepository) *FlightStore {
	return &FlightStore{
		db:      db,
		flights: flights,
		outbox:  outbox,
	}
}

// CreateFlights inserts all flights and events in one transaction. Nothing is
// stored if any flight duplicates an existing source/destination pair.
func (s *FlightStore) CreateFlights(ctx context.Context, flights []*models.Flight, events []*models.OutboxMessage) error {
	return WithTx(ctx, s.db, func(tx pgx.Tx) error {
		for _, f := range flights {
			exists, err := s.flights.Exists(ctx, tx, f.Source, f.Destination)
			if err != nil {
				return err
			}
			if exists {
				return DuplicateError(f.Source, f.Destination)
			}
			if err := s.flights.Create(ctx, tx, f); err != nil {
				return err
			}
		}

		for _, ev := range events {
			if err := s.outbox.CreateMessage(ctx, tx, ev); err != nil {
				return fmt.Errorf("create outbox message: %w", err)
			}
		}
		return nil
	})
}

func (s *FlightStore) ListFlights(ctx context.Context) ([]*models.Flight, error) {
	return s.flights.List(ctx, s.db)
}

// DeleteAllFlights removes every flight. When newEvent is set, the message it
// builds from the deleted count is stored in the same transaction.
func (s *FlightStore) DeleteAllFlights(ctx context.Context, newEvent func(deleted int) (*models.OutboxMessage, error)) (int, error) {
	var deleted int
	err := WithTx(ctx, s.db, func(tx pgx.Tx) error {
		n, err := s.flights.DeleteAll(ctx, tx)
		if err != nil {
			return err
		}
		deleted = n

		if newEvent != nil {
			event, err := newEvent(n)
			if err != nil {
				return err
			}
			if err := s.outbox.CreateMessage(ctx, tx, event); err != nil {
				return fmt.Errorf("create outbox message: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *FlightStore) CountFlights(ctx context.Context) (int64, error) {
	return s.flights.Count(ctx, s.db)
}

func (s *FlightStore) CountOutboxByStatus(ctx context.Context) (map[string]int64, error) {
	return s.outbox.CountByStatus(ctx)
}
