package repository

import (
	"context"
	"errors"
	"fmt"

	"flight_routes/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

type FlightRepository struct {
	sb sq.StatementBuilderType
}

func NewFlightRepository() *FlightRepository {
	return &FlightRepository{
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// DuplicateError reports an existing flight for the same source and destination.
func DuplicateError(source, destination string) error {
	return fmt.Errorf("flight from %s to %s %w", source, destination, ErrAlreadyExists)
}

// Create inserts f and fills its ID and CreatedAt.
func (r *FlightRepository) Create(ctx context.Context, db DBTX, f *models.Flight) error {
	if f == nil {
		return fmt.Errorf("flight is nil")
	}

	sqlStr, args, err := r.insertQuery(f).ToSql()
	if err != nil {
		return fmt.Errorf("build insert flight sql: %w", err)
	}

	if err := db.QueryRow(ctx, sqlStr, args...).Scan(&f.ID, &f.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return DuplicateError(f.Source, f.Destination)
		}
		return fmt.Errorf("insert flight: %w", err)
	}
	return nil
}

func (r *FlightRepository) insertQuery(f *models.Flight) sq.InsertBuilder {
	return r.sb.
		Insert("flights").
		Columns("source", "destination", "price").
		Values(f.Source, f.Destination, f.Price).
		Suffix("RETURNING id, created_at")
}

// Exists reports whether a flight from source to destination is stored.
func (r *FlightRepository) Exists(ctx context.Context, db DBTX, source, destination string) (bool, error) {
	sqlStr, args, err := r.existsQuery(source, destination).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists flight sql: %w", err)
	}

	var one int
	if err := db.QueryRow(ctx, sqlStr, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check flight exists: %w", err)
	}
	return true, nil
}

func (r *FlightRepository) existsQuery(source, destination string) sq.SelectBuilder {
	return r.sb.
		Select("1").
		From("flights").
		Where(sq.Eq{"source": source}).
		Where(sq.Eq{"destination": destination}).
		Limit(1)
}

// List returns every flight in insertion order, so graphs built from it
// traverse deterministically.
func (r *FlightRepository) List(ctx context.Context, db DBTX) ([]*models.Flight, error) {
	sqlStr, args, err := r.listQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list flights sql: %w", err)
	}

	rows, err := db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query flights: %w", err)
	}
	defer rows.Close()

	res := make([]*models.Flight, 0)
	for rows.Next() {
		var f models.Flight
		if err := rows.Scan(&f.ID, &f.Source, &f.Destination, &f.Price, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan flight row: %w", err)
		}
		res = append(res, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flight rows: %w", err)
	}

	return res, nil
}

func (r *FlightRepository) listQuery() sq.SelectBuilder {
	return r.sb.
		Select("id", "source", "destination", "price", "created_at").
		From("flights").
		OrderBy("id ASC")
}

// Count returns the number of stored flights.
func (r *FlightRepository) Count(ctx context.Context, db DBTX) (int64, error) {
	sqlStr, args, err := r.sb.Select("COUNT(*)").From("flights").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count flights sql: %w", err)
	}

	var n int64
	if err := db.QueryRow(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count flights: %w", err)
	}
	return n, nil
}

// DeleteAll removes every flight and returns how many rows went away.
func (r *FlightRepository) DeleteAll(ctx context.Context, db DBTX) (int, error) {
	sqlStr, args, err := r.sb.Delete("flights").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete flights sql: %w", err)
	}

	tag, err := db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("delete flights: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
