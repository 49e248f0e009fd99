package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"flight_routes/internal/cache"
	"flight_routes/internal/kafka"
	"flight_routes/internal/metrics"
	"flight_routes/internal/models"
	"flight_routes/internal/repository"
	"flight_routes/internal/routing"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = repository.ErrAlreadyExists
	ErrSearchTimeout = errors.New("route search timed out")
)

// FlightStore persists flights together with their outbox events.
type FlightStore interface {
	CreateFlights(ctx context.Context, flights []*models.Flight, events []*models.OutboxMessage) error
	ListFlights(ctx context.Context) ([]*models.Flight, error)
	DeleteAllFlights(ctx context.Context, newEvent func(deleted int) (*models.OutboxMessage, error)) (int, error)
}

// RouteCache holds search results keyed by query.
type RouteCache interface {
	GetRoutes(ctx context.Context, key string) ([]routing.Route, bool, error)
	PutRoutes(ctx context.Context, key string, routes []routing.Route) error
	InvalidateRoutes(ctx context.Context) error
}

type Options struct {
	// EventsTopic is the outbox topic for flight events. Empty disables events.
	EventsTopic   string
	SearchTimeout time.Duration
	Logger        *slog.Logger
}

type FlightService struct {
	store FlightStore
	cache RouteCache

	eventsTopic   string
	searchTimeout time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewFlightService builds the service. rc may be nil to run without a cache.
func NewFlightService(store FlightStore, rc RouteCache, opts Options) *FlightService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = 5 * time.Second
	}

	return &FlightService{
		store:         store,
		cache:         rc,
		eventsTopic:   opts.EventsTopic,
		searchTimeout: opts.SearchTimeout,
		logger:        opts.Logger,
		now:           time.Now,
	}
}

// CreateFlight validates and stores a single flight.
func (s *FlightService) CreateFlight(ctx context.Context, req *models.FlightRequest) (*models.Flight, error) {
	flights, err := s.createFlights(ctx, []*models.FlightRequest{req})
	if err != nil {
		return nil, err
	}
	return flights[0], nil
}

// BulkCreateFlights stores all flights or none of them.
func (s *FlightService) BulkCreateFlights(ctx context.Context, reqs []*models.FlightRequest) ([]*models.Flight, error) {
	if len(reqs) == 0 {
		return []*models.Flight{}, nil
	}
	return s.createFlights(ctx, reqs)
}

func (s *FlightService) createFlights(ctx context.Context, reqs []*models.FlightRequest) ([]*models.Flight, error) {
	flights := make([]*models.Flight, 0, len(reqs))
	seen := make(map[[2]string]struct{}, len(reqs))

	for _, req := range reqs {
		if err := validateFlight(req); err != nil {
			return nil, err
		}

		pair := [2]string{req.Source, req.Destination}
		if _, dup := seen[pair]; dup {
			metrics.IncFlightRejected("duplicate")
			return nil, repository.DuplicateError(req.Source, req.Destination)
		}
		seen[pair] = struct{}{}

		flights = append(flights, &models.Flight{
			Source:      req.Source,
			Destination: req.Destination,
			Price:       *req.Price,
		})
	}

	events, err := s.createdEvents(flights)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateFlights(ctx, flights, events); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			metrics.IncFlightRejected("duplicate")
			return nil, err
		}
		return nil, fmt.Errorf("store flights: %w", err)
	}

	metrics.AddFlightsCreated(len(flights))
	s.invalidateRoutes(ctx)
	s.logger.Info("flights created", slog.Int("count", len(flights)))

	return flights, nil
}

func (s *FlightService) createdEvents(flights []*models.Flight) ([]*models.OutboxMessage, error) {
	if s.eventsTopic == "" {
		return nil, nil
	}

	now := s.now()
	events := make([]*models.OutboxMessage, 0, len(flights))
	for _, f := range flights {
		msg, err := kafka.NewFlightCreatedEvent(f, now).OutboxMessage(s.eventsTopic)
		if err != nil {
			return nil, err
		}
		events = append(events, msg)
	}
	return events, nil
}

func (s *FlightService) ListFlights(ctx context.Context) ([]*models.Flight, error) {
	flights, err := s.store.ListFlights(ctx)
	if err != nil {
		return nil, fmt.Errorf("list flights: %w", err)
	}
	return flights, nil
}

// DeleteAllFlights removes every flight and returns how many were removed.
func (s *FlightService) DeleteAllFlights(ctx context.Context) (int, error) {
	var newEvent func(int) (*models.OutboxMessage, error)
	if s.eventsTopic != "" {
		newEvent = func(deleted int) (*models.OutboxMessage, error) {
			return kafka.NewFlightsDeletedEvent(deleted, s.now()).OutboxMessage(s.eventsTopic)
		}
	}

	n, err := s.store.DeleteAllFlights(ctx, newEvent)
	if err != nil {
		return 0, fmt.Errorf("delete flights: %w", err)
	}

	metrics.AddFlightsDeleted(n)
	s.invalidateRoutes(ctx)
	s.logger.Info("flights deleted", slog.Int("count", n))

	return n, nil
}

// FindRoutes returns every simple route for req, cheapest first. cached
// reports whether the result came from the route cache.
func (s *FlightService) FindRoutes(ctx context.Context, req *models.RouteRequest) (routes []routing.Route, cached bool, err error) {
	if err := validateRouteRequest(req); err != nil {
		metrics.IncRouteSearch(metrics.SearchInvalid)
		return nil, false, err
	}

	limit := routing.Unbounded()
	if req.MaxFlights != nil {
		limit = routing.MaxHops(*req.MaxFlights)
	}
	maxHops, bounded := limit.Max()
	key := cache.RoutesKey(req.Origin, req.Destination, maxHops, bounded)

	if s.cache != nil {
		routes, ok, err := s.cache.GetRoutes(ctx, key)
		if err != nil {
			s.logger.Warn("route cache get failed", slog.String("key", key), slog.Any("err", err))
		} else if ok {
			metrics.IncRouteSearch(metrics.SearchHit)
			return routes, true, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.searchTimeout)
	defer cancel()

	start := time.Now()
	flights, err := s.store.ListFlights(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.IncRouteSearch(metrics.SearchTimeout)
			return nil, false, ErrSearchTimeout
		}
		return nil, false, fmt.Errorf("load flights: %w", err)
	}

	edges := make([]routing.Edge, 0, len(flights))
	for _, f := range flights {
		edges = append(edges, routing.Edge{Source: f.Source, Destination: f.Destination, Price: f.Price})
	}

	done := make(chan []routing.Route, 1)
	go func() {
		done <- routing.Search(edges, req.Origin, req.Destination, limit)
	}()

	select {
	case routes = <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.IncRouteSearch(metrics.SearchTimeout)
			s.logger.Warn("route search timed out",
				slog.String("origin", req.Origin),
				slog.String("destination", req.Destination),
				slog.Int("flights", len(edges)),
			)
			return nil, false, ErrSearchTimeout
		}
		return nil, false, ctx.Err()
	}

	metrics.IncRouteSearch(metrics.SearchMiss)
	metrics.ObserveRouteSearch(time.Since(start), len(edges), len(routes))

	if s.cache != nil {
		if err := s.cache.PutRoutes(ctx, key, routes); err != nil {
			s.logger.Warn("route cache put failed", slog.String("key", key), slog.Any("err", err))
		}
	}

	return routes, false, nil
}

func (s *FlightService) invalidateRoutes(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateRoutes(ctx); err != nil {
		s.logger.Warn("route cache invalidation failed", slog.Any("err", err))
	}
}
