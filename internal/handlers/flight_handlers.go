package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"flight_routes/internal/models"
	"flight_routes/internal/routing"
	"flight_routes/internal/service"
)

// FlightService is the slice of the service layer the handlers call.
type FlightService interface {
	CreateFlight(ctx context.Context, req *models.FlightRequest) (*models.Flight, error)
	BulkCreateFlights(ctx context.Context, reqs []*models.FlightRequest) ([]*models.Flight, error)
	ListFlights(ctx context.Context) ([]*models.Flight, error)
	DeleteAllFlights(ctx context.Context) (int, error)
	FindRoutes(ctx context.Context, req *models.RouteRequest) ([]routing.Route, bool, error)
}

type FlightHandler struct {
	service FlightService
	logger  *slog.Logger
}

func NewFlightHandler(service FlightService, logger *slog.Logger) *FlightHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlightHandler{
		service: service,
		logger:  logger,
	}
}

// POST /api/routes
// 200: [{"cities": [...], "totalPrice": int}, ...] cheapest first
// 400: invalid input
// 504: search timed out
func (h *FlightHandler) FindRoutes(w http.ResponseWriter, r *http.Request) {
	var req models.RouteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	routes, cached, err := h.service.FindRoutes(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	if routes == nil {
		routes = []routing.Route{}
	}
	writeJSON(w, http.StatusOK, routes)
}

// POST /api/create
// 200: the stored flight
// 400: invalid input or duplicate pair
func (h *FlightHandler) CreateFlight(w http.ResponseWriter, r *http.Request) {
	var req models.FlightRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	flight, err := h.service.CreateFlight(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, flight)
}

// POST /api/bulkcreate
// 200: the stored flights
// 400: any record invalid or duplicated; nothing is stored
func (h *FlightHandler) BulkCreateFlights(w http.ResponseWriter, r *http.Request) {
	var reqs []*models.FlightRequest
	if err := decodeJSON(r, &reqs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	flights, err := h.service.BulkCreateFlights(r.Context(), reqs)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, flights)
}

// GET /api/flights
func (h *FlightHandler) ListFlights(w http.ResponseWriter, r *http.Request) {
	flights, err := h.service.ListFlights(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if flights == nil {
		flights = []*models.Flight{}
	}
	writeJSON(w, http.StatusOK, flights)
}

// DELETE /api/flights
// 200: {"deleted": n}
func (h *FlightHandler) DeleteAllFlights(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.DeleteAllFlights(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.DeleteResponse{Deleted: n})
}

func (h *FlightHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, service.ErrAlreadyExists):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSearchTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// validationMessage strips the sentinel prefix so clients see only the rule
// that failed.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": ")
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("only one JSON value is allowed")
	}

	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
