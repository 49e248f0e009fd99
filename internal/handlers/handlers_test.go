package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"flight_routes/internal/models"
	"flight_routes/internal/routing"
	"flight_routes/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	created  []*models.FlightRequest
	bulk     []*models.FlightRequest
	flights  []*models.Flight
	routes   []routing.Route
	cached   bool
	deleted  int
	routeReq *models.RouteRequest
	err      error
}

func (s *stubService) CreateFlight(_ context.Context, req *models.FlightRequest) (*models.Flight, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, req)
	return &models.Flight{ID: 1, Source: req.Source, Destination: req.Destination, Price: *req.Price}, nil
}

func (s *stubService) BulkCreateFlights(_ context.Context, reqs []*models.FlightRequest) ([]*models.Flight, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.bulk = reqs
	out := make([]*models.Flight, 0, len(reqs))
	for i, r := range reqs {
		out = append(out, &models.Flight{ID: int64(i + 1), Source: r.Source, Destination: r.Destination, Price: *r.Price})
	}
	return out, nil
}

func (s *stubService) ListFlights(context.Context) ([]*models.Flight, error) {
	return s.flights, s.err
}

func (s *stubService) DeleteAllFlights(context.Context) (int, error) {
	return s.deleted, s.err
}

func (s *stubService) FindRoutes(_ context.Context, req *models.RouteRequest) ([]routing.Route, bool, error) {
	s.routeReq = req
	return s.routes, s.cached, s.err
}

func newTestRouter(svc FlightService) http.Handler {
	return NewRouter(NewFlightHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestFindRoutes_OK(t *testing.T) {
	svc := &stubService{routes: []routing.Route{
		{Cities: []string{"NYC", "CHI", "LAX"}, TotalPrice: 250},
		{Cities: []string{"NYC", "LAX"}, TotalPrice: 300},
	}}
	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/routes", `{"origin":"NYC","destination":"LAX","maxFlights":2}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `[
		{"cities":["NYC","CHI","LAX"],"totalPrice":250},
		{"cities":["NYC","LAX"],"totalPrice":300}
	]`, rec.Body.String())

	require.NotNil(t, svc.routeReq.MaxFlights)
	assert.Equal(t, 2, *svc.routeReq.MaxFlights)
}

func TestFindRoutes_EmptyIsArray(t *testing.T) {
	svc := &stubService{cached: true}
	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/routes", `{"origin":"NYC","destination":"SEA"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Nil(t, svc.routeReq.MaxFlights)
}

func TestFindRoutes_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		code int
	}{
		{"bad json", `{"origin":`, nil, http.StatusBadRequest},
		{"unknown field", `{"origin":"NYC","destination":"LAX","via":"CHI"}`, nil, http.StatusBadRequest},
		{"two objects", `{"origin":"NYC","destination":"LAX"}{}`, nil, http.StatusBadRequest},
		{"invalid", `{"origin":"NYC","destination":"LAX","maxFlights":0}`, fmt.Errorf("%w: maxFlights must be a positive integer", service.ErrInvalidInput), http.StatusBadRequest},
		{"timeout", `{"origin":"NYC","destination":"LAX"}`, service.ErrSearchTimeout, http.StatusGatewayTimeout},
		{"internal", `{"origin":"NYC","destination":"LAX"}`, errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestRouter(&stubService{err: tt.err}), http.MethodPost, "/api/routes", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.NotEmpty(t, errorBody(t, rec))
		})
	}
}

func TestCreateFlight(t *testing.T) {
	svc := &stubService{}
	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/create", `{"source":"NYC","destination":"LAX","price":300}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var f models.Flight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	assert.Equal(t, "NYC", f.Source)
	assert.Equal(t, 300, f.Price)
	require.Len(t, svc.created, 1)
}

func TestCreateFlight_ErrorMessages(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("%w: %s", service.ErrInvalidInput, "price cannot be negative")}
	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/create", `{"source":"NYC","destination":"LAX","price":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "price cannot be negative", errorBody(t, rec))

	svc = &stubService{err: fmt.Errorf("flight from NYC to LAX %w", service.ErrAlreadyExists)}
	rec = do(t, newTestRouter(svc), http.MethodPost, "/api/create", `{"source":"NYC","destination":"LAX","price":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "flight from NYC to LAX already exists", errorBody(t, rec))
}

func TestBulkCreateFlights(t *testing.T) {
	svc := &stubService{}
	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/bulkcreate", `[
		{"source":"NYC","destination":"LAX","price":300},
		{"source":"LAX","destination":"SEA","price":120}
	]`)

	require.Equal(t, http.StatusOK, rec.Code)
	var flights []models.Flight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flights))
	assert.Len(t, flights, 2)
	assert.Len(t, svc.bulk, 2)

	rec = do(t, newTestRouter(svc), http.MethodPost, "/api/bulkcreate", `{"source":"NYC"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListFlights(t *testing.T) {
	rec := do(t, newTestRouter(&stubService{}), http.MethodGet, "/api/flights", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	svc := &stubService{flights: []*models.Flight{{ID: 1, Source: "NYC", Destination: "LAX", Price: 300}}}
	rec = do(t, newTestRouter(svc), http.MethodGet, "/api/flights", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var flights []models.Flight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flights))
	require.Len(t, flights, 1)
	assert.Equal(t, "LAX", flights[0].Destination)
}

func TestDeleteAllFlights(t *testing.T) {
	rec := do(t, newTestRouter(&stubService{deleted: 4}), http.MethodDelete, "/api/flights", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":4}`, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(&stubService{})

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/routes", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	newTestRouter(&stubService{}).ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
