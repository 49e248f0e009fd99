package service

import (
	"errors"
	"fmt"
	"strings"

	"flight_routes/internal/metrics"
	"flight_routes/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Messages returned for rejected flight records.
const (
	msgMissingFields = "source, destination and price cannot be null"
	msgSameEndpoints = "source and destination cannot be the same"
	msgNegativePrice = "price cannot be negative"
	msgCodeLength    = "source and destination must be 3 characters long"
)

// rule order decides which message wins when a record breaks several rules.
var flightRules = []struct {
	tag    string
	reason string
	msg    string
}{
	{"required", "missing", msgMissingFields},
	{"nefield", "same_endpoints", msgSameEndpoints},
	{"gte", "negative_price", msgNegativePrice},
	{"len", "code_length", msgCodeLength},
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// validateFlight normalizes req in place and checks the record rules.
func validateFlight(req *models.FlightRequest) error {
	if req == nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, msgMissingFields)
	}
	req.Source = normalizeCode(req.Source)
	req.Destination = normalizeCode(req.Destination)

	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate flight: %w", err)
	}

	for _, rule := range flightRules {
		for _, fe := range verrs {
			if fe.Tag() == rule.tag {
				metrics.IncFlightRejected(rule.reason)
				return fmt.Errorf("%w: %s", ErrInvalidInput, rule.msg)
			}
		}
	}

	metrics.IncFlightRejected("other")
	return fmt.Errorf("%w: %s", ErrInvalidInput, verrs.Error())
}

// validateRouteRequest normalizes req in place.
func validateRouteRequest(req *models.RouteRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidInput)
	}
	req.Origin = normalizeCode(req.Origin)
	req.Destination = normalizeCode(req.Destination)

	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: origin and destination are required", ErrInvalidInput)
	}
	if req.MaxFlights != nil && *req.MaxFlights < 1 {
		return fmt.Errorf("%w: maxFlights must be a positive integer", ErrInvalidInput)
	}
	return nil
}
