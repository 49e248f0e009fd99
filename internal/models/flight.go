package models

import "time"

type Flight struct {
	ID          int64     `json:"id"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Price       int       `json:"price"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FlightRequest is the body of POST /api/create and one element of
// POST /api/bulkcreate. Price is a pointer so a missing price is told apart
// from a free flight.
type FlightRequest struct {
	Source      string `json:"source" validate:"required,len=3"`
	Destination string `json:"destination" validate:"required,len=3,nefield=Source"`
	Price       *int   `json:"price" validate:"required,gte=0"`
}

// RouteRequest is the body of POST /api/routes. A nil MaxFlights means no
// limit on the number of flights.
type RouteRequest struct {
	Origin      string `json:"origin" validate:"required"`
	Destination string `json:"destination" validate:"required"`
	MaxFlights  *int   `json:"maxFlights"`
}

type DeleteResponse struct {
	Deleted int `json:"deleted"`
}
