package routing

import (
	"slices"
	"sort"
)

// Route is a discovered simple path and the sum of its hop prices.
type Route struct {
	Cities     []string `json:"cities"`
	TotalPrice int      `json:"totalPrice"`
}

// HopLimit bounds the number of flights a route may take. The zero value is
// unbounded.
type HopLimit struct {
	max     int
	bounded bool
}

// Unbounded places no limit on route length.
func Unbounded() HopLimit { return HopLimit{} }

// MaxHops limits routes to at most n flights.
func MaxHops(n int) HopLimit { return HopLimit{max: n, bounded: true} }

// Max reports the limit and whether one is set.
func (l HopLimit) Max() (int, bool) { return l.max, l.bounded }

// reached reports whether a path that already took `taken` flights must stop.
func (l HopLimit) reached(taken int) bool {
	return l.bounded && taken >= l.max
}

// FindRoutes enumerates every simple path from origin to destination in g,
// ordered by ascending total price. Ties keep discovery order. It never fails:
// unknown codes and unreachable destinations give an empty slice.
func FindRoutes(g Graph, origin, destination string, limit HopLimit) []Route {
	s := &search{
		graph:       g,
		destination: destination,
		limit:       limit,
		path:        []string{origin},
		routes:      make([]Route, 0),
	}
	s.walk(origin, 0)

	sort.SliceStable(s.routes, func(i, j int) bool {
		return s.routes[i].TotalPrice < s.routes[j].TotalPrice
	})
	return s.routes
}

// Search builds a graph from edges and runs FindRoutes over it.
func Search(edges []Edge, origin, destination string, limit HopLimit) []Route {
	return FindRoutes(BuildGraph(edges), origin, destination, limit)
}

// search holds the state of one traversal. path is owned exclusively by the
// traversal and restored on every backtrack.
type search struct {
	graph       Graph
	destination string
	limit       HopLimit
	path        []string
	routes      []Route
}

func (s *search) walk(current string, price int) {
	if current == s.destination {
		s.routes = append(s.routes, Route{
			Cities:     slices.Clone(s.path),
			TotalPrice: price,
		})
		return
	}

	if s.limit.reached(len(s.path) - 1) {
		return
	}

	for _, hop := range s.graph.Neighbors(current) {
		if slices.Contains(s.path, hop.Destination) {
			continue
		}
		s.path = append(s.path, hop.Destination)
		s.walk(hop.Destination, price+hop.Price)
		s.path = s.path[:len(s.path)-1]
	}
}
