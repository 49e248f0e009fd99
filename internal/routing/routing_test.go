package routing_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight_routes/internal/routing"
)

func baseEdges() []routing.Edge {
	return []routing.Edge{
		{Source: "NYC", Destination: "LAX", Price: 300},
		{Source: "LAX", Destination: "SFO", Price: 100},
		{Source: "NYC", Destination: "CHI", Price: 200},
		{Source: "CHI", Destination: "LAX", Price: 150},
		{Source: "SFO", Destination: "SEA", Price: 120},
		{Source: "NYC", Destination: "BOS", Price: 150},
		{Source: "BOS", Destination: "SEA", Price: 400},
	}
}

// checkRoutes asserts the invariants every search result must hold.
func checkRoutes(t *testing.T, edges []routing.Edge, routes []routing.Route, limit routing.HopLimit) {
	t.Helper()

	price := make(map[[2]string]int)
	for _, e := range edges {
		price[[2]string{e.Source, e.Destination}] = e.Price
	}

	for i, r := range routes {
		require.NotEmpty(t, r.Cities)

		seen := make(map[string]struct{}, len(r.Cities))
		for _, c := range r.Cities {
			_, dup := seen[c]
			assert.Falsef(t, dup, "route %v repeats %s", r.Cities, c)
			seen[c] = struct{}{}
		}

		sum := 0
		for j := 1; j < len(r.Cities); j++ {
			p, ok := price[[2]string{r.Cities[j-1], r.Cities[j]}]
			require.Truef(t, ok, "route %v uses unknown flight %s->%s", r.Cities, r.Cities[j-1], r.Cities[j])
			sum += p
		}
		assert.Equal(t, sum, r.TotalPrice, "route %v", r.Cities)

		if max, ok := limit.Max(); ok {
			assert.LessOrEqual(t, len(r.Cities)-1, max)
		}
		if i > 0 {
			assert.LessOrEqual(t, routes[i-1].TotalPrice, r.TotalPrice)
		}
	}
}

func containsRoute(routes []routing.Route, want routing.Route) bool {
	for _, r := range routes {
		if r.TotalPrice == want.TotalPrice && fmt.Sprint(r.Cities) == fmt.Sprint(want.Cities) {
			return true
		}
	}
	return false
}

func TestBuildGraph_KeepsInputOrderPerSource(t *testing.T) {
	g := routing.BuildGraph([]routing.Edge{
		{Source: "AAA", Destination: "BBB", Price: 5},
		{Source: "CCC", Destination: "AAA", Price: 1},
		{Source: "AAA", Destination: "CCC", Price: 7},
		{Source: "AAA", Destination: "BBB", Price: 2},
	})

	assert.Equal(t, []routing.Hop{
		{Destination: "BBB", Price: 5},
		{Destination: "CCC", Price: 7},
		{Destination: "BBB", Price: 2},
	}, g.Neighbors("AAA"))
	assert.Len(t, g, 2)
}

func TestBuildGraph_DestinationOnlyCodeHasNoNeighbors(t *testing.T) {
	g := routing.BuildGraph(baseEdges())

	_, ok := g["SEA"]
	assert.False(t, ok)
	assert.Empty(t, g.Neighbors("SEA"))
	assert.Empty(t, routing.BuildGraph(nil).Neighbors("NYC"))
}

func TestFindRoutes_DirectRoute(t *testing.T) {
	edges := baseEdges()
	routes := routing.Search(edges, "NYC", "LAX", routing.Unbounded())

	checkRoutes(t, edges, routes, routing.Unbounded())
	assert.True(t, containsRoute(routes, routing.Route{Cities: []string{"NYC", "LAX"}, TotalPrice: 300}))
	assert.Equal(t, []routing.Route{
		{Cities: []string{"NYC", "LAX"}, TotalPrice: 300},
		{Cities: []string{"NYC", "CHI", "LAX"}, TotalPrice: 350},
	}, routes)
}

func TestFindRoutes_MultiHop(t *testing.T) {
	edges := baseEdges()
	routes := routing.Search(edges, "NYC", "SEA", routing.Unbounded())

	checkRoutes(t, edges, routes, routing.Unbounded())
	assert.True(t, containsRoute(routes, routing.Route{Cities: []string{"NYC", "LAX", "SFO", "SEA"}, TotalPrice: 520}))
	assert.Equal(t, []routing.Route{
		{Cities: []string{"NYC", "LAX", "SFO", "SEA"}, TotalPrice: 520},
		{Cities: []string{"NYC", "BOS", "SEA"}, TotalPrice: 550},
		{Cities: []string{"NYC", "CHI", "LAX", "SFO", "SEA"}, TotalPrice: 570},
	}, routes)
}

func TestFindRoutes_CycleKeepsPathsSimple(t *testing.T) {
	edges := append(baseEdges(), routing.Edge{Source: "SEA", Destination: "NYC", Price: 250})

	routes := routing.Search(edges, "NYC", "SEA", routing.Unbounded())
	checkRoutes(t, edges, routes, routing.Unbounded())
	assert.Len(t, routes, 3)

	// SFO -> SEA -> NYC -> ... must never loop back into the path
	routes = routing.Search(edges, "LAX", "BOS", routing.Unbounded())
	checkRoutes(t, edges, routes, routing.Unbounded())
	assert.Equal(t, []routing.Route{
		{Cities: []string{"LAX", "SFO", "SEA", "NYC", "BOS"}, TotalPrice: 620},
	}, routes)
}

func TestFindRoutes_CycleAwayFromDestinationTerminates(t *testing.T) {
	edges := []routing.Edge{
		{Source: "AAA", Destination: "BBB", Price: 1},
		{Source: "BBB", Destination: "CCC", Price: 1},
		{Source: "CCC", Destination: "AAA", Price: 1},
		{Source: "CCC", Destination: "BBB", Price: 1},
	}

	routes := routing.Search(edges, "AAA", "ZZZ", routing.Unbounded())
	assert.NotNil(t, routes)
	assert.Empty(t, routes)
}

func TestFindRoutes_MaxHops(t *testing.T) {
	edges := baseEdges()

	routes := routing.Search(edges, "NYC", "SEA", routing.MaxHops(1))
	assert.NotNil(t, routes)
	assert.Empty(t, routes)

	routes = routing.Search(edges, "NYC", "SEA", routing.MaxHops(2))
	checkRoutes(t, edges, routes, routing.MaxHops(2))
	assert.Equal(t, []routing.Route{
		{Cities: []string{"NYC", "BOS", "SEA"}, TotalPrice: 550},
	}, routes)

	routes = routing.Search(edges, "NYC", "SEA", routing.MaxHops(3))
	checkRoutes(t, edges, routes, routing.MaxHops(3))
	assert.Len(t, routes, 2)
}

func TestFindRoutes_DisconnectedComponents(t *testing.T) {
	edges := append(baseEdges(),
		routing.Edge{Source: "IS1", Destination: "IS2", Price: 100},
		routing.Edge{Source: "IS2", Destination: "IS3", Price: 100},
		routing.Edge{Source: "SE1", Destination: "SE2", Price: 100},
	)

	routes := routing.Search(edges, "IS1", "SE2", routing.Unbounded())
	assert.NotNil(t, routes)
	assert.Empty(t, routes)
}

func TestFindRoutes_SameOriginAndDestination(t *testing.T) {
	edges := append(baseEdges(), routing.Edge{Source: "SEA", Destination: "NYC", Price: 250})

	for _, limit := range []routing.HopLimit{routing.Unbounded(), routing.MaxHops(1), routing.MaxHops(0)} {
		routes := routing.Search(edges, "NYC", "NYC", limit)
		assert.Equal(t, []routing.Route{{Cities: []string{"NYC"}, TotalPrice: 0}}, routes)
	}

	routes := routing.Search(nil, "XXX", "XXX", routing.Unbounded())
	assert.Equal(t, []routing.Route{{Cities: []string{"XXX"}, TotalPrice: 0}}, routes)
}

func TestFindRoutes_UnknownOrigin(t *testing.T) {
	routes := routing.Search(baseEdges(), "MOO", "SEA", routing.Unbounded())
	assert.NotNil(t, routes)
	assert.Empty(t, routes)

	routes = routing.Search(baseEdges(), "NYC", "MOON", routing.Unbounded())
	assert.Empty(t, routes)
}

func TestFindRoutes_StableOnEqualPrice(t *testing.T) {
	edges := append(baseEdges(),
		routing.Edge{Source: "NYC", Destination: "ATL", Price: 220},
		routing.Edge{Source: "ATL", Destination: "SEA", Price: 330},
	)

	routes := routing.Search(edges, "NYC", "SEA", routing.MaxHops(2))
	checkRoutes(t, edges, routes, routing.MaxHops(2))
	assert.Equal(t, []routing.Route{
		{Cities: []string{"NYC", "BOS", "SEA"}, TotalPrice: 550},
		{Cities: []string{"NYC", "ATL", "SEA"}, TotalPrice: 550},
	}, routes)
}

func TestFindRoutes_DuplicateEdgesYieldSeparateRoutes(t *testing.T) {
	edges := []routing.Edge{
		{Source: "AAA", Destination: "BBB", Price: 90},
		{Source: "AAA", Destination: "BBB", Price: 40},
	}

	routes := routing.Search(edges, "AAA", "BBB", routing.Unbounded())
	assert.Equal(t, []routing.Route{
		{Cities: []string{"AAA", "BBB"}, TotalPrice: 40},
		{Cities: []string{"AAA", "BBB"}, TotalPrice: 90},
	}, routes)
}

func TestFindRoutes_ResultsDoNotShareBackingArrays(t *testing.T) {
	routes := routing.Search(baseEdges(), "NYC", "SEA", routing.Unbounded())
	require.Len(t, routes, 3)

	routes[0].Cities[1] = "XXX"
	assert.Equal(t, []string{"NYC", "BOS", "SEA"}, routes[1].Cities)
	assert.Equal(t, []string{"NYC", "CHI", "LAX", "SFO", "SEA"}, routes[2].Cities)
}

func TestFindRoutes_FullyConnected(t *testing.T) {
	cities := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
	var edges []routing.Edge
	for i := range cities {
		for j := range cities {
			if i != j {
				edges = append(edges, routing.Edge{Source: cities[i], Destination: cities[j], Price: 100 + i*j})
			}
		}
	}

	routes := routing.Search(edges, "A", "J", routing.MaxHops(5))
	require.NotEmpty(t, routes)
	checkRoutes(t, edges, routes, routing.MaxHops(5))

	// 8 intermediates: sum over k=0..4 of 8!/(8-k)!
	assert.Len(t, routes, 1+8+56+336+1680)
	assert.Equal(t, []string{"A", "J"}, routes[0].Cities)
}

func TestHopLimit(t *testing.T) {
	n, ok := routing.Unbounded().Max()
	assert.False(t, ok)
	assert.Zero(t, n)

	n, ok = routing.MaxHops(3).Max()
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	var zero routing.HopLimit
	_, ok = zero.Max()
	assert.False(t, ok)
}

func BenchmarkFindRoutes_FullyConnected(b *testing.B) {
	cities := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
	var edges []routing.Edge
	for i := range cities {
		for j := range cities {
			if i != j {
				edges = append(edges, routing.Edge{Source: cities[i], Destination: cities[j], Price: 100 + i*j})
			}
		}
	}
	g := routing.BuildGraph(edges)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = routing.FindRoutes(g, "A", "J", routing.MaxHops(5))
	}
}
