package routing

// Edge is one directed, priced flight between two airport codes.
type Edge struct {
	Source      string
	Destination string
	Price       int
}

// Hop is an outgoing edge as stored in the adjacency list.
type Hop struct {
	Destination string
	Price       int
}

// Graph maps an origin code to its outgoing hops in input order.
type Graph map[string][]Hop

// BuildGraph groups edges by source. Relative input order is kept per source,
// duplicates included; no validation is done here.
func BuildGraph(edges []Edge) Graph {
	g := make(Graph)
	for _, e := range edges {
		g[e.Source] = append(g[e.Source], Hop{
			Destination: e.Destination,
			Price:       e.Price,
		})
	}
	return g
}

// Neighbors returns the outgoing hops of code. Codes that never appear as a
// source yield nil.
func (g Graph) Neighbors(code string) []Hop {
	return g[code]
}
