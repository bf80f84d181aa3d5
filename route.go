package hitchhike

import (
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// MethodRun is a maximal run of consecutive edges sharing travel method
type MethodRun struct {
	Method       Method
	LengthMeters float64
	Energy       float64
	// Indices of first and last edges of the run in Route.Edges
	From int
	To   int
}

// LengthKm returns run length in kilometers
func (run MethodRun) LengthKm() float64 {
	return run.LengthMeters / 1000.0
}

// Route is a search result. It is recomputed per query and never persisted.
type Route struct {
	Nodes     []osm.NodeID
	Edges     []*Edge
	TotalCost float64
	Runs      []MethodRun
}

// Legs is the three-stage summary of a route: flight before the first ride,
// everything ridden, and flight after the first ride
type Legs struct {
	Flight1Meters float64
	RideMeters    float64
	RideEnergy    float64
	Flight2Meters float64
}

// FlightMeters returns total flown distance
func (legs Legs) FlightMeters() float64 {
	return legs.Flight1Meters + legs.Flight2Meters
}

// HasRide reports whether any edge is ridden
func (legs Legs) HasRide() bool {
	return legs.RideMeters > 0
}

func buildRoute(graph *Graph, cost float64, path []osm.NodeID) (*Route, error) {
	route := &Route{
		Nodes:     make([]osm.NodeID, len(path)),
		TotalCost: cost,
	}
	copy(route.Nodes, path)
	if len(path) > 1 {
		route.Edges = make([]*Edge, 0, len(path)-1)
	}
	for i := 0; i+1 < len(path); i++ {
		edge, ok := graph.Edge(path[i], path[i+1])
		if !ok {
			return nil, errors.Wrapf(ErrNoRouteFound, "no edge between %d and %d", path[i], path[i+1])
		}
		route.Edges = append(route.Edges, edge)
	}
	route.Runs = partitionRuns(route.Edges)
	return route, nil
}

// buildFlownRoute builds route along path where every edge is flown regardless of its method.
// TotalCost is the flown length.
func buildFlownRoute(graph *Graph, path []osm.NodeID, flyRate float64) (*Route, error) {
	route, err := buildRoute(graph, 0, path)
	if err != nil {
		return nil, err
	}
	if len(route.Edges) == 0 {
		return route, nil
	}
	run := MethodRun{Method: METHOD_FLY, From: 0, To: len(route.Edges) - 1}
	for _, edge := range route.Edges {
		run.LengthMeters += edge.LengthMeters
	}
	run.Energy = flyRate * run.LengthMeters
	route.Runs = []MethodRun{run}
	route.TotalCost = run.LengthMeters
	return route, nil
}

// partitionRuns splits edges into maximal runs of the same method
func partitionRuns(edges []*Edge) []MethodRun {
	runs := []MethodRun{}
	for i, edge := range edges {
		if len(runs) == 0 || runs[len(runs)-1].Method != edge.Method {
			runs = append(runs, MethodRun{Method: edge.Method, From: i, To: i})
		}
		last := &runs[len(runs)-1]
		last.LengthMeters += edge.LengthMeters
		last.Energy += edge.Energy
		last.To = i
	}
	return runs
}

// LengthMeters returns physical length of the route
func (route *Route) LengthMeters() float64 {
	total := 0.0
	for _, run := range route.Runs {
		total += run.LengthMeters
	}
	return total
}

// Energy returns sum of edge energies along the route
func (route *Route) Energy() float64 {
	total := 0.0
	for _, run := range route.Runs {
		total += run.Energy
	}
	return total
}

// Legs collapses runs into pre-ride flight, ride and post-ride flight.
// Any alternation is accepted: every ridden meter counts as ride and every
// flight meter after the first ride counts as the second flight.
func (route *Route) Legs() Legs {
	legs := Legs{}
	rideSeen := false
	for _, run := range route.Runs {
		switch run.Method {
		case METHOD_RIDE:
			rideSeen = true
			legs.RideMeters += run.LengthMeters
			legs.RideEnergy += run.Energy
		default:
			if rideSeen {
				legs.Flight2Meters += run.LengthMeters
			} else {
				legs.Flight1Meters += run.LengthMeters
			}
		}
	}
	return legs
}

// RideRuns returns number of separate ride runs
func (route *Route) RideRuns() int {
	n := 0
	for _, run := range route.Runs {
		if run.Method == METHOD_RIDE {
			n++
		}
	}
	return n
}
