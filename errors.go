package hitchhike

import (
	"github.com/pkg/errors"
)

var (
	// ErrNoRouteFound is returned when start and end lie in disconnected components of the graph
	ErrNoRouteFound = errors.New("no route found")
	// ErrInfeasibleBattery is returned when no positive battery mass satisfies the energy balance
	ErrInfeasibleBattery = errors.New("infeasible battery")
	// ErrInvalidEdgeData is returned when an edge misses method/length/energy or carries negative values
	ErrInvalidEdgeData = errors.New("invalid edge data")
	// ErrNodeNotFound is returned when a node identifier is not present in the graph
	ErrNodeNotFound = errors.New("node not found")
	// ErrEmptyGraph is returned when an operation needs at least one node
	ErrEmptyGraph = errors.New("empty graph")
	// ErrInvalidParams is returned by Params.Validate
	ErrInvalidParams = errors.New("invalid parameters")
)
