package hitchhike

import (
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// PathLengths is the outcome of route search between depot and destination
type PathLengths struct {
	Legs
	// Shortest path length when every edge is flown (m)
	FlightOnlyMeters float64
	// Whether mixed-mode route was kept after the take-off/landing comparison
	Mixed         bool
	StartNode     osm.NodeID
	EndNode       osm.NodeID
	Route         *Route
	TravelTimeMin float64
}

// Engine answers route and battery sizing queries over a shared read-only graph
type Engine struct {
	graph        *Graph
	params       Params
	locator      NodeLocator
	weight       WeightFunc
	finderKind   FinderKind
	cacheSize    int
	costFinder   PathFinder
	lengthFinder PathFinder
	logger       *Logger
	verbose      bool
}

type EngineOption func(*Engine)

// WithSearchWeight sets the weight used to pick the route (cost attribute by default)
func WithSearchWeight(weight WeightFunc) EngineOption {
	return func(engine *Engine) {
		engine.weight = weight
	}
}

// WithFinderKind selects Dijkstra or contraction hierarchies
func WithFinderKind(kind FinderKind) EngineOption {
	return func(engine *Engine) {
		engine.finderKind = kind
	}
}

// WithRouteCache memoizes up to size node pairs per finder
func WithRouteCache(size int) EngineOption {
	return func(engine *Engine) {
		engine.cacheSize = size
	}
}

// WithLocator overrides nearest-node lookup
func WithLocator(locator NodeLocator) EngineOption {
	return func(engine *Engine) {
		engine.locator = locator
	}
}

func WithLogger(logger *Logger) EngineOption {
	return func(engine *Engine) {
		engine.logger = logger
	}
}

func WithVerbose(verbose bool) EngineOption {
	return func(engine *Engine) {
		engine.verbose = verbose
	}
}

// NewEngine prepares locator and path finders. The graph must not change afterwards.
func NewEngine(graph *Graph, params Params, options ...EngineOption) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	engine := &Engine{
		graph:      graph,
		params:     params,
		weight:     WeightCost,
		finderKind: FINDER_DIJKSTRA,
	}
	for _, option := range options {
		option(engine)
	}
	var err error
	if engine.locator == nil {
		engine.locator, err = NewQuadtreeLocator(graph)
		if err != nil {
			return nil, errors.Wrap(err, "Can't prepare node index")
		}
	}
	engine.costFinder, err = engine.newFinder(engine.weight)
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare search over cost")
	}
	engine.lengthFinder, err = engine.newFinder(WeightLength)
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare search over length")
	}
	return engine, nil
}

func (engine *Engine) newFinder(weight WeightFunc) (PathFinder, error) {
	finder, err := NewPathFinder(engine.finderKind, engine.graph, weight, engine.verbose)
	if err != nil {
		return nil, err
	}
	if engine.cacheSize > 0 {
		return NewCachedFinder(finder, engine.cacheSize)
	}
	return finder, nil
}

func (engine *Engine) Graph() *Graph {
	return engine.graph
}

func (engine *Engine) Params() Params {
	return engine.params
}

// Nearest resolves coordinate to graph node
func (engine *Engine) Nearest(pt GeoPoint) (osm.NodeID, error) {
	return engine.locator.Nearest(pt)
}

// FindPathLengths resolves coordinates to nearest nodes and searches route between them
func (engine *Engine) FindPathLengths(start, end GeoPoint) (PathLengths, error) {
	startNode, err := engine.locator.Nearest(start)
	if err != nil {
		return PathLengths{}, errors.Wrap(err, "Can't find start node")
	}
	endNode, err := engine.locator.Nearest(end)
	if err != nil {
		return PathLengths{}, errors.Wrap(err, "Can't find end node")
	}
	return engine.FindPathLengthsNodes(startNode, endNode)
}

// FindPathLengthsNodes searches the lowest cost route and splits it into pre-ride flight,
// ride and post-ride flight. Mixed-mode routes not saving more than one extra take-off/landing
// cycle are replaced by pure flight over the shortest path.
func (engine *Engine) FindPathLengthsNodes(start, end osm.NodeID) (PathLengths, error) {
	cost, path, err := engine.costFinder.ShortestPath(start, end)
	if err != nil {
		return PathLengths{}, err
	}
	flightOnly, flightPath, err := engine.lengthFinder.ShortestPath(start, end)
	if err != nil {
		return PathLengths{}, err
	}
	route, err := buildRoute(engine.graph, cost, path)
	if err != nil {
		return PathLengths{}, err
	}
	result := PathLengths{
		Legs:             route.Legs(),
		FlightOnlyMeters: flightOnly,
		StartNode:        start,
		EndNode:          end,
		Route:            route,
	}
	result.Mixed = keepMixed(flightOnly, result.Legs, engine.params)
	if !result.Mixed {
		result.Legs = Legs{Flight1Meters: flightOnly}
		result.Route, err = buildFlownRoute(engine.graph, flightPath, engine.params.Rates.Fly)
		if err != nil {
			return PathLengths{}, err
		}
	}
	result.TravelTimeMin = travelTimeMinutes(result.Legs, engine.params)
	return result, nil
}

// keepMixed compares in energy units: flight distances and the take-off/landing penalty are
// converted through the flight energy rate, ride contributes its own edge energy.
// Mixed route is kept only when it saves at least one penalty worth of energy.
func keepMixed(flightOnlyMeters float64, legs Legs, params Params) bool {
	if !legs.HasRide() {
		return false
	}
	flightOnlyEnergy := params.Rates.Fly * flightOnlyMeters
	mixedEnergy := params.Rates.Fly*legs.FlightMeters() + legs.RideEnergy
	penaltyEnergy := params.Rates.Fly * params.TOLPenaltyMeters
	return flightOnlyEnergy-mixedEnergy >= penaltyEnergy
}

// travelTimeMinutes estimates journey time: bus speed for ride, cruise speed plus one
// penalty per take-off/landing cycle for flight
func travelTimeMinutes(legs Legs, params Params) float64 {
	cycles := 1.0
	if legs.HasRide() {
		cycles = 2.0
	}
	flyKm := legs.FlightMeters()/1000.0 + cycles*params.TOLPenaltyMeters/1000.0
	return 60*(legs.RideMeters/1000.0)/params.BusSpeed + 60*flyKm/params.CruiseKmh()
}

// Query describes one delivery
type Query struct {
	Start GeoPoint
	End   GeoPoint
	// When EndByNode is set, End is ignored and EndNode is used as destination
	EndNode   osm.NodeID
	EndByNode bool
	PayloadG  float64
	Charge    ChargeMode
}

// Size searches route for the query and sizes battery for it
func (engine *Engine) Size(query Query) (*SizingResult, error) {
	startNode, err := engine.locator.Nearest(query.Start)
	if err != nil {
		return nil, errors.Wrap(err, "Can't find start node")
	}
	end := query.End
	endNode := query.EndNode
	if !query.EndByNode {
		endNode, err = engine.locator.Nearest(query.End)
		if err != nil {
			return nil, errors.Wrap(err, "Can't find end node")
		}
	} else {
		node, ok := engine.graph.Node(endNode)
		if !ok {
			return nil, errors.Wrapf(ErrNodeNotFound, "destination %d", endNode)
		}
		end = node.GeoPoint()
	}
	lengths, err := engine.FindPathLengthsNodes(startNode, endNode)
	if err != nil {
		return nil, err
	}
	charge := query.Charge
	if charge == 0 {
		charge = CHARGE_NONE
	}
	sizing, err := SizeBattery(lengths.Flight1Meters, lengths.RideMeters, lengths.Flight2Meters, query.PayloadG, engine.params.ChargeRate(charge), engine.params)
	if err != nil {
		return nil, errors.Wrapf(err, "destination %d", endNode)
	}
	return newSizingResult(GreatCircleDistance(query.Start, end), lengths, sizing, query.PayloadG, charge), nil
}
