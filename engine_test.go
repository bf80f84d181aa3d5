package hitchhike

import (
	"math"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTwoNodeGraph(t *testing.T, method Method, length float64) *Graph {
	t.Helper()
	params := DefaultParams()
	nodes := []Node{
		{ID: 1, Lat: 51.50, Lon: -0.10},
		{ID: 2, Lat: 51.54, Lon: -0.10},
	}
	graph, err := NewGraph(nodes, []Edge{testEdge(1, 1, 2, method, length, params.Rates, params.TimeCostFactor)})
	require.NoError(t, err)
	return graph
}

func TestEngineFlightOnlyDelivery(t *testing.T) {
	params := DefaultParams()
	engine, err := NewEngine(newTwoNodeGraph(t, METHOD_FLY, 5000), params)
	require.NoError(t, err)

	result, err := engine.Size(Query{
		Start:    GeoPoint{Lat: 51.50, Lon: -0.10},
		End:      GeoPoint{Lat: 51.54, Lon: -0.10},
		PayloadG: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.RideKm)
	assert.InDelta(t, 5.0, result.Flight1Km, 1e-12)
	assert.Equal(t, 0.0, result.Flight2Km)
	assert.False(t, result.ChargeSaturated1)
	assert.False(t, result.ChargeSaturated2)
	assert.False(t, result.Mixed)
	assert.Equal(t, osm.NodeID(2), result.DestinationNode)
	assert.Equal(t, "none", result.ChargeMode)
	assert.Equal(t, 500.0, result.PayloadMassG)

	assert.True(t, result.BatteryMassG > 0 && !math.IsInf(result.BatteryMassG, 0))
	units := result.BatteryMassG / params.MassStep()
	assert.InDelta(t, math.Round(units), units, 1e-9)
	assert.Equal(t, result.BatteryUnits, int(math.Round(units)))
	assert.InDelta(t, GreatCircleDistance(GeoPoint{Lat: 51.50, Lon: -0.10}, GeoPoint{Lat: 51.54, Lon: -0.10}), result.GeodesicDistanceKm, 1e-12)

	sizing, err := SizeBattery(5000, 0, 0, 500, nil, params)
	require.NoError(t, err)
	assert.Equal(t, sizing.MassG, result.BatteryMassG)
	assert.Equal(t, sizing.TotalEnergyWh, result.TotalEnergyWh)

	// one take-off/landing cycle at cruise speed
	assert.InDelta(t, 60*(5.0+1.1)/(12*3.6), result.TravelTimeMin, 1e-9)
}

func TestEngineRideDelivery(t *testing.T) {
	params := DefaultParams()
	engine, err := NewEngine(newTwoNodeGraph(t, METHOD_RIDE, 20000), params)
	require.NoError(t, err)

	for _, mode := range []ChargeMode{CHARGE_NONE, CHARGE_LOW, CHARGE_HIGH} {
		result, err := engine.Size(Query{Start: GeoPoint{Lat: 51.50, Lon: -0.10}, EndNode: 2, EndByNode: true, PayloadG: 500, Charge: mode})
		require.NoError(t, err)
		assert.True(t, result.Mixed)
		assert.InDelta(t, 20.0, result.RideKm, 1e-12)
		assert.Equal(t, 0.0, result.Flight1Km)
		assert.Equal(t, 0.0, result.Flight2Km)

		sizing, err := SizeBattery(0, 20000, 0, 500, params.ChargeRate(mode), params)
		require.NoError(t, err)
		assert.Equal(t, sizing.MassG, result.BatteryMassG)
		assert.Equal(t, sizing.ChargeSaturated1, result.ChargeSaturated1)
		assert.Equal(t, sizing.ChargeSaturated2, result.ChargeSaturated2)
		assert.Equal(t, sizing.ChargeReceived1Wh, result.ChargeReceived1Wh)
		assert.Equal(t, mode.String(), result.ChargeMode)
		if mode == CHARGE_NONE {
			assert.False(t, result.ChargeSaturated1)
			assert.Equal(t, 0.0, result.ChargeReceived1Wh)
		}
	}
}

func TestEngineDisconnectedGraph(t *testing.T) {
	nodes := []Node{
		{ID: 1, Lat: 51.50, Lon: -0.10},
		{ID: 2, Lat: 51.54, Lon: -0.10},
	}
	graph, err := NewGraph(nodes, nil)
	require.NoError(t, err)
	engine, err := NewEngine(graph, DefaultParams())
	require.NoError(t, err)

	_, err = engine.FindPathLengthsNodes(1, 2)
	assert.ErrorIs(t, err, ErrNoRouteFound)
	_, err = engine.FindPathLengths(GeoPoint{Lat: 51.50, Lon: -0.10}, GeoPoint{Lat: 51.54, Lon: -0.10})
	assert.ErrorIs(t, err, ErrNoRouteFound)
	_, err = engine.Size(Query{Start: GeoPoint{Lat: 51.50, Lon: -0.10}, EndNode: 2, EndByNode: true, PayloadG: 100})
	assert.ErrorIs(t, err, ErrNoRouteFound)
	_, err = engine.Size(Query{Start: GeoPoint{Lat: 51.50, Lon: -0.10}, EndNode: 77, EndByNode: true, PayloadG: 100})
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestEngineKeepsWorthwhileRide(t *testing.T) {
	engine, err := NewEngine(newMixedTestGraph(t, 6000, 8000), DefaultParams())
	require.NoError(t, err)

	lengths, err := engine.FindPathLengthsNodes(1, 6)
	require.NoError(t, err)
	assert.True(t, lengths.Mixed)
	assert.InDelta(t, 300.0, lengths.Flight1Meters, 1e-9)
	assert.InDelta(t, 8000.0, lengths.RideMeters, 1e-9)
	assert.InDelta(t, 200.0, lengths.Flight2Meters, 1e-9)
	assert.InDelta(t, 0.02*8000, lengths.RideEnergy, 1e-9)
	assert.InDelta(t, 6000.0, lengths.FlightOnlyMeters, 1e-9)
	assert.Equal(t, []osm.NodeID{1, 3, 4, 6}, lengths.Route.Nodes)
	assert.InDelta(t, 60*8.0/15+60*(0.5+2*1.1)/(12*3.6), lengths.TravelTimeMin, 1e-9)

	// runs partition the route
	total := 0.0
	for _, run := range lengths.Route.Runs {
		total += run.LengthMeters
	}
	assert.InDelta(t, lengths.Route.LengthMeters(), total, 1e-9)
	assert.InDelta(t, lengths.Flight1Meters+lengths.RideMeters+lengths.Flight2Meters, total, 1e-9)
	require.Len(t, lengths.Route.Runs, 3)
	assert.Equal(t, METHOD_FLY, lengths.Route.Runs[0].Method)
	assert.Equal(t, METHOD_RIDE, lengths.Route.Runs[1].Method)
	assert.Equal(t, METHOD_FLY, lengths.Route.Runs[2].Method)
	assert.Equal(t, 1, lengths.Route.RideRuns())
}

func TestEngineDropsRideNotWorthPenalty(t *testing.T) {
	engine, err := NewEngine(newMixedTestGraph(t, 1500, 1500), DefaultParams())
	require.NoError(t, err)

	lengths, err := engine.FindPathLengthsNodes(1, 6)
	require.NoError(t, err)
	// cheapest by cost is still the ride, but it saves 970 < 1100 units of flight energy
	assert.False(t, lengths.Mixed)
	assert.InDelta(t, 1500.0, lengths.Flight1Meters, 1e-9)
	assert.Equal(t, 0.0, lengths.RideMeters)
	assert.Equal(t, 0.0, lengths.Flight2Meters)
	assert.InDelta(t, 60*(1.5+1.1)/(12*3.6), lengths.TravelTimeMin, 1e-9)

	// reported route is the flown shortest path, not the discarded ride
	assert.Equal(t, []osm.NodeID{1, 2, 6}, lengths.Route.Nodes)
	assert.Equal(t, 0, lengths.Route.RideRuns())
	assert.InDelta(t, 1500.0, lengths.Route.LengthMeters(), 1e-9)
	assert.Equal(t, lengths.Legs, lengths.Route.Legs())
}

func TestEngineDroppedRideIsFlownAlongShortestPath(t *testing.T) {
	params := DefaultParams()
	rates, factor := params.Rates, params.TimeCostFactor
	// shortest path by length uses the ride edge 1-2, which is not worth the extra cycle
	nodes := []Node{
		{ID: 1, Lat: 51.500, Lon: -0.100},
		{ID: 2, Lat: 51.505, Lon: -0.090},
		{ID: 3, Lat: 51.510, Lon: -0.080},
	}
	edges := []Edge{
		testEdge(1, 1, 2, METHOD_RIDE, 400, rates, factor),
		testEdge(2, 2, 3, METHOD_FLY, 600, rates, factor),
		testEdge(3, 1, 3, METHOD_FLY, 1200, rates, factor),
	}
	graph, err := NewGraph(nodes, edges)
	require.NoError(t, err)
	engine, err := NewEngine(graph, params)
	require.NoError(t, err)

	lengths, err := engine.FindPathLengthsNodes(1, 3)
	require.NoError(t, err)
	assert.False(t, lengths.Mixed)
	assert.Equal(t, []osm.NodeID{1, 2, 3}, lengths.Route.Nodes)
	require.Len(t, lengths.Route.Runs, 1)
	assert.Equal(t, METHOD_FLY, lengths.Route.Runs[0].Method)
	assert.Equal(t, 0, lengths.Route.RideRuns())
	assert.InDelta(t, 1000.0, lengths.Route.LengthMeters(), 1e-9)
	assert.InDelta(t, rates.Fly*1000, lengths.Route.Energy(), 1e-9)
	assert.Equal(t, Legs{Flight1Meters: 1000}, lengths.Route.Legs())
}

func TestEngineDecisionIsIdempotent(t *testing.T) {
	for _, kind := range []FinderKind{FINDER_DIJKSTRA, FINDER_CH} {
		engine, err := NewEngine(newMixedTestGraph(t, 1500, 1500), DefaultParams(), WithFinderKind(kind), WithRouteCache(8))
		require.NoError(t, err)
		first, err := engine.FindPathLengthsNodes(1, 6)
		require.NoError(t, err)
		second, err := engine.FindPathLengthsNodes(1, 6)
		require.NoError(t, err)
		assert.Equal(t, first.Legs, second.Legs)
		assert.Equal(t, first.Mixed, second.Mixed)

		// feeding pure-flight outcome back through the rule keeps it pure flight
		assert.False(t, keepMixed(first.FlightOnlyMeters, first.Legs, engine.Params()))
	}
}

func TestKeepMixedBoundary(t *testing.T) {
	params := DefaultParams()
	legs := Legs{Flight1Meters: 100, RideMeters: 5000, RideEnergy: 100, Flight2Meters: 100}
	// saving exactly one penalty keeps the ride
	assert.True(t, keepMixed(300+params.TOLPenaltyMeters, legs, params))
	assert.False(t, keepMixed(300+params.TOLPenaltyMeters-1e-6, legs, params))
	assert.False(t, keepMixed(1e9, Legs{Flight1Meters: 10}, params))
}

func TestRouteLegsWithAlternation(t *testing.T) {
	edges := []*Edge{
		{Method: METHOD_FLY, LengthMeters: 100, Energy: 100},
		{Method: METHOD_RIDE, LengthMeters: 1000, Energy: 20},
		{Method: METHOD_RIDE, LengthMeters: 500, Energy: 10},
		{Method: METHOD_FLY, LengthMeters: 50, Energy: 50},
		{Method: METHOD_RIDE, LengthMeters: 2000, Energy: 40},
		{Method: METHOD_FLY, LengthMeters: 70, Energy: 70},
	}
	route := &Route{Edges: edges, Runs: partitionRuns(edges)}
	require.Len(t, route.Runs, 5)
	assert.Equal(t, 1, route.Runs[1].From)
	assert.Equal(t, 2, route.Runs[1].To)
	assert.InDelta(t, 1500.0, route.Runs[1].LengthMeters, 1e-9)
	assert.InDelta(t, 1.5, route.Runs[1].LengthKm(), 1e-12)
	assert.Equal(t, 2, route.RideRuns())

	legs := route.Legs()
	assert.InDelta(t, 100.0, legs.Flight1Meters, 1e-9)
	assert.InDelta(t, 3500.0, legs.RideMeters, 1e-9)
	assert.InDelta(t, 70.0, legs.RideEnergy, 1e-9)
	assert.InDelta(t, 120.0, legs.Flight2Meters, 1e-9)
	assert.InDelta(t, route.LengthMeters(), legs.FlightMeters()+legs.RideMeters, 1e-9)
	assert.InDelta(t, 290.0, route.Energy(), 1e-9)
}

func TestNewEngineRejectsBadParams(t *testing.T) {
	params := DefaultParams()
	params.EnergyDensity = 0
	_, err := NewEngine(newTwoNodeGraph(t, METHOD_FLY, 100), params)
	assert.ErrorIs(t, err, ErrInvalidParams)

	graph, err := NewGraph(nil, nil)
	require.NoError(t, err)
	_, err = NewEngine(graph, DefaultParams())
	assert.ErrorIs(t, err, ErrEmptyGraph)
}

func TestEngineSizesToNodeZero(t *testing.T) {
	params := DefaultParams()
	nodes := []Node{
		{ID: 1, Lat: 51.50, Lon: -0.10},
		{ID: 0, Lat: 51.54, Lon: -0.10},
	}
	graph, err := NewGraph(nodes, []Edge{testEdge(1, 1, 0, METHOD_FLY, 5000, params.Rates, params.TimeCostFactor)})
	require.NoError(t, err)
	engine, err := NewEngine(graph, params)
	require.NoError(t, err)

	depot := GeoPoint{Lat: 51.50, Lon: -0.10}
	result, err := engine.Size(Query{Start: depot, End: depot, EndNode: 0, EndByNode: true, PayloadG: 500})
	require.NoError(t, err)
	assert.Equal(t, osm.NodeID(0), result.DestinationNode)
	assert.InDelta(t, 5.0, result.Flight1Km, 1e-12)

	dests := DestinationsFromGraph(graph, graph.Bound().Pad(0.01))
	require.Len(t, dests, 2)
	assert.Equal(t, osm.NodeID(0), dests[1].Node)
	assert.True(t, dests[1].HasNode)
	queries := FixedPayload(500).Queries(depot, dests, CHARGE_NONE, nil)
	assert.True(t, queries[1].EndByNode)
	assert.Equal(t, osm.NodeID(0), queries[1].EndNode)
}
