package hitchhike

import (
	"math"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEdge builds edge with energy = rate*length and cost = energy (ride cost scaled by factor)
func testEdge(id EdgeID, from, to osm.NodeID, method Method, length float64, rates EnergyRates, factor float64) Edge {
	energy := rates.forMethod(method) * length
	cost := energy
	if method == METHOD_RIDE {
		cost *= factor
	}
	return Edge{
		ID:           id,
		Source:       from,
		Target:       to,
		Method:       method,
		LengthMeters: length,
		Energy:       energy,
		Cost:         cost,
	}
}

var testNodes = []Node{
	{ID: 1, Lat: 51.500, Lon: -0.100},
	{ID: 2, Lat: 51.505, Lon: -0.080},
	{ID: 3, Lat: 51.501, Lon: -0.099},
	{ID: 4, Lat: 51.509, Lon: -0.051},
	{ID: 6, Lat: 51.510, Lon: -0.050},
}

// newMixedTestGraph returns depot 1 and destination 6 joined by direct flight 1-2-6
// (directLen meters in total) and by hitch-hiking 1-3 (fly 300) 3-4 (ride rideLen) 4-6 (fly 200)
func newMixedTestGraph(t *testing.T, directLen, rideLen float64) *Graph {
	t.Helper()
	params := DefaultParams()
	rates, factor := params.Rates, params.TimeCostFactor
	edges := []Edge{
		testEdge(1, 1, 2, METHOD_FLY, directLen/2, rates, factor),
		testEdge(2, 2, 6, METHOD_FLY, directLen/2, rates, factor),
		testEdge(3, 1, 3, METHOD_FLY, 300, rates, factor),
		testEdge(4, 3, 4, METHOD_RIDE, rideLen, rates, factor),
		testEdge(5, 4, 6, METHOD_FLY, 200, rates, factor),
	}
	graph, err := NewGraph(testNodes, edges)
	require.NoError(t, err)
	return graph
}

func TestNewGraph(t *testing.T) {
	graph := newMixedTestGraph(t, 6000, 8000)
	assert.Equal(t, 5, graph.NodesCount())
	assert.Equal(t, 5, graph.EdgesCount())

	ids := []osm.NodeID{}
	for _, node := range graph.Nodes() {
		ids = append(ids, node.ID)
	}
	assert.Equal(t, []osm.NodeID{1, 2, 3, 4, 6}, ids)

	out := graph.Outgoing(1)
	require.Len(t, out, 2)
	assert.Equal(t, osm.NodeID(2), out[0].Target)
	assert.Equal(t, osm.NodeID(3), out[1].Target)

	edge, ok := graph.Edge(3, 4)
	require.True(t, ok)
	assert.Equal(t, METHOD_RIDE, edge.Method)
	_, ok = graph.Edge(4, 3)
	assert.False(t, ok)

	bound := graph.Bound()
	assert.Equal(t, -0.100, bound.Min.Lon())
	assert.Equal(t, 51.500, bound.Min.Lat())
	assert.Equal(t, -0.050, bound.Max.Lon())
	assert.Equal(t, 51.510, bound.Max.Lat())
}

func TestNewGraphCollapsesDuplicates(t *testing.T) {
	nodes := []Node{{ID: 1, Lat: 1, Lon: 1}, {ID: 2, Lat: 2, Lon: 2}, {ID: 1, Lat: 5, Lon: 5}}
	edges := []Edge{
		{ID: 10, Source: 1, Target: 2, Method: METHOD_FLY, LengthMeters: 100, Energy: 100, Cost: 100},
		{ID: 11, Source: 1, Target: 2, Method: METHOD_RIDE, LengthMeters: 50, Energy: 1, Cost: 1},
	}
	graph, err := NewGraph(nodes, edges)
	require.NoError(t, err)
	assert.Equal(t, 2, graph.NodesCount())
	node, ok := graph.Node(1)
	require.True(t, ok)
	assert.Equal(t, 1.0, node.Lat)

	assert.Equal(t, 1, graph.EdgesCount())
	edge, ok := graph.Edge(1, 2)
	require.True(t, ok)
	assert.Equal(t, EdgeID(10), edge.ID)
	assert.Equal(t, METHOD_FLY, edge.Method)
}

func TestNewGraphRejectsInvalidEdges(t *testing.T) {
	nodes := []Node{{ID: 1}, {ID: 2}}
	valid := Edge{ID: 1, Source: 1, Target: 2, Method: METHOD_FLY, LengthMeters: 10, Energy: 10, Cost: 10}
	cases := map[string]func(e *Edge){
		"no method":       func(e *Edge) { e.Method = 0 },
		"unknown method":  func(e *Edge) { e.Method = Method(7) },
		"negative length": func(e *Edge) { e.LengthMeters = -1 },
		"nan length":      func(e *Edge) { e.LengthMeters = math.NaN() },
		"negative energy": func(e *Edge) { e.Energy = -0.5 },
		"inf energy":      func(e *Edge) { e.Energy = math.Inf(1) },
		"negative cost":   func(e *Edge) { e.Cost = -3 },
		"unknown source":  func(e *Edge) { e.Source = 99 },
		"unknown target":  func(e *Edge) { e.Target = 99 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			edge := valid
			mutate(&edge)
			_, err := NewGraph(nodes, []Edge{edge})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidEdgeData)
		})
	}
	_, err := NewGraph(nodes, []Edge{valid})
	assert.NoError(t, err)
}

func TestRecostAndFlightOnlyKeepSourceGraph(t *testing.T) {
	graph := newMixedTestGraph(t, 6000, 8000)
	rates := EnergyRates{Fly: 2, Ride: 0.1}

	recosted, err := Recost(graph, rates, 10)
	require.NoError(t, err)
	ride, ok := recosted.Edge(3, 4)
	require.True(t, ok)
	assert.InDelta(t, 800.0, ride.Energy, 1e-9)
	assert.InDelta(t, 8000.0, ride.Cost, 1e-9)
	fly, ok := recosted.Edge(1, 3)
	require.True(t, ok)
	assert.InDelta(t, 600.0, fly.Energy, 1e-9)
	assert.InDelta(t, 600.0, fly.Cost, 1e-9)

	flight, err := FlightOnly(graph, rates)
	require.NoError(t, err)
	for _, edge := range flight.Edges() {
		assert.Equal(t, METHOD_FLY, edge.Method)
		assert.InDelta(t, 2*edge.LengthMeters, edge.Energy, 1e-9)
	}

	original, ok := graph.Edge(3, 4)
	require.True(t, ok)
	assert.Equal(t, METHOD_RIDE, original.Method)
	assert.InDelta(t, 0.02*8000, original.Energy, 1e-9)
	assert.InDelta(t, 25*0.02*8000, original.Cost, 1e-9)
}

func TestRideCostWeight(t *testing.T) {
	weight := RideCostWeight(EnergyRates{Fly: 1, Ride: 0.02}, 10)
	ride := &Edge{Method: METHOD_RIDE, LengthMeters: 1000, Energy: 20, Cost: 500}
	fly := &Edge{Method: METHOD_FLY, LengthMeters: 1000, Energy: 1000, Cost: 900}
	assert.InDelta(t, 200.0, weight(ride), 1e-9)
	assert.InDelta(t, 900.0, weight(fly), 1e-9)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" Ride ")
	require.NoError(t, err)
	assert.Equal(t, METHOD_RIDE, m)
	assert.Equal(t, "fly", METHOD_FLY.String())
	assert.Equal(t, "undefined", Method(0).String())
	_, err = ParseMethod("swim")
	assert.ErrorIs(t, err, ErrInvalidEdgeData)
	_, err = ParseMethod("")
	assert.ErrorIs(t, err, ErrInvalidEdgeData)
}
