package hitchhike

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuadtreeLocator(t *testing.T) {
	graph := newMixedTestGraph(t, 6000, 8000)
	locator, err := NewQuadtreeLocator(graph)
	require.NoError(t, err)

	for _, node := range graph.Nodes() {
		id, err := locator.Nearest(node.GeoPoint())
		require.NoError(t, err)
		assert.Equal(t, node.ID, id)
	}
	id, err := locator.Nearest(GeoPoint{Lat: 51.5002, Lon: -0.1001})
	require.NoError(t, err)
	assert.Equal(t, osm.NodeID(1), id)
	// far outside the graph bound still resolves
	id, err = locator.Nearest(GeoPoint{Lat: 52, Lon: 0})
	require.NoError(t, err)
	assert.Equal(t, osm.NodeID(6), id)
}

func TestQuadtreeLocatorUsesGroundDistance(t *testing.T) {
	// 0.006 deg north is ~667 m, 0.008 deg east at this latitude is ~554 m
	nodes := []Node{
		{ID: 1, Lat: 51.506, Lon: 0},
		{ID: 2, Lat: 51.500, Lon: 0.008},
	}
	graph, err := NewGraph(nodes, nil)
	require.NoError(t, err)
	locator, err := NewQuadtreeLocator(graph)
	require.NoError(t, err)

	query := GeoPoint{Lat: 51.500, Lon: 0}
	require.Less(t, GreatCircleDistance(query, nodes[1].GeoPoint()), GreatCircleDistance(query, nodes[0].GeoPoint()))
	id, err := locator.Nearest(query)
	require.NoError(t, err)
	assert.Equal(t, osm.NodeID(2), id)
}

func TestQuadtreeLocatorMatchesExhaustiveSearch(t *testing.T) {
	nodes := []Node{}
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			nodes = append(nodes, Node{ID: osm.NodeID(i*10 + j + 1), Lat: 51.4 + 0.011*float64(i), Lon: -0.2 + 0.017*float64(j)})
		}
	}
	graph, err := NewGraph(nodes, nil)
	require.NoError(t, err)
	locator, err := NewQuadtreeLocator(graph)
	require.NoError(t, err)

	for _, query := range []GeoPoint{{Lat: 51.4033, Lon: -0.1911}, {Lat: 51.452, Lon: -0.09}, {Lat: 51.49, Lon: -0.04}, {Lat: 51.3, Lon: 0.1}} {
		want := nodes[0]
		for _, node := range nodes[1:] {
			if GreatCircleDistance(query, node.GeoPoint()) < GreatCircleDistance(query, want.GeoPoint()) {
				want = node
			}
		}
		id, err := locator.Nearest(query)
		require.NoError(t, err)
		assert.Equal(t, want.ID, id, "query %v", query)
	}
}

func TestQuadtreeLocatorDuplicateCoordinates(t *testing.T) {
	nodes := []Node{{ID: 5, Lat: 1, Lon: 1}, {ID: 6, Lat: 1, Lon: 1}, {ID: 7, Lat: 2, Lon: 2}}
	graph, err := NewGraph(nodes, nil)
	require.NoError(t, err)
	locator, err := NewQuadtreeLocator(graph)
	require.NoError(t, err)
	id, err := locator.Nearest(GeoPoint{Lat: 1, Lon: 1})
	require.NoError(t, err)
	assert.Equal(t, osm.NodeID(5), id)
}

func TestQuadtreeLocatorEmptyGraph(t *testing.T) {
	graph, err := NewGraph(nil, nil)
	require.NoError(t, err)
	_, err = NewQuadtreeLocator(graph)
	assert.ErrorIs(t, err, ErrEmptyGraph)
}
