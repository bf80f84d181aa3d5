package hitchhike

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertSameGraph(t *testing.T, expected, actual *Graph) {
	t.Helper()
	assert.Equal(t, expected.Nodes(), actual.Nodes())
	require.Equal(t, expected.EdgesCount(), actual.EdgesCount())
	for i, edge := range expected.Edges() {
		assert.Equal(t, *edge, *actual.Edges()[i])
	}
}

func TestGraphCSVRoundTrip(t *testing.T) {
	graph := newMixedTestGraph(t, 6000, 8000)
	fname := filepath.Join(t.TempDir(), "london.csv")
	require.NoError(t, graph.ExportToCSV(fname))
	assert.FileExists(t, filepath.Join(filepath.Dir(fname), "london_vertices.csv"))

	loaded, err := LoadGraph(fname)
	require.NoError(t, err)
	assertSameGraph(t, graph, loaded)
}

func TestWriteGraphCSVFormat(t *testing.T) {
	graph := newMixedTestGraph(t, 6000, 8000)
	var vertices, edges bytes.Buffer
	require.NoError(t, graph.WriteVerticesCSV(&vertices))
	require.NoError(t, graph.WriteEdgesCSV(&edges))

	vlines := strings.Split(strings.TrimSpace(vertices.String()), "\n")
	require.Len(t, vlines, 6)
	assert.Equal(t, "vertex_id;lat;lon;geom", vlines[0])
	assert.Equal(t, "1;51.5;-0.1;POINT(-0.1 51.5)", vlines[1])

	elines := strings.Split(strings.TrimSpace(edges.String()), "\n")
	require.Len(t, elines, 6)
	assert.Equal(t, "edge_id;from_vertex_id;to_vertex_id;osm_way_id;method;length_meters;energy;cost;oneway;geom", elines[0])
	assert.Equal(t, "4;3;4;0;ride;8000;160;4000;false;LINESTRING(-0.099 51.501,-0.051 51.509)", elines[4])
}

const testVerticesCSV = `vertex_id;lat;lon;geom
1;51.5;-0.1;POINT(-0.1 51.5)
2;;;POINT(-0.08 51.505)
`

func TestReadGraphCSV(t *testing.T) {
	edges := "from_vertex_id;to_vertex_id;method;length_meters;energy\n1;2;fly;100;100\n2;1;ride;100;2\n"
	graph, err := ReadGraphCSV(strings.NewReader(testVerticesCSV), strings.NewReader(edges))
	require.NoError(t, err)

	node, ok := graph.Node(2)
	require.True(t, ok)
	assert.InDelta(t, 51.505, node.Lat, 1e-12)
	assert.InDelta(t, -0.08, node.Lon, 1e-12)

	edge, ok := graph.Edge(2, 1)
	require.True(t, ok)
	assert.Equal(t, METHOD_RIDE, edge.Method)
	assert.Equal(t, EdgeID(1), edge.ID)
	// cost falls back to energy
	assert.Equal(t, 2.0, edge.Cost)
}

func TestReadGraphCSVRejectsInvalidEdges(t *testing.T) {
	header := "edge_id;from_vertex_id;to_vertex_id;osm_way_id;method;length_meters;energy;cost;oneway;geom\n"
	cases := map[string]string{
		"missing method":  "1;1;2;0;;100;100;100;false;\n",
		"unknown method":  "1;1;2;0;walk;100;100;100;false;\n",
		"missing length":  "1;1;2;0;fly;;100;100;false;\n",
		"bad length":      "1;1;2;0;fly;abc;100;100;false;\n",
		"missing energy":  "1;1;2;0;fly;100;;100;false;\n",
		"negative energy": "1;1;2;0;fly;100;-5;100;false;\n",
		"negative length": "1;1;2;0;fly;-100;5;5;false;\n",
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadGraphCSV(strings.NewReader(testVerticesCSV), strings.NewReader(header+row))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidEdgeData)
		})
	}
	_, err := ReadGraphCSV(strings.NewReader(testVerticesCSV), strings.NewReader("from_vertex_id;method\n1;fly\n"))
	assert.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	graph := newMixedTestGraph(t, 6000, 8000)
	var buf bytes.Buffer
	require.NoError(t, graph.SaveSnapshot(&buf))
	loaded, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	assertSameGraph(t, graph, loaded)

	fname := filepath.Join(t.TempDir(), "london"+snapshotExt)
	require.NoError(t, graph.ExportSnapshot(fname))
	loaded, err = LoadGraph(fname)
	require.NoError(t, err)
	assertSameGraph(t, graph, loaded)

	_, err = ReadSnapshot(strings.NewReader("definitely not zstd"))
	assert.Error(t, err)
}
