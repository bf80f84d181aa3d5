package hitchhike

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

var (
	verticesHeader = []string{"vertex_id", "lat", "lon", "geom"}
	edgesHeader    = []string{"edge_id", "from_vertex_id", "to_vertex_id", "osm_way_id", "method", "length_meters", "energy", "cost", "oneway", "geom"}
)

// verticesFilename returns name of the vertices file paired with edges file
func verticesFilename(fname string) string {
	fnameParts := strings.Split(fname, ".csv")
	return fnameParts[0] + "_vertices.csv"
}

// ExportToCSV writes graph as two ';' separated files: edges into fname and vertices into <fname>_vertices.csv
func (graph *Graph) ExportToCSV(fname string) error {
	err := graph.exportVerticesToCSV(verticesFilename(fname))
	if err != nil {
		return errors.Wrap(err, "Can't export vertices")
	}
	err = graph.exportEdgesToCSV(fname)
	if err != nil {
		return errors.Wrap(err, "Can't export edges")
	}
	return nil
}

func (graph *Graph) exportVerticesToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()
	return graph.WriteVerticesCSV(file)
}

func (graph *Graph) exportEdgesToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()
	return graph.WriteEdgesCSV(file)
}

// WriteVerticesCSV writes nodes in insertion order
func (graph *Graph) WriteVerticesCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	err := writer.Write(verticesHeader)
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	for _, node := range graph.Nodes() {
		err = writer.Write([]string{
			fmt.Sprintf("%d", node.ID),
			strconv.FormatFloat(node.Lat, 'f', -1, 64),
			strconv.FormatFloat(node.Lon, 'f', -1, 64),
			wkt.MarshalString(node.Point()),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write vertex")
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteEdgesCSV writes edges in insertion order
func (graph *Graph) WriteEdgesCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	err := writer.Write(edgesHeader)
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	for _, edge := range graph.Edges() {
		err = writer.Write([]string{
			fmt.Sprintf("%d", edge.ID),
			fmt.Sprintf("%d", edge.Source),
			fmt.Sprintf("%d", edge.Target),
			fmt.Sprintf("%d", edge.WayID),
			edge.Method.String(),
			strconv.FormatFloat(edge.LengthMeters, 'f', -1, 64),
			strconv.FormatFloat(edge.Energy, 'f', -1, 64),
			strconv.FormatFloat(edge.Cost, 'f', -1, 64),
			strconv.FormatBool(edge.Oneway),
			wkt.MarshalString(edgeLineString(graph, edge)),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write edge")
		}
	}
	writer.Flush()
	return writer.Error()
}

// ImportFromCSV reads graph from edges file fname and vertices file <fname>_vertices.csv
func ImportFromCSV(fname string) (*Graph, error) {
	vfile, err := os.Open(verticesFilename(fname))
	if err != nil {
		return nil, errors.Wrap(err, "Can't open vertices file")
	}
	defer vfile.Close()
	efile, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open edges file")
	}
	defer efile.Close()
	return ReadGraphCSV(vfile, efile)
}

// ReadGraphCSV parses vertices and edges tables. Columns are looked up by header name.
// Vertex coordinates fall back to WKT geometry when lat/lon are empty.
// Edge cost falls back to energy when the column is absent or empty.
func ReadGraphCSV(vertices, edges io.Reader) (*Graph, error) {
	nodes, err := readVerticesCSV(vertices)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read vertices")
	}
	edgesList, err := readEdgesCSV(edges)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read edges")
	}
	return NewGraph(nodes, edgesList)
}

type csvTable struct {
	columns map[string]int
	reader  *csv.Reader
	line    int
}

func newCSVTable(r io.Reader, required ...string) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "Can't read header")
	}
	table := &csvTable{
		columns: make(map[string]int, len(header)),
		reader:  reader,
		line:    1,
	}
	for i, name := range header {
		table.columns[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := table.columns[name]; !ok {
			return nil, errors.Errorf("Column '%s' is missing", name)
		}
	}
	return table, nil
}

func (table *csvTable) next() ([]string, error) {
	table.line++
	return table.reader.Read()
}

// value returns trimmed field or empty string if column is absent
func (table *csvTable) value(record []string, name string) string {
	idx, ok := table.columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func readVerticesCSV(r io.Reader) ([]Node, error) {
	table, err := newCSVTable(r, "vertex_id")
	if err != nil {
		return nil, err
	}
	nodes := []Node{}
	for {
		record, err := table.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Can't read line %d", table.line)
		}
		id, err := strconv.ParseInt(table.value(record, "vertex_id"), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't parse vertex_id on line %d", table.line)
		}
		node := Node{ID: osm.NodeID(id)}
		latStr, lonStr := table.value(record, "lat"), table.value(record, "lon")
		if latStr == "" || lonStr == "" {
			pt, err := parseWKTPoint(table.value(record, "geom"))
			if err != nil {
				return nil, errors.Wrapf(err, "Vertex %d on line %d has no coordinates", id, table.line)
			}
			node.Lat, node.Lon = pt.Lat, pt.Lon
		} else {
			node.Lat, err = strconv.ParseFloat(latStr, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "Can't parse lat on line %d", table.line)
			}
			node.Lon, err = strconv.ParseFloat(lonStr, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "Can't parse lon on line %d", table.line)
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func readEdgesCSV(r io.Reader) ([]Edge, error) {
	table, err := newCSVTable(r, "from_vertex_id", "to_vertex_id")
	if err != nil {
		return nil, err
	}
	edges := []Edge{}
	for {
		record, err := table.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Can't read line %d", table.line)
		}
		edge, err := table.parseEdge(record, len(edges))
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

func (table *csvTable) parseEdge(record []string, idx int) (Edge, error) {
	edge := Edge{ID: EdgeID(idx)}
	if s := table.value(record, "edge_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return edge, errors.Wrapf(err, "Can't parse edge_id on line %d", table.line)
		}
		edge.ID = EdgeID(id)
	}
	source, err := strconv.ParseInt(table.value(record, "from_vertex_id"), 10, 64)
	if err != nil {
		return edge, errors.Wrapf(err, "Can't parse from_vertex_id on line %d", table.line)
	}
	target, err := strconv.ParseInt(table.value(record, "to_vertex_id"), 10, 64)
	if err != nil {
		return edge, errors.Wrapf(err, "Can't parse to_vertex_id on line %d", table.line)
	}
	edge.Source, edge.Target = osm.NodeID(source), osm.NodeID(target)
	if s := table.value(record, "osm_way_id"); s != "" {
		wayID, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return edge, errors.Wrapf(err, "Can't parse osm_way_id on line %d", table.line)
		}
		edge.WayID = osm.WayID(wayID)
	}
	edge.Method, err = ParseMethod(table.value(record, "method"))
	if err != nil {
		return edge, errors.Wrapf(err, "line %d", table.line)
	}
	edge.LengthMeters, err = table.requiredFloat(record, "length_meters")
	if err != nil {
		return edge, err
	}
	edge.Energy, err = table.requiredFloat(record, "energy")
	if err != nil {
		return edge, err
	}
	edge.Cost = edge.Energy
	if s := table.value(record, "cost"); s != "" {
		edge.Cost, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return edge, errors.Wrapf(ErrInvalidEdgeData, "bad cost '%s' on line %d", s, table.line)
		}
	}
	if s := table.value(record, "oneway"); s != "" {
		edge.Oneway, err = strconv.ParseBool(s)
		if err != nil {
			return edge, errors.Wrapf(err, "Can't parse oneway on line %d", table.line)
		}
	}
	return edge, nil
}

func (table *csvTable) requiredFloat(record []string, name string) (float64, error) {
	s := table.value(record, name)
	if s == "" {
		return 0, errors.Wrapf(ErrInvalidEdgeData, "missing %s on line %d", name, table.line)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidEdgeData, "bad %s '%s' on line %d", name, s, table.line)
	}
	return v, nil
}

// LoadGraph reads graph from CSV pair or from msgpack+zstd snapshot depending on file extension
func LoadGraph(fname string) (*Graph, error) {
	if strings.HasSuffix(fname, snapshotExt) {
		return ImportSnapshot(fname)
	}
	return ImportFromCSV(fname)
}
