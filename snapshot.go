package hitchhike

import (
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

const snapshotExt = ".msgpack.zst"

const snapshotVersion = 1

type snapshotNode struct {
	ID  int64   `msgpack:"id"`
	Lat float64 `msgpack:"lat"`
	Lon float64 `msgpack:"lon"`
}

type snapshotEdge struct {
	ID     int64   `msgpack:"id"`
	Source int64   `msgpack:"s"`
	Target int64   `msgpack:"t"`
	WayID  int64   `msgpack:"w"`
	Method uint16  `msgpack:"m"`
	Length float64 `msgpack:"len"`
	Energy float64 `msgpack:"e"`
	Cost   float64 `msgpack:"c"`
	Oneway bool    `msgpack:"o"`
}

// graphSnapshot is the on-disk form: msgpack encoded, zstd compressed
type graphSnapshot struct {
	Version int            `msgpack:"version"`
	Nodes   []snapshotNode `msgpack:"nodes"`
	Edges   []snapshotEdge `msgpack:"edges"`
}

// SaveSnapshot writes graph to w
func (graph *Graph) SaveSnapshot(w io.Writer) error {
	snap := graphSnapshot{
		Version: snapshotVersion,
		Nodes:   make([]snapshotNode, 0, graph.NodesCount()),
		Edges:   make([]snapshotEdge, 0, graph.EdgesCount()),
	}
	for _, node := range graph.Nodes() {
		snap.Nodes = append(snap.Nodes, snapshotNode{ID: int64(node.ID), Lat: node.Lat, Lon: node.Lon})
	}
	for _, edge := range graph.Edges() {
		snap.Edges = append(snap.Edges, snapshotEdge{
			ID:     int64(edge.ID),
			Source: int64(edge.Source),
			Target: int64(edge.Target),
			WayID:  int64(edge.WayID),
			Method: uint16(edge.Method),
			Length: edge.LengthMeters,
			Energy: edge.Energy,
			Cost:   edge.Cost,
			Oneway: edge.Oneway,
		})
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return errors.Wrap(err, "Can't create zstd writer")
	}
	defer zw.Close()
	if err := msgpack.NewEncoder(zw).Encode(&snap); err != nil {
		return errors.Wrap(err, "Can't encode snapshot")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "Can't close zstd writer")
	}
	return nil
}

// ReadSnapshot reads graph written by SaveSnapshot. Edges are validated as for any other source.
func ReadSnapshot(r io.Reader) (*Graph, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "Can't create zstd reader")
	}
	defer zr.Close()

	var snap graphSnapshot
	if err := msgpack.NewDecoder(zr).Decode(&snap); err != nil {
		return nil, errors.Wrap(err, "Can't decode snapshot")
	}
	if snap.Version != snapshotVersion {
		return nil, errors.Errorf("Unsupported snapshot version %d", snap.Version)
	}
	nodes := make([]Node, len(snap.Nodes))
	for i, n := range snap.Nodes {
		nodes[i] = Node{ID: osm.NodeID(n.ID), Lat: n.Lat, Lon: n.Lon}
	}
	edges := make([]Edge, len(snap.Edges))
	for i, e := range snap.Edges {
		edges[i] = Edge{
			ID:           EdgeID(e.ID),
			Source:       osm.NodeID(e.Source),
			Target:       osm.NodeID(e.Target),
			WayID:        osm.WayID(e.WayID),
			Method:       Method(e.Method),
			LengthMeters: e.Length,
			Energy:       e.Energy,
			Cost:         e.Cost,
			Oneway:       e.Oneway,
		}
	}
	return NewGraph(nodes, edges)
}

// ExportSnapshot writes graph into file, conventionally named *.msgpack.zst
func (graph *Graph) ExportSnapshot(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()
	if err := graph.SaveSnapshot(file); err != nil {
		return err
	}
	return file.Close()
}

// ImportSnapshot reads graph from file written by ExportSnapshot
func ImportSnapshot(fname string) (*Graph, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open snapshot")
	}
	defer file.Close()
	return ReadSnapshot(file)
}
