package hitchhike

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/LdDl/ch"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// PathFinder computes minimum-weight path between two graph nodes
type PathFinder interface {
	ShortestPath(source, target osm.NodeID) (float64, []osm.NodeID, error)
}

// DijkstraFinder is exact deterministic search straight over the Graph adjacency
type DijkstraFinder struct {
	graph  *Graph
	weight WeightFunc
}

func NewDijkstraFinder(graph *Graph, weight WeightFunc) *DijkstraFinder {
	return &DijkstraFinder{graph: graph, weight: weight}
}

func (finder *DijkstraFinder) ShortestPath(source, target osm.NodeID) (float64, []osm.NodeID, error) {
	return shortestPath(finder.graph, source, target, finder.weight)
}

// CHFinder answers queries over contraction hierarchies prepared once for a fixed weight.
// It pays off for large batch runs where preprocessing is amortized over many queries.
type CHFinder struct {
	graph *Graph
	// queries share internal buffers of ch.Graph
	mu sync.Mutex
	ch ch.Graph
}

// NewCHFinder builds and contracts ch.Graph for given weight
func NewCHFinder(graph *Graph, weight WeightFunc, verbose bool) (*CHFinder, error) {
	finder := &CHFinder{
		graph: graph,
		ch:    ch.Graph{},
	}
	for _, node := range graph.Nodes() {
		err := finder.ch.CreateVertex(int64(node.ID))
		if err != nil {
			return nil, errors.Wrapf(err, "Can't create vertex %d", node.ID)
		}
	}
	for _, edge := range graph.Edges() {
		err := finder.ch.AddEdge(int64(edge.Source), int64(edge.Target), weight(edge))
		if err != nil {
			return nil, errors.Wrapf(err, "Can't add edge %d->%d", edge.Source, edge.Target)
		}
	}
	if verbose {
		fmt.Printf("Starting contraction process for %d vertices...", graph.NodesCount())
	}
	st := time.Now()
	finder.ch.PrepareContractionHierarchies()
	if verbose {
		fmt.Printf("Done in %v\n", time.Since(st))
	}
	return finder, nil
}

func (finder *CHFinder) ShortestPath(source, target osm.NodeID) (float64, []osm.NodeID, error) {
	if !finder.graph.HasNode(source) {
		return -1, nil, errors.Wrapf(ErrNodeNotFound, "source %d", source)
	}
	if !finder.graph.HasNode(target) {
		return -1, nil, errors.Wrapf(ErrNodeNotFound, "target %d", target)
	}
	if source == target {
		return 0, []osm.NodeID{source}, nil
	}
	finder.mu.Lock()
	cost, labels := finder.ch.ShortestPath(int64(source), int64(target))
	finder.mu.Unlock()
	if cost < 0 || len(labels) == 0 {
		return -1, nil, errors.Wrapf(ErrNoRouteFound, "%d -> %d", source, target)
	}
	path := make([]osm.NodeID, len(labels))
	for i, label := range labels {
		path[i] = osm.NodeID(label)
	}
	return cost, path, nil
}

// FinderKind selects PathFinder implementation
type FinderKind uint16

const (
	FINDER_DIJKSTRA = FinderKind(iota + 1)
	FINDER_CH
)

func (iotaIdx FinderKind) String() string {
	if iotaIdx < FINDER_DIJKSTRA || iotaIdx > FINDER_CH {
		return "undefined"
	}
	return [...]string{"dijkstra", "ch"}[iotaIdx-1]
}

// ParseFinderKind parses "dijkstra" / "ch"
func ParseFinderKind(s string) (FinderKind, error) {
	switch strings.ToLower(s) {
	case "dijkstra", "":
		return FINDER_DIJKSTRA, nil
	case "ch":
		return FINDER_CH, nil
	}
	return 0, errors.Errorf("unknown router '%s'", s)
}

// NewPathFinder builds finder of given kind
func NewPathFinder(kind FinderKind, graph *Graph, weight WeightFunc, verbose bool) (PathFinder, error) {
	switch kind {
	case FINDER_CH:
		return NewCHFinder(graph, weight, verbose)
	default:
		return NewDijkstraFinder(graph, weight), nil
	}
}
