package hitchhike

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

type edgePair struct {
	from osm.NodeID
	to   osm.NodeID
}

// Graph is a directed multi-modal network. It is never mutated after NewGraph returns,
// so a single instance can be shared by any number of concurrent queries.
type Graph struct {
	nodes    map[osm.NodeID]Node
	order    []osm.NodeID
	edges    []*Edge
	outgoing map[osm.NodeID][]*Edge
	pairs    map[edgePair]*Edge
	bound    orb.Bound
}

// NewGraph validates nodes and edges and builds adjacency.
//
// Duplicate nodes and parallel edges (same source and target) are collapsed: first occurrence wins.
// Adjacency keeps insertion order so graph search is deterministic.
func NewGraph(nodes []Node, edges []Edge) (*Graph, error) {
	graph := &Graph{
		nodes:    make(map[osm.NodeID]Node, len(nodes)),
		order:    make([]osm.NodeID, 0, len(nodes)),
		edges:    make([]*Edge, 0, len(edges)),
		outgoing: make(map[osm.NodeID][]*Edge, len(nodes)),
		pairs:    make(map[edgePair]*Edge, len(edges)),
	}
	for i, node := range nodes {
		if _, ok := graph.nodes[node.ID]; ok {
			continue
		}
		graph.nodes[node.ID] = node
		graph.order = append(graph.order, node.ID)
		if i == 0 {
			graph.bound = node.Point().Bound()
		} else {
			graph.bound = graph.bound.Extend(node.Point())
		}
	}
	for i := range edges {
		edge := edges[i]
		if err := edge.validate(); err != nil {
			return nil, err
		}
		if _, ok := graph.nodes[edge.Source]; !ok {
			return nil, errors.Wrapf(ErrInvalidEdgeData, "edge %d references unknown source node %d", edge.ID, edge.Source)
		}
		if _, ok := graph.nodes[edge.Target]; !ok {
			return nil, errors.Wrapf(ErrInvalidEdgeData, "edge %d references unknown target node %d", edge.ID, edge.Target)
		}
		pair := edgePair{from: edge.Source, to: edge.Target}
		if _, ok := graph.pairs[pair]; ok {
			continue
		}
		graph.pairs[pair] = &edge
		graph.edges = append(graph.edges, &edge)
		graph.outgoing[edge.Source] = append(graph.outgoing[edge.Source], &edge)
	}
	return graph, nil
}

// Node returns node by its identifier
func (graph *Graph) Node(id osm.NodeID) (Node, bool) {
	node, ok := graph.nodes[id]
	return node, ok
}

// HasNode reports whether node exists
func (graph *Graph) HasNode(id osm.NodeID) bool {
	_, ok := graph.nodes[id]
	return ok
}

// Nodes returns nodes in insertion order
func (graph *Graph) Nodes() []Node {
	out := make([]Node, len(graph.order))
	for i, id := range graph.order {
		out[i] = graph.nodes[id]
	}
	return out
}

// Edges returns edges in insertion order. Returned edges must not be modified.
func (graph *Graph) Edges() []*Edge {
	return graph.edges
}

// Outgoing returns edges leaving given node in insertion order
func (graph *Graph) Outgoing(id osm.NodeID) []*Edge {
	return graph.outgoing[id]
}

// Edge returns the edge between given ordered pair of nodes
func (graph *Graph) Edge(from, to osm.NodeID) (*Edge, bool) {
	edge, ok := graph.pairs[edgePair{from: from, to: to}]
	return edge, ok
}

func (graph *Graph) NodesCount() int {
	return len(graph.order)
}

func (graph *Graph) EdgesCount() int {
	return len(graph.edges)
}

// Bound returns bounding box of all nodes
func (graph *Graph) Bound() orb.Bound {
	return graph.bound
}

// copyEdges returns deep copy of edges suitable for building another graph
func (graph *Graph) copyEdges() []Edge {
	out := make([]Edge, len(graph.edges))
	for i, edge := range graph.edges {
		out[i] = *edge
	}
	return out
}
