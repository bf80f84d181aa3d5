package hitchhike

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// nearestCandidates is how many planar neighbours are re-ranked by great circle distance
const nearestCandidates = 8

// NodeLocator resolves a coordinate into the closest graph node
type NodeLocator interface {
	Nearest(pt GeoPoint) (osm.NodeID, error)
}

// QuadtreeLocator indexes graph nodes in a quadtree over local equirectangular plane
// (longitude scaled by cosine of the graph's central latitude) and picks the closest
// of nearby candidates by great circle distance
type QuadtreeLocator struct {
	tree   *quadtree.Quadtree
	lonCos float64
}

// indexedNode is a node projected onto the locator plane
type indexedNode struct {
	node  Node
	order int
	plane orb.Point
}

func (in indexedNode) Point() orb.Point {
	return in.plane
}

// NewQuadtreeLocator indexes every node of the graph. Nodes sharing exact coordinates
// are indexed once (first occurrence).
func NewQuadtreeLocator(graph *Graph) (*QuadtreeLocator, error) {
	if graph.NodesCount() == 0 {
		return nil, ErrEmptyGraph
	}
	locator := &QuadtreeLocator{
		lonCos: math.Cos(degreesToRadians(graph.Bound().Center().Lat())),
	}
	indexed := make([]indexedNode, 0, graph.NodesCount())
	seen := make(map[orb.Point]struct{}, graph.NodesCount())
	bound := orb.Bound{}
	for i, node := range graph.Nodes() {
		pt := node.Point()
		if _, ok := seen[pt]; ok {
			continue
		}
		seen[pt] = struct{}{}
		plane := locator.project(pt)
		if len(indexed) == 0 {
			bound = plane.Bound()
		} else {
			bound = bound.Extend(plane)
		}
		indexed = append(indexed, indexedNode{node: node, order: i, plane: plane})
	}
	locator.tree = quadtree.New(bound.Pad(1e-6))
	for _, in := range indexed {
		err := locator.tree.Add(in)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't index node %d", in.node.ID)
		}
	}
	return locator, nil
}

func (locator *QuadtreeLocator) project(pt orb.Point) orb.Point {
	return orb.Point{pt.Lon() * locator.lonCos, pt.Lat()}
}

// Nearest returns the node with the smallest great circle distance among planar candidates.
// Equal distances resolve to the node added to the graph first.
func (locator *QuadtreeLocator) Nearest(pt GeoPoint) (osm.NodeID, error) {
	candidates := locator.tree.KNearest(nil, locator.project(pt.Point()), nearestCandidates)
	if len(candidates) == 0 {
		return 0, ErrEmptyGraph
	}
	var best indexedNode
	bestDist := math.Inf(1)
	for _, candidate := range candidates {
		in, ok := candidate.(indexedNode)
		if !ok {
			return 0, errors.Errorf("unexpected quadtree value %T", candidate)
		}
		dist := GreatCircleDistance(pt, in.node.GeoPoint())
		if dist < bestDist || (dist == bestDist && in.order < best.order) {
			best, bestDist = in, dist
		}
	}
	return best.node.ID, nil
}
