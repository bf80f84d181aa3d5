package hitchhike

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
)

// edgeLineString returns straight segment between edge endpoints
func edgeLineString(graph *Graph, edge *Edge) orb.LineString {
	source, _ := graph.Node(edge.Source)
	target, _ := graph.Node(edge.Target)
	return orb.LineString{source.Point(), target.Point()}
}

// PrepareWKTLinestring returns WKT representation of LineString
func PrepareWKTLinestring(pts []GeoPoint) string {
	line := make(orb.LineString, len(pts))
	for i := range pts {
		line[i] = pts[i].Point()
	}
	return wkt.MarshalString(line)
}

// PrepareWKTPoint returns WKT representation of Point
func PrepareWKTPoint(pt GeoPoint) string {
	return wkt.MarshalString(pt.Point())
}

// parseWKTPoint extracts coordinates from WKT POINT
func parseWKTPoint(s string) (GeoPoint, error) {
	pt, err := wkt.UnmarshalPoint(s)
	if err != nil {
		return GeoPoint{}, errors.Wrapf(err, "Can't parse WKT point '%s'", s)
	}
	return GeoPoint{Lat: pt.Lat(), Lon: pt.Lon()}, nil
}

// RouteWKT returns WKT LineString of the whole route
func RouteWKT(route *Route, graph *Graph) (string, error) {
	nodes, err := routeNodes(route, graph)
	if err != nil {
		return "", err
	}
	pts := make([]GeoPoint, len(nodes))
	for i := range nodes {
		pts[i] = nodes[i].GeoPoint()
	}
	return PrepareWKTLinestring(pts), nil
}

func routeNodes(route *Route, graph *Graph) ([]Node, error) {
	nodes := make([]Node, len(route.Nodes))
	for i, id := range route.Nodes {
		node, ok := graph.Node(id)
		if !ok {
			return nil, errors.Wrapf(ErrNodeNotFound, "route node %d", id)
		}
		nodes[i] = node
	}
	return nodes, nil
}
