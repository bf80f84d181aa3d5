package hitchhike

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// Node is a geographic vertex of the multi-modal network
type Node struct {
	ID  osm.NodeID
	Lat float64
	Lon float64
}

// GeoPoint returns location of the node
func (node Node) GeoPoint() GeoPoint {
	return GeoPoint{Lat: node.Lat, Lon: node.Lon}
}

// Point returns location of the node as orb.Point (X == Lon, Y == Lat)
func (node Node) Point() orb.Point {
	return orb.Point{node.Lon, node.Lat}
}
