package hitchhike

import (
	"math"

	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

type EdgeID int64

// Edge is a directed connection between two nodes annotated with travel method and costs.
// Energy is the physical energy used for reporting and sizing, Cost is the search weight.
type Edge struct {
	ID           EdgeID
	Source       osm.NodeID
	Target       osm.NodeID
	WayID        osm.WayID
	Method       Method
	LengthMeters float64
	Energy       float64
	Cost         float64
	Oneway       bool
}

func (edge *Edge) validate() error {
	if edge.Method != METHOD_FLY && edge.Method != METHOD_RIDE {
		return errors.Wrapf(ErrInvalidEdgeData, "edge %d (%d->%d) has no travel method", edge.ID, edge.Source, edge.Target)
	}
	if math.IsNaN(edge.LengthMeters) || math.IsInf(edge.LengthMeters, 0) || edge.LengthMeters < 0 {
		return errors.Wrapf(ErrInvalidEdgeData, "edge %d (%d->%d) has bad length %f", edge.ID, edge.Source, edge.Target, edge.LengthMeters)
	}
	if math.IsNaN(edge.Energy) || math.IsInf(edge.Energy, 0) || edge.Energy < 0 {
		return errors.Wrapf(ErrInvalidEdgeData, "edge %d (%d->%d) has bad energy %f", edge.ID, edge.Source, edge.Target, edge.Energy)
	}
	if math.IsNaN(edge.Cost) || math.IsInf(edge.Cost, 0) || edge.Cost < 0 {
		return errors.Wrapf(ErrInvalidEdgeData, "edge %d (%d->%d) has bad cost %f", edge.ID, edge.Source, edge.Target, edge.Cost)
	}
	return nil
}
