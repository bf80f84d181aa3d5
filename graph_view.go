package hitchhike

import (
	"strings"

	"github.com/pkg/errors"
)

// WeightFunc maps an edge to a non-negative search weight
type WeightFunc func(edge *Edge) float64

// WeightCost uses blended cost attribute of an edge
func WeightCost(edge *Edge) float64 { return edge.Cost }

// WeightEnergy uses physical energy attribute of an edge
func WeightEnergy(edge *Edge) float64 { return edge.Energy }

// WeightLength treats every edge as flown: physical length in meters
func WeightLength(edge *Edge) float64 { return edge.LengthMeters }

// ParseWeight converts attribute name into WeightFunc
func ParseWeight(attr string) (WeightFunc, error) {
	switch strings.ToLower(attr) {
	case "cost":
		return WeightCost, nil
	case "energy":
		return WeightEnergy, nil
	case "length":
		return WeightLength, nil
	}
	return nil, errors.Errorf("unknown weight attribute '%s'", attr)
}

// EnergyRates are energy consumptions per meter for each travel method
type EnergyRates struct {
	Fly  float64 `json:"fly"`
	Ride float64 `json:"ride"`
}

func (rates EnergyRates) forMethod(method Method) float64 {
	if method == METHOD_RIDE {
		return rates.Ride
	}
	return rates.Fly
}

// RideCostWeight returns side-table weighting where ride edges cost factor*rate*length
// and flight edges keep their own cost. Graph itself stays untouched.
func RideCostWeight(rates EnergyRates, costFactor float64) WeightFunc {
	return func(edge *Edge) float64 {
		if edge.Method == METHOD_RIDE {
			return costFactor * rates.Ride * edge.LengthMeters
		}
		return edge.Cost
	}
}

// Recost returns a new graph where energy = rate*length and cost = energy,
// with ride costs additionally multiplied by costFactor.
func Recost(graph *Graph, rates EnergyRates, costFactor float64) (*Graph, error) {
	edges := graph.copyEdges()
	for i := range edges {
		rate := rates.forMethod(edges[i].Method)
		edges[i].Energy = rate * edges[i].LengthMeters
		edges[i].Cost = edges[i].Energy
		if edges[i].Method == METHOD_RIDE {
			edges[i].Cost *= costFactor
		}
	}
	return NewGraph(graph.Nodes(), edges)
}

// FlightOnly returns a new graph where every edge is flown
func FlightOnly(graph *Graph, rates EnergyRates) (*Graph, error) {
	edges := graph.copyEdges()
	for i := range edges {
		edges[i].Method = METHOD_FLY
		edges[i].Energy = rates.Fly * edges[i].LengthMeters
		edges[i].Cost = edges[i].Energy
	}
	return NewGraph(graph.Nodes(), edges)
}
