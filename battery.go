package hitchhike

import (
	"math"

	"github.com/pkg/errors"
)

// BatterySizing is the outcome of battery sizing for a single route
type BatterySizing struct {
	// Smallest mass satisfying the energy balance before quantization (g)
	MinMassG float64
	// Number of battery increments
	Units int
	// Quantized battery mass (g) and its capacity (Wh)
	MassG      float64
	CapacityWh float64
	// Flight energy of the round trip at the quantized mass, hover reserve excluded (Wh)
	TotalEnergyWh float64
	// Charge received on outbound and return rides (Wh)
	ChargeReceived1Wh float64
	ChargeReceived2Wh float64
	// Whether a ride hit the deliverable-charge ceiling
	ChargeSaturated1 bool
	ChargeSaturated2 bool
	// Max charge deliverable during one ride (Wh), zero without charging
	MaxChargeWh float64
}

// energyModel keeps energies of every stage as polynomials of battery mass
type energyModel struct {
	// outbound (with payload) and return (empty) energy of each flight leg
	forward1, forward2 poly2
	return1, return2   poly2
	hover              poly2
}

func (model energyModel) total() poly2 {
	return model.forward1.add(model.forward2).add(model.return1).add(model.return2)
}

func (model energyModel) required() poly2 {
	return model.total().add(model.hover)
}

// consumed1 is energy spent since departure when the outbound ride starts
func (model energyModel) consumed1() poly2 {
	return model.forward1
}

// consumed2 is energy spent since the outbound ride when the return ride starts
func (model energyModel) consumed2() poly2 {
	return model.forward2.add(model.return2)
}

// powerPoly returns hover power of a drone of mass (base + m) plus misc draw, as polynomial of m
func powerPoly(params Params, base float64) poly2 {
	// 4*(a*(M/4)^2 + b*(M/4)) == a/4*M^2 + b*M
	a := params.ThrustA / 4
	b := params.ThrustB
	return poly2{
		c0: a*base*base + b*base + params.MiscPower,
		c1: 2*a*base + b,
		c2: a,
	}
}

// legHours returns one-way flight time of a leg including take-off/landing penalty
func legHours(params Params, lengthMeters float64) float64 {
	return ((lengthMeters + params.TOLPenaltyMeters) / params.CruiseSpeed) / 3600.0
}

func newEnergyModel(params Params, flight1M, rideM, flight2M, payloadG float64, carryWPT bool) energyModel {
	fullBase := params.BaseMass + payloadG
	emptyBase := params.BaseMass
	if carryWPT {
		fullBase += params.WPTMass
		emptyBase += params.WPTMass
	}
	fullW := powerPoly(params, fullBase)
	emptyW := powerPoly(params, emptyBase)

	t1 := legHours(params, flight1M)
	t2 := 0.0
	if rideM != 0 {
		// second take-off/landing cycle only exists when the drone leaves the bus
		t2 = legHours(params, flight2M)
	}
	return energyModel{
		forward1: fullW.scale(t1),
		forward2: fullW.scale(t2),
		return1:  emptyW.scale(t1),
		return2:  emptyW.scale(t2),
		hover:    fullW.scale(params.HoverSafetyTime),
	}
}

type chargeBranch struct {
	saturated1 bool
	saturated2 bool
}

// Non-saturating branches first: on ties the earlier branch is kept
var chargeBranches = [...]chargeBranch{
	{false, false},
	{false, true},
	{true, false},
	{true, true},
}

// SizeBattery finds the smallest available battery for a route given by its three legs (meters).
// Lengths are one-way; the round trip is accounted for internally. charge == nil disables WPT.
func SizeBattery(flight1M, rideM, flight2M, payloadG float64, charge *ChargeRate, params Params) (BatterySizing, error) {
	for _, v := range []float64{flight1M, rideM, flight2M, payloadG} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return BatterySizing{}, errors.Wrapf(ErrInvalidParams, "lengths and payload must be finite and non-negative, got %f", v)
		}
	}
	model := newEnergyModel(params, flight1M, rideM, flight2M, payloadG, charge != nil)
	// usable energy per gram of battery
	k := params.SafeDischarge * params.EnergyDensity
	kPoly := poly2{c1: k}

	sizing := BatterySizing{}
	charging := charge != nil && rideM > 0
	maxCh := 0.0
	if charging {
		rideHours := (rideM / 1000.0) / params.BusSpeed
		maxCh = charge.Deliverable(rideHours)
		sizing.MaxChargeWh = maxCh
	}

	minMass := math.NaN()
	if !charging {
		roots := model.required().sub(kPoly).positiveRoots()
		if len(roots) > 0 {
			minMass = roots[0]
		}
	} else {
		tol := 1e-9 * math.Max(1, maxCh)
		for _, branch := range chargeBranches {
			rhs := model.required()
			if branch.saturated1 {
				rhs = rhs.sub(constPoly(maxCh))
			} else {
				rhs = rhs.sub(model.consumed1())
			}
			if branch.saturated2 {
				rhs = rhs.sub(constPoly(maxCh))
			} else {
				rhs = rhs.sub(model.consumed2())
			}
			for _, m := range rhs.sub(kPoly).positiveRoots() {
				if !branchHolds(branch.saturated1, model.consumed1().at(m), maxCh, tol) {
					continue
				}
				if !branchHolds(branch.saturated2, model.consumed2().at(m), maxCh, tol) {
					continue
				}
				if math.IsNaN(minMass) || m < minMass-tol {
					minMass = m
				}
				break
			}
		}
	}
	if math.IsNaN(minMass) {
		return BatterySizing{}, errors.Wrapf(ErrInfeasibleBattery, "payload %.1fg, legs %.1fm/%.1fm/%.1fm", payloadG, flight1M, rideM, flight2M)
	}

	step := params.MassStep()
	units := int(math.Ceil(minMass / step))
	for float64(units)*step < minMass {
		units++
	}
	for units > 1 && float64(units-1)*step >= minMass {
		units--
	}
	if units < 1 {
		units = 1
	}
	mass := float64(units) * step

	sizing.MinMassG = minMass
	sizing.Units = units
	sizing.MassG = mass
	sizing.CapacityWh = mass * params.EnergyDensity
	sizing.TotalEnergyWh = model.total().at(mass)
	if charging {
		sizing.ChargeReceived1Wh, sizing.ChargeSaturated1 = received(model.consumed1().at(mass), maxCh)
		sizing.ChargeReceived2Wh, sizing.ChargeSaturated2 = received(model.consumed2().at(mass), maxCh)
	}
	return sizing, nil
}

func branchHolds(saturated bool, consumed, maxCh, tol float64) bool {
	if saturated {
		return consumed >= maxCh-tol
	}
	return consumed <= maxCh+tol
}

// received returns charge delivered during a ride and whether the ceiling was hit.
// Equality counts as non-saturated.
func received(consumed, maxCh float64) (float64, bool) {
	if consumed > maxCh {
		return maxCh, true
	}
	return consumed, false
}
