package hitchhike

import (
	"github.com/paulmach/osm"
)

// SizingResult is one row of battery sizing output. It is never mutated after creation.
type SizingResult struct {
	GeodesicDistanceKm float64    `csv:"geodesic_distance_km"`
	BatteryCapacityWh  float64    `csv:"battery_capacity_wh"`
	BatteryMassG       float64    `csv:"battery_mass_g"`
	TotalEnergyWh      float64    `csv:"total_energy_wh"`
	Flight1Km          float64    `csv:"flight1_km"`
	RideKm             float64    `csv:"ride_km"`
	Flight2Km          float64    `csv:"flight2_km"`
	ChargeReceived1Wh  float64    `csv:"charge_received_1_wh"`
	ChargeReceived2Wh  float64    `csv:"charge_received_2_wh"`
	ChargeSaturated1   bool       `csv:"charge_saturated_1"`
	ChargeSaturated2   bool       `csv:"charge_saturated_2"`
	PayloadMassG       float64    `csv:"payload_mass_g"`
	DestinationNode    osm.NodeID `csv:"destination_node_id"`
	BatteryUnits       int        `csv:"battery_units"`
	ChargeMode         string     `csv:"charge_mode"`
	Mixed              bool       `csv:"mixed"`
	TravelTimeMin      float64    `csv:"travel_time_min"`
}

func newSizingResult(distanceKm float64, lengths PathLengths, sizing BatterySizing, payloadG float64, charge ChargeMode) *SizingResult {
	return &SizingResult{
		GeodesicDistanceKm: distanceKm,
		BatteryCapacityWh:  sizing.CapacityWh,
		BatteryMassG:       sizing.MassG,
		TotalEnergyWh:      sizing.TotalEnergyWh,
		Flight1Km:          lengths.Flight1Meters / 1000.0,
		RideKm:             lengths.RideMeters / 1000.0,
		Flight2Km:          lengths.Flight2Meters / 1000.0,
		ChargeReceived1Wh:  sizing.ChargeReceived1Wh,
		ChargeReceived2Wh:  sizing.ChargeReceived2Wh,
		ChargeSaturated1:   sizing.ChargeSaturated1,
		ChargeSaturated2:   sizing.ChargeSaturated2,
		PayloadMassG:       payloadG,
		DestinationNode:    lengths.EndNode,
		BatteryUnits:       sizing.Units,
		ChargeMode:         charge.String(),
		Mixed:              lengths.Mixed,
		TravelTimeMin:      lengths.TravelTimeMin,
	}
}
