package hitchhike

import (
	"encoding/json"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ChargeRate is a wireless power transfer option available while riding
type ChargeRate struct {
	Watts      float64 `json:"watts"`
	Efficiency float64 `json:"efficiency"` // DC-DC efficiency of onboard receiver
}

// Deliverable returns energy (Wh) delivered to battery in given time (hours)
func (rate ChargeRate) Deliverable(hours float64) float64 {
	return rate.Watts * rate.Efficiency * hours
}

// ChargeMode selects charging scenario for a query
type ChargeMode uint16

const (
	CHARGE_NONE = ChargeMode(iota + 1)
	CHARGE_LOW
	CHARGE_HIGH
)

func (iotaIdx ChargeMode) String() string {
	if iotaIdx < CHARGE_NONE || iotaIdx > CHARGE_HIGH {
		return "none"
	}
	return [...]string{"none", "low", "high"}[iotaIdx-1]
}

// ParseChargeMode parses "none" / "low" / "high"
func ParseChargeMode(s string) (ChargeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "false":
		return CHARGE_NONE, nil
	case "low":
		return CHARGE_LOW, nil
	case "high":
		return CHARGE_HIGH, nil
	}
	return 0, errors.Errorf("unknown charge mode '%s'", s)
}

// Params are system constants of the drone, battery, charger and transit network.
// Masses are in grams, energies in Wh, powers in W.
type Params struct {
	BaseMass        float64 `json:"base_mass"`         // without battery and WPT, with empty payload container
	WPTMass         float64 `json:"wpt_mass"`          // onboard WPT receiver
	EnergyDensity   float64 `json:"energy_density"`    // Wh/g
	SafeDischarge   float64 `json:"safe_discharge"`    // usable fraction of capacity
	HoverSafetyTime float64 `json:"hover_safety_time"` // hours of hover kept in reserve
	BatteryVoltage  float64 `json:"battery_voltage"`   // V
	BatteryAhStep   float64 `json:"battery_ah_step"`   // Ah increments batteries are sold in

	LowCharge  ChargeRate `json:"low_charge"`
	HighCharge ChargeRate `json:"high_charge"`

	// Power in hover: 4*(ThrustA*(m/4)^2 + ThrustB*(m/4))
	ThrustA   float64 `json:"thrust_a"`
	ThrustB   float64 `json:"thrust_b"`
	MiscPower float64 `json:"misc_power"`

	TOLPenaltyMeters float64 `json:"tol_penalty_meters"` // flight distance equivalent of take-off/landing cycle
	CruiseSpeed      float64 `json:"cruise_speed"`       // m/s
	BusSpeed         float64 `json:"bus_speed"`          // km/h

	Rates          EnergyRates `json:"energy_rates"`      // relative energy per meter
	TimeCostFactor float64     `json:"time_cost_factor"` // weighting of ride edges in search cost
}

// DefaultParams returns parameters of the reference prototype
func DefaultParams() Params {
	return Params{
		BaseMass:        1618,
		WPTMass:         132,
		EnergyDensity:   0.170,
		SafeDischarge:   0.7,
		HoverSafetyTime: 5.0 / 60.0,
		BatteryVoltage:  25.2,
		BatteryAhStep:   0.5,

		LowCharge:  ChargeRate{Watts: 30, Efficiency: 0.65},
		HighCharge: ChargeRate{Watts: 100, Efficiency: 0.80},

		ThrustA:   0.00003,
		ThrustB:   0.0672,
		MiscPower: 10,

		TOLPenaltyMeters: 1100,
		CruiseSpeed:      12,
		BusSpeed:         15,

		Rates:          EnergyRates{Fly: 1, Ride: 0.02},
		TimeCostFactor: 25,
	}
}

// LoadParams reads JSON file on top of DefaultParams
func LoadParams(fname string) (Params, error) {
	params := DefaultParams()
	file, err := os.Open(fname)
	if err != nil {
		return params, errors.Wrap(err, "Can't open parameters file")
	}
	defer file.Close()
	err = json.NewDecoder(file).Decode(&params)
	if err != nil {
		return params, errors.Wrap(err, "Can't decode parameters")
	}
	return params, params.Validate()
}

// MassStep returns mass (g) of one battery capacity increment
func (params Params) MassStep() float64 {
	return params.BatteryVoltage * params.BatteryAhStep / params.EnergyDensity
}

// ChargeRate returns rate of given mode or nil when charging is off
func (params Params) ChargeRate(mode ChargeMode) *ChargeRate {
	switch mode {
	case CHARGE_LOW:
		rate := params.LowCharge
		return &rate
	case CHARGE_HIGH:
		rate := params.HighCharge
		return &rate
	}
	return nil
}

// CruiseKmh returns cruise speed in km/h
func (params Params) CruiseKmh() float64 {
	return params.CruiseSpeed * 3.6
}

// Validate checks physical sanity of parameters
func (params Params) Validate() error {
	positive := map[string]float64{
		"energy_density":  params.EnergyDensity,
		"safe_discharge":  params.SafeDischarge,
		"battery_voltage": params.BatteryVoltage,
		"battery_ah_step": params.BatteryAhStep,
		"cruise_speed":    params.CruiseSpeed,
		"bus_speed":       params.BusSpeed,
	}
	for name, v := range positive {
		if !(v > 0) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrInvalidParams, "%s must be positive, got %f", name, v)
		}
	}
	nonNegative := map[string]float64{
		"base_mass":          params.BaseMass,
		"wpt_mass":           params.WPTMass,
		"hover_safety_time":  params.HoverSafetyTime,
		"thrust_a":           params.ThrustA,
		"thrust_b":           params.ThrustB,
		"misc_power":         params.MiscPower,
		"tol_penalty_meters": params.TOLPenaltyMeters,
		"low_charge.watts":   params.LowCharge.Watts,
		"high_charge.watts":  params.HighCharge.Watts,
		"energy_rates.fly":   params.Rates.Fly,
		"energy_rates.ride":  params.Rates.Ride,
		"time_cost_factor":   params.TimeCostFactor,
	}
	for name, v := range nonNegative {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrInvalidParams, "%s must be non-negative, got %f", name, v)
		}
	}
	if params.SafeDischarge > 1 {
		return errors.Wrapf(ErrInvalidParams, "safe_discharge must not exceed 1, got %f", params.SafeDischarge)
	}
	for name, eff := range map[string]float64{"low_charge.efficiency": params.LowCharge.Efficiency, "high_charge.efficiency": params.HighCharge.Efficiency} {
		if eff < 0 || eff > 1 || math.IsNaN(eff) {
			return errors.Wrapf(ErrInvalidParams, "%s must be within [0, 1], got %f", name, eff)
		}
	}
	return nil
}
