package hitchhike

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// Scenario is a delivery configuration compared by CompareScenarios
type Scenario uint16

// Order matters: it is the tie-break preference when energies are equal
const (
	SCENARIO_FLIGHT = Scenario(iota + 1)
	SCENARIO_NO_WPT
	SCENARIO_LOW_WPT
	SCENARIO_HIGH_WPT
)

var scenarios = [...]Scenario{SCENARIO_FLIGHT, SCENARIO_NO_WPT, SCENARIO_LOW_WPT, SCENARIO_HIGH_WPT}

func (iotaIdx Scenario) String() string {
	if iotaIdx < SCENARIO_FLIGHT || iotaIdx > SCENARIO_HIGH_WPT {
		return "undefined"
	}
	return [...]string{"flight_only", "no_wpt", "low_wpt", "high_wpt"}[iotaIdx-1]
}

func (iotaIdx Scenario) chargeMode() ChargeMode {
	switch iotaIdx {
	case SCENARIO_LOW_WPT:
		return CHARGE_LOW
	case SCENARIO_HIGH_WPT:
		return CHARGE_HIGH
	}
	return CHARGE_NONE
}

// Destination is a delivery point. Node is set when the destination is a graph node.
type Destination struct {
	Point GeoPoint
	// Node is meaningful only when HasNode is set
	Node    osm.NodeID
	HasNode bool
}

// RandomDestinations draws n points uniformly within bound
func RandomDestinations(bound orb.Bound, n int, rng *rand.Rand) []Destination {
	dests := make([]Destination, n)
	latRange := bound.Max.Lat() - bound.Min.Lat()
	lonRange := bound.Max.Lon() - bound.Min.Lon()
	for i := range dests {
		dests[i].Point = GeoPoint{
			Lat: bound.Min.Lat() + rng.Float64()*latRange,
			Lon: bound.Min.Lon() + rng.Float64()*lonRange,
		}
	}
	return dests
}

// DestinationsFromGraph returns every graph node strictly inside bound, in graph order
func DestinationsFromGraph(graph *Graph, bound orb.Bound) []Destination {
	dests := []Destination{}
	for _, node := range graph.Nodes() {
		if node.Lat > bound.Min.Lat() && node.Lat < bound.Max.Lat() && node.Lon > bound.Min.Lon() && node.Lon < bound.Max.Lon() {
			dests = append(dests, Destination{Point: node.GeoPoint(), Node: node.ID, HasNode: true})
		}
	}
	return dests
}

// PayloadRange is a fixed payload when Max <= Min, otherwise a uniform integer range [Min, Max] in grams
type PayloadRange struct {
	Min float64
	Max float64
}

// FixedPayload returns range holding single mass
func FixedPayload(grams float64) PayloadRange {
	return PayloadRange{Min: grams, Max: grams}
}

// ParsePayloadRange parses fixed mass "500" or range "200-2000" (grams)
func ParsePayloadRange(s string) (PayloadRange, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return PayloadRange{}, errors.Wrap(err, "Can't parse payload")
		}
		return FixedPayload(v), nil
	case 2:
		lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return PayloadRange{}, errors.Wrap(err, "Can't parse minimum payload")
		}
		hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return PayloadRange{}, errors.Wrap(err, "Can't parse maximum payload")
		}
		if hi < lo {
			return PayloadRange{}, errors.Errorf("Payload range '%s' is inverted", s)
		}
		return PayloadRange{Min: lo, Max: hi}, nil
	}
	return PayloadRange{}, errors.Errorf("Payload '%s' should be in 'g' or 'min-max' format", s)
}

// Draw returns payload mass
func (payload PayloadRange) Draw(rng *rand.Rand) float64 {
	if payload.Max <= payload.Min {
		return payload.Min
	}
	lo := math.Ceil(payload.Min)
	hi := math.Floor(payload.Max)
	if hi < lo {
		return payload.Min
	}
	return lo + float64(rng.Int63n(int64(hi-lo)+1))
}

// Queries builds one query per destination with payloads drawn in destination order
func (payload PayloadRange) Queries(start GeoPoint, dests []Destination, charge ChargeMode, rng *rand.Rand) []Query {
	queries := make([]Query, len(dests))
	for i, dest := range dests {
		queries[i] = Query{
			Start:     start,
			End:       dest.Point,
			EndNode:   dest.Node,
			EndByNode: dest.HasNode,
			PayloadG:  payload.Draw(rng),
			Charge:    charge,
		}
	}
	return queries
}

// ScenarioConfig describes a comparison run
type ScenarioConfig struct {
	Start        GeoPoint
	Destinations []Destination
	Payload      PayloadRange
	Seed         int64
	Workers      int
}

// ScenarioComparison holds results of one destination under every scenario
type ScenarioComparison struct {
	Destination   Destination
	PayloadG      float64
	Results       map[Scenario]*SizingResult
	MostEfficient Scenario
}

// ScenarioReport is the outcome of CompareScenarios
type ScenarioReport struct {
	Comparisons []ScenarioComparison
	// Destinations dropped because at least one scenario failed
	Skipped int
}

// ByScenario returns results of given scenario in comparison order
func (report *ScenarioReport) ByScenario(scenario Scenario) []*SizingResult {
	out := make([]*SizingResult, 0, len(report.Comparisons))
	for _, cmp := range report.Comparisons {
		out = append(out, cmp.Results[scenario])
	}
	return out
}

// Wins counts destinations where given scenario was the most efficient
func (report *ScenarioReport) Wins(scenario Scenario) int {
	n := 0
	for _, cmp := range report.Comparisons {
		if cmp.MostEfficient == scenario {
			n++
		}
	}
	return n
}

// mostEfficient picks scenario with the lowest total energy. Ties go to the earlier scenario.
func mostEfficient(results map[Scenario]*SizingResult) Scenario {
	best := Scenario(0)
	bestEnergy := math.Inf(1)
	for _, scenario := range scenarios {
		result, ok := results[scenario]
		if !ok || result == nil {
			continue
		}
		if result.TotalEnergyWh < bestEnergy {
			best = scenario
			bestEnergy = result.TotalEnergyWh
		}
	}
	return best
}

// CompareScenarios sizes battery for every destination on flight-only graph and on mixed graph
// without charging, with low-rate and with high-rate charging. Each destination gets one payload
// shared by all scenarios. Destinations failing in any scenario are skipped.
func CompareScenarios(ctx context.Context, flight, mixed *Engine, cfg ScenarioConfig) (*ScenarioReport, error) {
	if flight == nil || mixed == nil {
		return nil, errors.New("Both flight-only and mixed engines are required")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	base := cfg.Payload.Queries(cfg.Start, cfg.Destinations, CHARGE_NONE, rng)

	reports := make(map[Scenario]BatchReport, len(scenarios))
	for _, scenario := range scenarios {
		queries := make([]Query, len(base))
		copy(queries, base)
		for i := range queries {
			queries[i].Charge = scenario.chargeMode()
		}
		engine := mixed
		if scenario == SCENARIO_FLIGHT {
			engine = flight
		}
		reports[scenario] = RunBatch(ctx, engine, queries, cfg.Workers)
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "Scenario comparison interrupted")
		}
	}

	report := &ScenarioReport{
		Comparisons: make([]ScenarioComparison, 0, len(base)),
	}
	for i := range base {
		results := make(map[Scenario]*SizingResult, len(scenarios))
		for _, scenario := range scenarios {
			outcome := reports[scenario].Outcomes[i]
			if outcome.Status != OUTCOME_OK {
				break
			}
			results[scenario] = outcome.Result
		}
		if len(results) != len(scenarios) {
			report.Skipped++
			continue
		}
		report.Comparisons = append(report.Comparisons, ScenarioComparison{
			Destination:   cfg.Destinations[i],
			PayloadG:      base[i].PayloadG,
			Results:       results,
			MostEfficient: mostEfficient(results),
		})
	}
	mixed.logger.Info("scenario comparison finished",
		slog.Int("destinations", len(base)),
		slog.Int("compared", len(report.Comparisons)),
		slog.Int("skipped", report.Skipped))
	return report, nil
}

// DistanceBins are consecutive geodesic distance intervals of equal width.
// Bounds are exclusive on both sides.
type DistanceBins struct {
	StartKm float64
	WidthKm float64
	Count   int
}

// DefaultDistanceBins are 0.5 km wide bins centred on 0.5 .. 10 km
func DefaultDistanceBins() DistanceBins {
	return DistanceBins{StartKm: 0.25, WidthKm: 0.5, Count: 40}
}

// BinStat is mean total energy of results within a bin. Mean is NaN for empty bins.
type BinStat struct {
	CenterKm float64
	Count    int
	Mean     float64
}

// MeanEnergyByDistance averages total energy of results per geodesic distance bin
func MeanEnergyByDistance(results []*SizingResult, bins DistanceBins) []BinStat {
	stats := make([]BinStat, bins.Count)
	sums := make([]float64, bins.Count)
	for i := range stats {
		stats[i].CenterKm = bins.StartKm + (float64(i)+0.5)*bins.WidthKm
	}
	for _, result := range results {
		if result == nil {
			continue
		}
		for i := range stats {
			lo := bins.StartKm + float64(i)*bins.WidthKm
			hi := lo + bins.WidthKm
			if result.GeodesicDistanceKm > lo && result.GeodesicDistanceKm < hi {
				stats[i].Count++
				sums[i] += result.TotalEnergyWh
				break
			}
		}
	}
	for i := range stats {
		if stats[i].Count == 0 {
			stats[i].Mean = math.NaN()
			continue
		}
		stats[i].Mean = sums[i] / float64(stats[i].Count)
	}
	return stats
}

// EnergyChangeByDistance returns percentage change of binned mean energy against baseline.
// Negative values mean savings. Bins empty on either side give NaN.
func EnergyChangeByDistance(results, baseline []*SizingResult, bins DistanceBins) []BinStat {
	target := MeanEnergyByDistance(results, bins)
	base := MeanEnergyByDistance(baseline, bins)
	out := make([]BinStat, len(target))
	for i := range target {
		out[i] = BinStat{
			CenterKm: target[i].CenterKm,
			Count:    target[i].Count,
			Mean:     100 * (target[i].Mean - base[i].Mean) / base[i].Mean,
		}
	}
	return out
}
