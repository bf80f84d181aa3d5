package hitchhike

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// CalibrationConfig describes Monte-Carlo sweep of ride cost factors.
// Both graphs must share node identifiers; edge energies are taken as they are.
type CalibrationConfig struct {
	Flight  *Graph
	Mixed   *Graph
	Params  Params
	Start   GeoPoint
	Bound   orb.Bound
	Samples int
	Factors []float64
	Seed    int64
	Workers int
	Logger  *Logger
}

// CalibrationPoint is averaged trade-off for one cost factor
type CalibrationPoint struct {
	Factor float64
	// Mean fractional increase of travel time of mixed route against flight-only route
	TimeIncrease float64
	// Mean fractional decrease of energy of mixed route against flight-only route
	EnergyDecrease float64
	// EnergyDecrease - TimeIncrease
	Score float64
}

// CalibrationCurve is the result of Calibrate
type CalibrationCurve struct {
	Points  []CalibrationPoint
	Samples int
	Skipped int
}

// Best returns point with the highest score. Ties go to the smaller factor.
func (curve *CalibrationCurve) Best() (CalibrationPoint, bool) {
	if curve == nil || len(curve.Points) == 0 {
		return CalibrationPoint{}, false
	}
	best := curve.Points[0]
	for _, pt := range curve.Points[1:] {
		if pt.Score > best.Score {
			best = pt
		}
	}
	return best, true
}

// FactorGrid returns n evenly spaced factors from..to inclusive
func FactorGrid(from, to float64, n int) []float64 {
	if n <= 1 {
		return []float64{from}
	}
	grid := make([]float64, n)
	step := (to - from) / float64(n-1)
	for i := range grid {
		grid[i] = from + float64(i)*step
	}
	grid[n-1] = to
	return grid
}

// ParseFactorGrid parses "from:to:n" or a single factor
func ParseFactorGrid(s string) ([]float64, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, errors.Wrap(err, "Can't parse factor")
		}
		return []float64{v}, nil
	case 3:
		from, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, errors.Wrap(err, "Can't parse first factor")
		}
		to, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, errors.Wrap(err, "Can't parse last factor")
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil || n < 1 {
			return nil, errors.Errorf("Bad number of factors '%s'", parts[2])
		}
		return FactorGrid(from, to, n), nil
	}
	return nil, errors.Errorf("Factors '%s' should be in 'from:to:n' format", s)
}

// weightedRoute is energy and time of the route chosen under some cost weighting
type weightedRoute struct {
	energy float64
	time   float64
}

// evalWeightedRoute searches route with finder and evaluates it: energy is the sum of edge energies
// plus flight energy of each take-off/landing cycle, time follows travelTimeMinutes
func evalWeightedRoute(graph *Graph, finder PathFinder, source, target osm.NodeID, params Params) (weightedRoute, error) {
	cost, path, err := finder.ShortestPath(source, target)
	if err != nil {
		return weightedRoute{}, err
	}
	route, err := buildRoute(graph, cost, path)
	if err != nil {
		return weightedRoute{}, err
	}
	legs := route.Legs()
	cycles := 1.0
	if legs.HasRide() {
		cycles = 2.0
	}
	return weightedRoute{
		energy: route.Energy() + cycles*params.Rates.Fly*params.TOLPenaltyMeters,
		time:   travelTimeMinutes(legs, params),
	}, nil
}

// Calibrate draws random destinations and, for every factor, compares route chosen on mixed graph
// with ride edges weighted by the factor against route on flight-only graph.
// Samples unreachable in any graph are skipped.
func Calibrate(ctx context.Context, cfg CalibrationConfig) (*CalibrationCurve, error) {
	if cfg.Flight == nil || cfg.Mixed == nil {
		return nil, errors.New("Both flight-only and mixed graphs are required")
	}
	if len(cfg.Factors) == 0 {
		return nil, errors.New("No cost factors given")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	st := time.Now()
	locator, err := NewQuadtreeLocator(cfg.Flight)
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare node index")
	}
	startNode, err := locator.Nearest(cfg.Start)
	if err != nil {
		return nil, errors.Wrap(err, "Can't find start node")
	}
	flightFinders := make([]PathFinder, len(cfg.Factors))
	mixedFinders := make([]PathFinder, len(cfg.Factors))
	for i, factor := range cfg.Factors {
		weight := RideCostWeight(cfg.Params.Rates, factor)
		flightFinders[i] = NewDijkstraFinder(cfg.Flight, weight)
		mixedFinders[i] = NewDijkstraFinder(cfg.Mixed, weight)
	}

	dests := RandomDestinations(cfg.Bound, cfg.Samples, rand.New(rand.NewSource(cfg.Seed)))
	// per sample, per factor
	tInc := make([][]float64, len(dests))
	eDec := make([][]float64, len(dests))

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range dests {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			target, err := locator.Nearest(dests[i].Point)
			if err != nil {
				return errors.Wrap(err, "Can't find destination node")
			}
			ti := make([]float64, len(cfg.Factors))
			ed := make([]float64, len(cfg.Factors))
			for j := range cfg.Factors {
				flight, err := evalWeightedRoute(cfg.Flight, flightFinders[j], startNode, target, cfg.Params)
				if err == nil {
					var mixed weightedRoute
					mixed, err = evalWeightedRoute(cfg.Mixed, mixedFinders[j], startNode, target, cfg.Params)
					if err == nil && (flight.time == 0 || flight.energy == 0) {
						// destination coincides with depot
						return nil
					}
					if err == nil {
						ti[j] = (mixed.time - flight.time) / flight.time
						ed[j] = (flight.energy - mixed.energy) / flight.energy
					}
				}
				if errors.Is(err, ErrNoRouteFound) {
					cfg.Logger.With(slog.Int("sample", i)).Debugf("no route to node %d", target)
					return nil
				}
				if err != nil {
					return errors.Wrapf(err, "sample %d", i)
				}
			}
			tInc[i] = ti
			eDec[i] = ed
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	curve := &CalibrationCurve{
		Points: make([]CalibrationPoint, len(cfg.Factors)),
	}
	for j, factor := range cfg.Factors {
		curve.Points[j].Factor = factor
	}
	for i := range dests {
		if tInc[i] == nil {
			curve.Skipped++
			continue
		}
		curve.Samples++
		for j := range cfg.Factors {
			curve.Points[j].TimeIncrease += tInc[i][j]
			curve.Points[j].EnergyDecrease += eDec[i][j]
		}
	}
	for j := range curve.Points {
		if curve.Samples == 0 {
			curve.Points[j].TimeIncrease = math.NaN()
			curve.Points[j].EnergyDecrease = math.NaN()
		} else {
			curve.Points[j].TimeIncrease /= float64(curve.Samples)
			curve.Points[j].EnergyDecrease /= float64(curve.Samples)
		}
		curve.Points[j].Score = curve.Points[j].EnergyDecrease - curve.Points[j].TimeIncrease
	}
	cfg.Logger.Info("calibration finished",
		slog.Int("samples", curve.Samples),
		slog.Int("skipped", curve.Skipped),
		slog.Int("factors", len(cfg.Factors)),
		slog.Duration("elapsed", time.Since(st)))
	return curve, nil
}

func (pt CalibrationPoint) String() string {
	return fmt.Sprintf("factor %.3f: time +%.4f, energy -%.4f, score %.4f", pt.Factor, pt.TimeIncrease, pt.EnergyDecrease, pt.Score)
}
