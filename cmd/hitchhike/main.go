package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/LdDl/hitchhike"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

const usage = `Usage: hitchhike <command> [flags]

Commands:
	size       route and battery sizing for a single delivery
	batch      battery sizing for many destinations (optionally comparing charging scenarios)
	calibrate  sweep ride cost factors and report time/energy trade-off
	snapshot   convert graph between CSV and msgpack+zstd snapshot, optionally re-costing it
	route      export route geometry as GeoJSON

Run 'hitchhike <command> -h' for command flags.
`

type commonFlags struct {
	graph     *string
	config    *string
	logLevel  *string
	logDir    *string
	workers   *int
	router    *string
	cacheSize *int
	verbose   *bool
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		graph:     fs.String("graph", "my_graph.csv", "Graph file: edges CSV (with '<name>_vertices.csv' next to it) or '*.msgpack.zst' snapshot"),
		config:    fs.String("config", "", "JSON file with parameters overriding defaults"),
		logLevel:  fs.String("log-level", "info", "Log level: debug / info / warn / error"),
		logDir:    fs.String("log-dir", "", "Directory for rotating JSON log. Empty means no log file"),
		workers:   fs.Int("workers", 0, "Number of worker goroutines (0 = number of CPUs)"),
		router:    fs.String("router", "dijkstra", "Shortest path backend. Expected values: dijkstra / ch"),
		cacheSize: fs.Int("cache", 0, "Route cache size in node pairs (0 = no cache)"),
		verbose:   fs.Bool("verbose", true, "Print progress"),
	}
}

// cliLogger is the logger of the running command, nil when no log directory is given
var cliLogger *hitchhike.Logger

type environment struct {
	params hitchhike.Params
	graph  *hitchhike.Graph
	logger *hitchhike.Logger
	kind   hitchhike.FinderKind
}

func (common *commonFlags) prepare() (*environment, error) {
	env := &environment{
		params: hitchhike.DefaultParams(),
	}
	var err error
	if *common.config != "" {
		env.params, err = hitchhike.LoadParams(*common.config)
		if err != nil {
			return nil, errors.Wrap(err, "Can't load parameters")
		}
	}
	if *common.logDir != "" {
		env.logger = hitchhike.NewLogger(*common.logLevel, *common.logDir)
		env.logger.Infof("Command '%s' logging to %s", os.Args[1], env.logger.LogFile)
		cliLogger = env.logger
	}
	env.kind, err = hitchhike.ParseFinderKind(*common.router)
	if err != nil {
		return nil, err
	}
	st := time.Now()
	env.graph, err = hitchhike.LoadGraph(*common.graph)
	if err != nil {
		return nil, errors.Wrap(err, "Can't load graph")
	}
	if *common.verbose {
		fmt.Printf("Loaded graph with %d nodes and %d edges in %v\n", env.graph.NodesCount(), env.graph.EdgesCount(), time.Since(st))
	}
	env.logger.Info("graph loaded", "file", *common.graph, "nodes", env.graph.NodesCount(), "edges", env.graph.EdgesCount())
	return env, nil
}

func (env *environment) engine(common *commonFlags, graph *hitchhike.Graph) (*hitchhike.Engine, error) {
	return hitchhike.NewEngine(graph, env.params,
		hitchhike.WithFinderKind(env.kind),
		hitchhike.WithRouteCache(*common.cacheSize),
		hitchhike.WithLogger(env.logger),
		hitchhike.WithVerbose(*common.verbose),
	)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "size":
		err = runSize(os.Args[2:])
	case "batch":
		err = runBatch(ctx, os.Args[2:])
	case "calibrate":
		err = runCalibrate(ctx, os.Args[2:])
	case "snapshot":
		err = runSnapshot(os.Args[2:])
	case "route":
		err = runRoute(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Printf("Unknown command '%s'\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Println(err)
		if cliLogger != nil {
			cliLogger.Errorf("Command '%s' failed: %v", os.Args[1], err)
		}
		os.Exit(1)
	}
	if cliLogger != nil {
		cliLogger.Info("command finished", "command", os.Args[1], "elapsed", time.Since(cliLogger.Start))
	}
}

func runSize(args []string) error {
	fs := flag.NewFlagSet("size", flag.ExitOnError)
	common := registerCommon(fs)
	fromStr := fs.String("from", "", "Depot coordinates 'lat,lon'")
	toStr := fs.String("to", "", "Destination coordinates 'lat,lon'")
	toNode := fs.Int64("to-node", 0, "Destination node ID (overrides -to)")
	payload := fs.Float64("payload", 500, "Payload mass (g)")
	chargeStr := fs.String("charge", "none", "Charging while riding. Expected values: none / low / high")
	out := fs.String("out", "", "Optional CSV file for the result")
	fs.Parse(args)

	from, err := hitchhike.ParseGeoPoint(*fromStr)
	if err != nil {
		return errors.Wrap(err, "Bad -from")
	}
	query := hitchhike.Query{Start: from, PayloadG: *payload}
	fs.Visit(func(f *flag.Flag) {
		query.EndByNode = query.EndByNode || f.Name == "to-node"
	})
	if query.EndByNode {
		query.EndNode = osm.NodeID(*toNode)
	} else {
		query.End, err = hitchhike.ParseGeoPoint(*toStr)
		if err != nil {
			return errors.Wrap(err, "Bad -to")
		}
	}
	query.Charge, err = hitchhike.ParseChargeMode(*chargeStr)
	if err != nil {
		return err
	}
	env, err := common.prepare()
	if err != nil {
		return err
	}
	engine, err := env.engine(common, env.graph)
	if err != nil {
		return err
	}
	result, err := engine.Size(query)
	if err != nil {
		return err
	}
	printResult(result)
	if *out != "" {
		return hitchhike.ExportResultsCSV(*out, []*hitchhike.SizingResult{result})
	}
	return nil
}

func printResult(result *hitchhike.SizingResult) {
	fmt.Printf("Destination node:     %d\n", result.DestinationNode)
	fmt.Printf("Geodesic distance:    %.3f km\n", result.GeodesicDistanceKm)
	fmt.Printf("Legs (fly/ride/fly):  %.3f / %.3f / %.3f km (mixed: %t)\n", result.Flight1Km, result.RideKm, result.Flight2Km, result.Mixed)
	fmt.Printf("Travel time:          %.1f min\n", result.TravelTimeMin)
	fmt.Printf("Battery:              %d units, %.1f g, %.2f Wh\n", result.BatteryUnits, result.BatteryMassG, result.BatteryCapacityWh)
	fmt.Printf("Total energy:         %.2f Wh\n", result.TotalEnergyWh)
	fmt.Printf("Charge (%s):        %.2f Wh (saturated: %t), %.2f Wh (saturated: %t)\n", result.ChargeMode, result.ChargeReceived1Wh, result.ChargeSaturated1, result.ChargeReceived2Wh, result.ChargeSaturated2)
}

func runBatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	common := registerCommon(fs)
	fromStr := fs.String("from", "", "Depot coordinates 'lat,lon'")
	bboxStr := fs.String("bbox", "", "Destination area 'north,south,east,west'")
	n := fs.Int("n", 100, "Number of random destinations")
	allNodes := fs.Bool("all-nodes", false, "Use every graph node inside -bbox as destination (overrides -n)")
	payloadStr := fs.String("payload", "500", "Payload mass (g) or uniform range 'min-max'")
	chargeStr := fs.String("charge", "none", "Charging while riding. Expected values: none / low / high")
	compare := fs.Bool("compare", false, "Compare flight-only, no WPT, low and high WPT scenarios instead of single run")
	seed := fs.Int64("seed", 1, "Random seed")
	out := fs.String("out", "results.csv", "Results CSV. With -compare one file per scenario is written: '<name>_<scenario>.csv'")
	fs.Parse(args)

	from, err := hitchhike.ParseGeoPoint(*fromStr)
	if err != nil {
		return errors.Wrap(err, "Bad -from")
	}
	bound, err := hitchhike.ParseBound(*bboxStr)
	if err != nil {
		return errors.Wrap(err, "Bad -bbox")
	}
	payload, err := hitchhike.ParsePayloadRange(*payloadStr)
	if err != nil {
		return err
	}
	charge, err := hitchhike.ParseChargeMode(*chargeStr)
	if err != nil {
		return err
	}
	env, err := common.prepare()
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(*seed))
	var dests []hitchhike.Destination
	if *allNodes {
		dests = hitchhike.DestinationsFromGraph(env.graph, bound)
	} else {
		dests = hitchhike.RandomDestinations(bound, *n, rng)
	}
	fmt.Printf("Prepared %d destinations\n", len(dests))

	mixed, err := env.engine(common, env.graph)
	if err != nil {
		return err
	}
	if !*compare {
		queries := payload.Queries(from, dests, charge, rng)
		report := hitchhike.RunBatch(ctx, mixed, queries, *common.workers)
		fmt.Println(report.String())
		return hitchhike.ExportResultsCSV(*out, report.Results())
	}

	flightGraph, err := hitchhike.FlightOnly(env.graph, env.params.Rates)
	if err != nil {
		return errors.Wrap(err, "Can't prepare flight-only graph")
	}
	flight, err := env.engine(common, flightGraph)
	if err != nil {
		return err
	}
	report, err := hitchhike.CompareScenarios(ctx, flight, mixed, hitchhike.ScenarioConfig{
		Start:        from,
		Destinations: dests,
		Payload:      payload,
		Seed:         *seed,
		Workers:      *common.workers,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Compared %d destinations, skipped %d\n", len(report.Comparisons), report.Skipped)
	fnamePart := strings.Split(*out, ".csv")
	for _, scenario := range []hitchhike.Scenario{hitchhike.SCENARIO_FLIGHT, hitchhike.SCENARIO_NO_WPT, hitchhike.SCENARIO_LOW_WPT, hitchhike.SCENARIO_HIGH_WPT} {
		fmt.Printf("\t%s: most efficient for %d destinations\n", scenario, report.Wins(scenario))
		err = hitchhike.ExportResultsCSV(fmt.Sprintf("%s_%s.csv", fnamePart[0], scenario), report.ByScenario(scenario))
		if err != nil {
			return errors.Wrapf(err, "Can't export %s results", scenario)
		}
	}
	bins := hitchhike.DefaultDistanceBins()
	baseline := report.ByScenario(hitchhike.SCENARIO_NO_WPT)
	low := hitchhike.EnergyChangeByDistance(report.ByScenario(hitchhike.SCENARIO_LOW_WPT), baseline, bins)
	high := hitchhike.EnergyChangeByDistance(report.ByScenario(hitchhike.SCENARIO_HIGH_WPT), baseline, bins)
	fmt.Println("Energy change vs no WPT (%): distance_km;low_wpt;high_wpt")
	for i := range low {
		if math.IsNaN(low[i].Mean) && math.IsNaN(high[i].Mean) {
			continue
		}
		fmt.Printf("\t%.2f;%.2f;%.2f\n", low[i].CenterKm, low[i].Mean, high[i].Mean)
	}
	return nil
}

func runCalibrate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("calibrate", flag.ExitOnError)
	common := registerCommon(fs)
	fromStr := fs.String("from", "", "Depot coordinates 'lat,lon'")
	bboxStr := fs.String("bbox", "", "Destination area 'north,south,east,west'")
	n := fs.Int("n", 20, "Number of random destinations")
	factorsStr := fs.String("factors", "1:30:91", "Cost factors 'from:to:n' or single value")
	seed := fs.Int64("seed", 1, "Random seed")
	fs.Parse(args)

	from, err := hitchhike.ParseGeoPoint(*fromStr)
	if err != nil {
		return errors.Wrap(err, "Bad -from")
	}
	bound, err := hitchhike.ParseBound(*bboxStr)
	if err != nil {
		return errors.Wrap(err, "Bad -bbox")
	}
	factors, err := hitchhike.ParseFactorGrid(*factorsStr)
	if err != nil {
		return err
	}
	env, err := common.prepare()
	if err != nil {
		return err
	}
	flightGraph, err := hitchhike.FlightOnly(env.graph, env.params.Rates)
	if err != nil {
		return errors.Wrap(err, "Can't prepare flight-only graph")
	}
	st := time.Now()
	curve, err := hitchhike.Calibrate(ctx, hitchhike.CalibrationConfig{
		Flight:  flightGraph,
		Mixed:   env.graph,
		Params:  env.params,
		Start:   from,
		Bound:   bound,
		Samples: *n,
		Factors: factors,
		Seed:    *seed,
		Workers: *common.workers,
		Logger:  env.logger,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Done calibration over %d samples (%d skipped) in %v\n", curve.Samples, curve.Skipped, time.Since(st))
	for _, pt := range curve.Points {
		fmt.Printf("\t%s\n", pt)
	}
	if best, ok := curve.Best(); ok {
		fmt.Printf("Best %s\n", best)
	}
	return nil
}

func runSnapshot(args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	common := registerCommon(fs)
	out := fs.String("out", "my_graph.msgpack.zst", "Output file: '*.msgpack.zst' snapshot or '*.csv' edges file")
	recost := fs.Float64("recost", -1, "Recompute energy and cost from energy rates with given ride cost factor (negative = keep attributes)")
	flightOnly := fs.Bool("flight-only", false, "Turn every edge into flight edge")
	fs.Parse(args)

	env, err := common.prepare()
	if err != nil {
		return err
	}
	graph := env.graph
	if *recost >= 0 {
		graph, err = hitchhike.Recost(graph, env.params.Rates, *recost)
		if err != nil {
			return errors.Wrap(err, "Can't recost graph")
		}
	}
	if *flightOnly {
		graph, err = hitchhike.FlightOnly(graph, env.params.Rates)
		if err != nil {
			return errors.Wrap(err, "Can't prepare flight-only graph")
		}
	}
	st := time.Now()
	if strings.HasSuffix(*out, ".csv") {
		err = graph.ExportToCSV(*out)
	} else {
		err = graph.ExportSnapshot(*out)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Written '%s' in %v\n", *out, time.Since(st))
	return nil
}

func runRoute(args []string) error {
	fs := flag.NewFlagSet("route", flag.ExitOnError)
	common := registerCommon(fs)
	fromStr := fs.String("from", "", "Depot coordinates 'lat,lon'")
	toStr := fs.String("to", "", "Destination coordinates 'lat,lon'")
	out := fs.String("out", "route.geojson", "GeoJSON file with one feature per travel method run")
	geomFormat := fs.String("geomf", "wkt", "Format of geometry printed to stdout. Expected values: wkt / geojson")
	fs.Parse(args)

	from, err := hitchhike.ParseGeoPoint(*fromStr)
	if err != nil {
		return errors.Wrap(err, "Bad -from")
	}
	to, err := hitchhike.ParseGeoPoint(*toStr)
	if err != nil {
		return errors.Wrap(err, "Bad -to")
	}
	env, err := common.prepare()
	if err != nil {
		return err
	}
	engine, err := env.engine(common, env.graph)
	if err != nil {
		return err
	}
	lengths, err := engine.FindPathLengths(from, to)
	if err != nil {
		return err
	}
	route := lengths.Route
	fmt.Printf("Route %d -> %d: %d edges, %d ride runs, cost %f, mixed kept: %t\n", lengths.StartNode, lengths.EndNode, len(route.Edges), route.RideRuns(), route.TotalCost, lengths.Mixed)
	for _, run := range route.Runs {
		fmt.Printf("\t%s: %.3f km, energy %f\n", run.Method, run.LengthKm(), run.Energy)
	}
	startNode, _ := env.graph.Node(lengths.StartNode)
	endNode, _ := env.graph.Node(lengths.EndNode)
	if strings.ToLower(*geomFormat) == "geojson" {
		pts := make([]hitchhike.GeoPoint, 0, len(route.Nodes))
		for _, id := range route.Nodes {
			node, _ := env.graph.Node(id)
			pts = append(pts, node.GeoPoint())
		}
		fmt.Println(hitchhike.PrepareGeoJSONPoint(startNode.GeoPoint()))
		fmt.Println(hitchhike.PrepareGeoJSONPoint(endNode.GeoPoint()))
		fmt.Println(hitchhike.PrepareGeoJSONLinestring(pts))
	} else {
		geom, err := hitchhike.RouteWKT(route, env.graph)
		if err != nil {
			return err
		}
		fmt.Println(hitchhike.PrepareWKTPoint(startNode.GeoPoint()))
		fmt.Println(hitchhike.PrepareWKTPoint(endNode.GeoPoint()))
		fmt.Println(geom)
	}
	if *out != "" {
		return hitchhike.ExportRouteGeoJSON(*out, route, env.graph)
	}
	return nil
}
