package hitchhike

import (
	"fmt"

	geojson "github.com/paulmach/go.geojson"
)

// PrepareGeoJSONLinestring returns GeoJSON representation of LineString
func PrepareGeoJSONLinestring(pts []GeoPoint) string {
	b, err := geojson.NewLineStringGeometry(geoPointsToCoordinates(pts)).MarshalJSON()
	if err != nil {
		fmt.Printf("Warning. Can not convert geometry to geojson format: %s", err.Error())
		return ""
	}
	return string(b)
}

// PrepareGeoJSONPoint returns GeoJSON representation of Point
func PrepareGeoJSONPoint(pt GeoPoint) string {
	b, err := geojson.NewPointGeometry([]float64{pt.Lon, pt.Lat}).MarshalJSON()
	if err != nil {
		fmt.Printf("Warning. Can not convert geometry to geojson format: %s", err.Error())
		return ""
	}
	return string(b)
}

func geoPointsToCoordinates(pts []GeoPoint) [][]float64 {
	pts2d := make([][]float64, len(pts))
	for i := range pts {
		pts2d[i] = []float64{pts[i].Lon, pts[i].Lat}
	}
	return pts2d
}

// RouteGeoJSON returns FeatureCollection with one LineString feature per method run.
// Each feature carries method, graph and spherical lengths and energy of the run.
func RouteGeoJSON(route *Route, graph *Graph) (*geojson.FeatureCollection, error) {
	nodes, err := routeNodes(route, graph)
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	for i, run := range route.Runs {
		// Run of edges [From, To] spans nodes [From, To+1]
		pts := make([]GeoPoint, 0, run.To-run.From+2)
		for j := run.From; j <= run.To+1; j++ {
			pts = append(pts, nodes[j].GeoPoint())
		}
		feature := geojson.NewLineStringFeature(geoPointsToCoordinates(pts))
		feature.SetProperty("run", i)
		feature.SetProperty("method", run.Method.String())
		feature.SetProperty("length_meters", run.LengthMeters)
		feature.SetProperty("spherical_length_km", getSphericalLength(pts))
		feature.SetProperty("energy", run.Energy)
		feature.SetProperty("source", int64(nodes[run.From].ID))
		feature.SetProperty("target", int64(nodes[run.To+1].ID))
		fc.AddFeature(feature)
	}
	return fc, nil
}
