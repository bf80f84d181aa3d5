package hitchhike

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// WriteResultsCSV writes one ';' separated row per result with header taken from struct tags
func WriteResultsCSV(w io.Writer, results []*SizingResult) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	err := gocsv.MarshalCSV(&results, gocsv.NewSafeCSVWriter(writer))
	if err != nil {
		return errors.Wrap(err, "Can't write results")
	}
	return nil
}

// ReadResultsCSV reads rows written by WriteResultsCSV
func ReadResultsCSV(r io.Reader) ([]*SizingResult, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	results := []*SizingResult{}
	err := gocsv.UnmarshalCSV(reader, &results)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read results")
	}
	return results, nil
}

// ExportResultsCSV writes results into file
func ExportResultsCSV(fname string, results []*SizingResult) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()
	err = WriteResultsCSV(file, results)
	if err != nil {
		return err
	}
	return file.Close()
}

// ExportRouteGeoJSON writes route runs as GeoJSON FeatureCollection into file
func ExportRouteGeoJSON(fname string, route *Route, graph *Graph) error {
	fc, err := RouteGeoJSON(route, graph)
	if err != nil {
		return errors.Wrap(err, "Can't prepare route geometry")
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "Can't marshal route geometry")
	}
	err = os.WriteFile(fname, b, 0644)
	if err != nil {
		return errors.Wrap(err, "Can't write file")
	}
	return nil
}
