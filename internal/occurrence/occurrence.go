// Package occurrence loads and validates species occurrence tables. The
// expected schema is strict: deviations are configuration errors, not
// conditions to paper over.
package occurrence

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"

	"github.com/croptrust/gapanalysis-cli/internal/model"
)

// expectedColumns is the required occurrence table schema, in order.
var expectedColumns = []string{"species", "latitude", "longitude", "type"}

// ReadCSV reads an occurrence table from a CSV file. The header must be
// exactly {species, latitude, longitude, type} in that order; anything
// else is a fatal input-validation error.
func ReadCSV(path string) ([]model.Occurrence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "occurrence: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return Read(f)
}

// Read reads an occurrence table from a reader. See ReadCSV for the schema
// contract.
func Read(r io.Reader) ([]model.Occurrence, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return nil, eris.Wrap(err, "occurrence: read header")
	}

	if err := validateHeader(dec.Header()); err != nil {
		return nil, err
	}

	var occs []model.Occurrence
	for {
		var o model.Occurrence
		if err := dec.Decode(&o); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "occurrence: decode row")
		}
		if err := validateType(o.Type, len(occs)+1); err != nil {
			return nil, err
		}
		occs = append(occs, o)
	}

	return occs, nil
}

func validateHeader(header []string) error {
	if len(header) != len(expectedColumns) {
		return eris.Errorf("occurrence: malformed schema: expected columns %v, got %v",
			expectedColumns, header)
	}
	for i, want := range expectedColumns {
		if strings.TrimSpace(header[i]) != want {
			return eris.Errorf("occurrence: malformed schema: column %d must be %q, got %q",
				i+1, want, header[i])
		}
	}
	return nil
}

func validateType(t model.OccurrenceType, row int) error {
	switch t {
	case model.OccurrenceGermplasm, model.OccurrenceHerbarium:
		return nil
	}
	return eris.Errorf("occurrence: row %d: type must be G or H, got %q", row, string(t))
}

// BySpecies groups occurrence records by species name, preserving record
// order within each group.
func BySpecies(occs []model.Occurrence) map[string][]model.Occurrence {
	grouped := make(map[string][]model.Occurrence)
	for _, o := range occs {
		grouped[o.Species] = append(grouped[o.Species], o)
	}
	return grouped
}

// QualifyingCoords returns lon/lat coordinates for the records that
// participate in buffering: type=G with both coordinates present.
func QualifyingCoords(occs []model.Occurrence) []geom.Coord {
	var coords []geom.Coord
	for _, o := range occs {
		if o.Qualifies() {
			coords = append(coords, geom.Coord{*o.Longitude, *o.Latitude})
		}
	}
	return coords
}
