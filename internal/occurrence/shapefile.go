package occurrence

import (
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/croptrust/gapanalysis-cli/internal/model"
)

// ReadShapefile reads occurrences from a point shapefile carrying SPECIES
// and TYPE attributes. Field name matching is case-insensitive. Non-point
// shapes are skipped with a debug log.
func ReadShapefile(path string) ([]model.Occurrence, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "occurrence: open shapefile %s", path)
	}
	defer reader.Close() //nolint:errcheck

	speciesIdx := fieldIndex(reader, "SPECIES")
	typeIdx := fieldIndex(reader, "TYPE")
	if speciesIdx < 0 || typeIdx < 0 {
		return nil, eris.New("occurrence: required shapefile fields (SPECIES, TYPE) not found")
	}

	var occs []model.Occurrence
	var row int
	for reader.Next() {
		_, shape := reader.Shape()
		row++

		pt, ok := shape.(*shp.Point)
		if !ok {
			zap.L().Debug("occurrence: skipping non-point shape", zap.Int("record", row))
			continue
		}

		t := model.OccurrenceType(strings.TrimSpace(reader.Attribute(typeIdx)))
		if err := validateType(t, row); err != nil {
			return nil, err
		}

		lat, lon := pt.Y, pt.X
		occs = append(occs, model.Occurrence{
			Species:   strings.TrimSpace(reader.Attribute(speciesIdx)),
			Latitude:  &lat,
			Longitude: &lon,
			Type:      t,
		})
	}

	return occs, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if
// not found. DBF field names are NUL-padded.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
