package buffer

import (
	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// SpeciesCoverage pairs a species with its buffer coverage geometry.
type SpeciesCoverage struct {
	Species  string
	Coverage *geom.MultiPolygon
}

// WriteShapefile exports buffer coverages as a polygon shapefile with a
// SPECIES attribute, one record per species. Species with no coverage are
// skipped. Intended for visual inspection of buffers in desktop GIS.
func WriteShapefile(path string, items []SpeciesCoverage) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "buffer: create shapefile %s", path)
	}
	defer w.Close() //nolint:errcheck

	fields := []shp.Field{shp.StringField("SPECIES", 128)}
	w.SetFields(fields)

	var row int
	for _, item := range items {
		if item.Coverage == nil || item.Coverage.NumPolygons() == 0 {
			zap.L().Debug("buffer: skipping species without coverage",
				zap.String("species", item.Species))
			continue
		}

		poly := multiPolygonToShape(item.Coverage)
		if poly == nil {
			continue
		}
		w.Write(poly)
		if err := w.WriteAttribute(row, 0, item.Species); err != nil {
			return eris.Wrapf(err, "buffer: write attribute for %s", item.Species)
		}
		row++
	}

	return nil
}

// multiPolygonToShape flattens a MultiPolygon into a single multi-part
// shapefile polygon, one part per ring.
func multiPolygonToShape(mp *geom.MultiPolygon) *shp.Polygon {
	var parts [][]shp.Point
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		for j := 0; j < p.NumLinearRings(); j++ {
			ring := p.LinearRing(j)
			coords := ring.Coords()
			pts := make([]shp.Point, 0, len(coords))
			for _, c := range coords {
				pts = append(pts, shp.Point{X: c[0], Y: c[1]})
			}
			if len(pts) > 0 {
				parts = append(parts, pts)
			}
		}
	}
	if len(parts) == 0 {
		return nil
	}

	pl := shp.NewPolyLine(parts)
	poly := shp.Polygon(*pl)
	return &poly
}
