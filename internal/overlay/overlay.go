// Package overlay rasterizes buffer geometry onto a species distribution
// grid and computes the area accumulators behind the representativeness
// score: conserved area (buffer ∩ distribution) and total range area.
package overlay

import (
	"math"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/croptrust/gapanalysis-cli/internal/raster"
)

// Result holds the masks and areas produced by one species overlay.
type Result struct {
	RangeMask     *raster.Raster
	BufferMask    *raster.Raster
	ConservedMask *raster.Raster

	ConservedAreaM2 float64
	RangeAreaM2     float64
}

// Overlay normalizes the distribution raster to a strict mask, rasterizes
// the buffer coverage onto its grid, intersects the two, and integrates
// areas. A nil coverage (no qualifying occurrences) produces an empty
// buffer mask and zero conserved area; it is not an error.
func Overlay(coverage *geom.MultiPolygon, dist *raster.Raster, presenceSentinel float64) (*Result, error) {
	if dist == nil {
		return nil, eris.New("overlay: distribution raster is required")
	}

	rangeMask := dist.Normalize(presenceSentinel)
	bufferMask := Rasterize(coverage, rangeMask)

	conserved, err := bufferMask.Multiply(rangeMask)
	if err != nil {
		return nil, eris.Wrap(err, "overlay: intersect buffer with range")
	}

	return &Result{
		RangeMask:       rangeMask,
		BufferMask:      bufferMask,
		ConservedMask:   conserved,
		ConservedAreaM2: conserved.AreaM2(),
		RangeAreaM2:     rangeMask.AreaM2(),
	}, nil
}

// Rasterize burns the coverage geometry onto the grid of the given raster:
// cells whose center falls inside any polygon become 1, all others no-data.
// Only the cells under each polygon's bounding box are tested.
func Rasterize(coverage *geom.MultiPolygon, grid *raster.Raster) *raster.Raster {
	mask := raster.NewLike(grid)
	if coverage == nil {
		return mask
	}

	for i := 0; i < coverage.NumPolygons(); i++ {
		poly := coverage.Polygon(i)
		rowMin, rowMax, colMin, colMax := cellRange(grid, poly.Bounds())
		for row := rowMin; row <= rowMax; row++ {
			for col := colMin; col <= colMax; col++ {
				if mask.At(row, col) == 1 {
					continue
				}
				x, y := grid.CellCenter(row, col)
				if pointInPolygon(poly, geom.Coord{x, y}) {
					mask.Set(row, col, 1)
				}
			}
		}
	}

	return mask
}

// GapMap derives the portion of the predicted range not covered by any
// buffer: buffer no-data is treated as 0 and subtracted from the range
// mask, and cells still equal to 1 survive. Cells covered by both sides
// subtract to 0 and drop out.
func GapMap(rangeMask, bufferMask *raster.Raster) (*raster.Raster, error) {
	if !rangeMask.SameGrid(bufferMask) {
		return nil, eris.New("overlay: gap map requires identical grids")
	}

	gap := raster.NewLike(rangeMask)
	for i, v := range rangeMask.Data {
		if rangeMask.IsNoData(v) {
			continue
		}
		b := bufferMask.Data[i]
		if bufferMask.IsNoData(b) {
			b = 0
		}
		if v-b == 1 {
			gap.Data[i] = 1
		}
	}
	return gap, nil
}

// cellRange returns the inclusive cell index range covered by the bounds,
// clamped to the grid.
func cellRange(grid *raster.Raster, b *geom.Bounds) (rowMin, rowMax, colMin, colMax int) {
	colMin = clamp(int(math.Floor((b.Min(0)-grid.XMin)/grid.CellSize)), 0, grid.Cols-1)
	colMax = clamp(int(math.Floor((b.Max(0)-grid.XMin)/grid.CellSize)), 0, grid.Cols-1)

	// Row 0 is the northern edge, so the max Y bound maps to the min row.
	rowMin = clamp(grid.Rows-1-int(math.Floor((b.Max(1)-grid.YMin)/grid.CellSize)), 0, grid.Rows-1)
	rowMax = clamp(grid.Rows-1-int(math.Floor((b.Min(1)-grid.YMin)/grid.CellSize)), 0, grid.Rows-1)
	return rowMin, rowMax, colMin, colMax
}

// pointInPolygon tests the shell first, then knocks out holes.
func pointInPolygon(poly *geom.Polygon, p geom.Coord) bool {
	if poly.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < poly.NumLinearRings(); i++ {
		if xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
