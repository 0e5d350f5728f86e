// Package raster provides an in-memory grid type for species distribution
// masks plus the area arithmetic the gap analysis depends on: strict mask
// normalization, elementwise intersection, and true ground area under
// geographic (non-equal-area) coordinate systems.
package raster

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Authalic Earth radius in meters: the sphere with the same surface area as
// the WGS84 ellipsoid. Used for ground area of geographic-CRS cells.
const authalicRadiusM = 6371007.1809

const degToRad = math.Pi / 180.0

// Raster is a single-band grid over a bounding extent. Data is row-major
// with row 0 at the northern edge. XMin/YMin name the lower-left corner of
// the extent; cells are square in CRS units.
type Raster struct {
	Cols, Rows int
	XMin, YMin float64
	CellSize   float64
	NoData     float64
	CRS        string // WKT or EPSG identifier; empty means unset
	Data       []float64
}

// New creates a raster with every cell set to the no-data value.
func New(cols, rows int, xmin, ymin, cellSize, noData float64) *Raster {
	r := &Raster{
		Cols:     cols,
		Rows:     rows,
		XMin:     xmin,
		YMin:     ymin,
		CellSize: cellSize,
		NoData:   noData,
		Data:     make([]float64, cols*rows),
	}
	for i := range r.Data {
		r.Data[i] = noData
	}
	return r
}

// NewLike creates an empty raster on the same grid as r, including CRS.
func NewLike(r *Raster) *Raster {
	out := New(r.Cols, r.Rows, r.XMin, r.YMin, r.CellSize, r.NoData)
	out.CRS = r.CRS
	return out
}

// At returns the value at (row, col).
func (r *Raster) At(row, col int) float64 {
	return r.Data[row*r.Cols+col]
}

// Set assigns the value at (row, col).
func (r *Raster) Set(row, col int, v float64) {
	r.Data[row*r.Cols+col] = v
}

// IsNoData reports whether v is the no-data sentinel.
func (r *Raster) IsNoData(v float64) bool {
	if math.IsNaN(r.NoData) {
		return math.IsNaN(v)
	}
	return v == r.NoData
}

// CellCenter returns the CRS coordinates of the center of cell (row, col).
func (r *Raster) CellCenter(row, col int) (x, y float64) {
	x = r.XMin + (float64(col)+0.5)*r.CellSize
	y = r.YMin + (float64(r.Rows-row)-0.5)*r.CellSize
	return x, y
}

// gridEpsilon tolerates float drift in origins read back from text formats.
const gridEpsilon = 1e-9

// SameGrid reports whether two rasters share extent, resolution, and CRS.
func (r *Raster) SameGrid(o *Raster) bool {
	return r.Cols == o.Cols && r.Rows == o.Rows &&
		math.Abs(r.XMin-o.XMin) < gridEpsilon &&
		math.Abs(r.YMin-o.YMin) < gridEpsilon &&
		math.Abs(r.CellSize-o.CellSize) < gridEpsilon &&
		r.CRS == o.CRS
}

// Geographic reports whether the raster's coordinates are in degrees.
// Projected WKT starts with PROJCS; everything else, including an unset
// CRS, is treated as geographic lat/long.
func (r *Raster) Geographic() bool {
	return !strings.HasPrefix(strings.TrimSpace(r.CRS), "PROJCS")
}

// Normalize returns a strict mask: cells exactly equal to the presence
// sentinel become 1, everything else becomes no-data. Near-equal floating
// values produced by resampling do not survive.
func (r *Raster) Normalize(sentinel float64) *Raster {
	out := NewLike(r)
	for i, v := range r.Data {
		if v == sentinel {
			out.Data[i] = 1
		}
	}
	return out
}

// Multiply intersects two mask rasters elementwise: the result is 1 only
// where both inputs are 1, no-data otherwise.
func (r *Raster) Multiply(o *Raster) (*Raster, error) {
	if !r.SameGrid(o) {
		return nil, eris.New("raster: multiply requires identical grids")
	}
	out := NewLike(r)
	for i := range r.Data {
		if r.Data[i] == 1 && o.Data[i] == 1 {
			out.Data[i] = 1
		}
	}
	return out, nil
}

// ValidCount returns the number of cells that are not no-data.
func (r *Raster) ValidCount() int {
	var n int
	for _, v := range r.Data {
		if !r.IsNoData(v) {
			n++
		}
	}
	return n
}

// rowAreaM2 returns the true ground area of one cell in the given row.
// Under a geographic CRS the area of a cell shrinks toward the poles, so
// it is a function of the row's latitude band; under a projected CRS every
// cell has the same area.
func (r *Raster) rowAreaM2(row int) float64 {
	if !r.Geographic() {
		return r.CellSize * r.CellSize
	}
	latTop := (r.YMin + float64(r.Rows-row)*r.CellSize) * degToRad
	latBottom := latTop - r.CellSize*degToRad
	dLon := r.CellSize * degToRad
	return authalicRadiusM * authalicRadiusM * dLon * (math.Sin(latTop) - math.Sin(latBottom))
}

// MedianCellAreaM2 returns the median true area over the valid cells. The
// median rather than the mean damps the handful of edge cells whose area
// is distorted by the projection.
func (r *Raster) MedianCellAreaM2() float64 {
	areas := make([]float64, 0, len(r.Data))
	for row := 0; row < r.Rows; row++ {
		a := r.rowAreaM2(row)
		for col := 0; col < r.Cols; col++ {
			if !r.IsNoData(r.At(row, col)) {
				areas = append(areas, a)
			}
		}
	}
	if len(areas) == 0 {
		return 0
	}
	sort.Float64s(areas)
	mid := len(areas) / 2
	if len(areas)%2 == 1 {
		return areas[mid]
	}
	return (areas[mid-1] + areas[mid]) / 2
}

// AreaM2 returns the total area of the valid cells, approximated as
// valid-cell count times the median per-cell area.
func (r *Raster) AreaM2() float64 {
	return float64(r.ValidCount()) * r.MedianCellAreaM2()
}
