package raster

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// defaultNoData matches the conventional ESRI ASCII grid sentinel.
const defaultNoData = -9999

// ReadASCIIGrid reads an ESRI ASCII grid (.asc) from disk. A .prj sidecar
// with the same basename, if present, supplies the CRS; otherwise CRS is
// left unset for the caller to resolve.
func ReadASCIIGrid(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	header := map[string]float64{}
	var dataLines []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		key := strings.ToLower(fields[0])
		if len(fields) == 2 && isHeaderKey(key) {
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, eris.Wrapf(err, "raster: parse header %s in %s", key, path)
			}
			header[key] = v
			continue
		}
		dataLines = append(dataLines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "raster: read %s", path)
	}

	for _, k := range []string{"ncols", "nrows", "xllcorner", "yllcorner", "cellsize"} {
		if _, ok := header[k]; !ok {
			return nil, eris.Errorf("raster: %s: missing header field %s", path, k)
		}
	}

	cols := int(header["ncols"])
	rows := int(header["nrows"])
	if cols <= 0 || rows <= 0 {
		return nil, eris.Errorf("raster: %s: invalid dimensions %dx%d", path, cols, rows)
	}

	noData := float64(defaultNoData)
	if v, ok := header["nodata_value"]; ok {
		noData = v
	}

	r := New(cols, rows, header["xllcorner"], header["yllcorner"], header["cellsize"], noData)

	var i int
	for _, line := range dataLines {
		for _, tok := range strings.Fields(line) {
			if i >= len(r.Data) {
				return nil, eris.Errorf("raster: %s: more than %d values", path, len(r.Data))
			}
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "raster: parse value %q in %s", tok, path)
			}
			r.Data[i] = v
			i++
		}
	}
	if i != len(r.Data) {
		return nil, eris.Errorf("raster: %s: expected %d values, got %d", path, len(r.Data), i)
	}

	if prj, err := os.ReadFile(prjPath(path)); err == nil {
		r.CRS = strings.TrimSpace(string(prj))
	}

	return r, nil
}

// WriteASCIIGrid writes the raster as an ESRI ASCII grid. When the raster
// carries a CRS a .prj sidecar is written next to it.
func WriteASCIIGrid(path string, r *Raster) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "raster: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "ncols %d\n", r.Cols)
	fmt.Fprintf(w, "nrows %d\n", r.Rows)
	fmt.Fprintf(w, "xllcorner %s\n", formatFloat(r.XMin))
	fmt.Fprintf(w, "yllcorner %s\n", formatFloat(r.YMin))
	fmt.Fprintf(w, "cellsize %s\n", formatFloat(r.CellSize))
	fmt.Fprintf(w, "nodata_value %s\n", formatFloat(r.NoData))

	for row := 0; row < r.Rows; row++ {
		for col := 0; col < r.Cols; col++ {
			if col > 0 {
				w.WriteByte(' ')
			}
			w.WriteString(formatFloat(r.At(row, col)))
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return eris.Wrapf(err, "raster: write %s", path)
	}

	if r.CRS != "" {
		if err := os.WriteFile(prjPath(path), []byte(r.CRS+"\n"), 0o644); err != nil {
			return eris.Wrapf(err, "raster: write prj for %s", path)
		}
	}

	return nil
}

func isHeaderKey(k string) bool {
	switch k {
	case "ncols", "nrows", "xllcorner", "yllcorner", "cellsize", "nodata_value":
		return true
	}
	return false
}

func prjPath(ascPath string) string {
	return strings.TrimSuffix(ascPath, filepath.Ext(ascPath)) + ".prj"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
