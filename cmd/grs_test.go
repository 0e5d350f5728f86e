package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGrid = `ncols 2
nrows 2
xllcorner 0
yllcorner 0
cellsize 1
NODATA_value -9999
1 1
1 -9999
`

func TestLoadRasterDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cucurbita_palmata.asc"), []byte(testGrid), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cucurbita_digitata.asc"), []byte(testGrid), 0o644))

	species, rasters, err := loadRasterDir(dir)
	require.NoError(t, err)
	require.Len(t, rasters, 2)

	// Alphabetical by file name, underscores restored to spaces.
	assert.Equal(t, []string{"Cucurbita digitata", "Cucurbita palmata"}, species)
	assert.Equal(t, 2, rasters[0].Cols)
	assert.Equal(t, 2, rasters[0].Rows)
}

func TestLoadRasterDir_Empty(t *testing.T) {
	_, _, err := loadRasterDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .asc rasters")
}

func TestSpeciesFileName(t *testing.T) {
	assert.Equal(t, "Cucurbita_digitata", speciesFileName("Cucurbita digitata"))
	assert.Equal(t, "Zea", speciesFileName("Zea"))
}

func TestReadOccurrences_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "occ.csv")
	csv := "species,latitude,longitude,type\nCucurbita digitata,32.5,-114.8,G\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	occs, err := readOccurrences(path)
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, "Cucurbita digitata", occs[0].Species)
}

func TestReadOccurrences_BadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "occ.csv")
	csv := "name,lat,lon,kind\nCucurbita digitata,32.5,-114.8,G\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	_, err := readOccurrences(path)
	require.Error(t, err)
}
