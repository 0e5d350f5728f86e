package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadFCS_CSV(t *testing.T) {
	path := writeTemp(t, "scores.csv", `species,fcs
Cucurbita digitata,42.5
Cucurbita palmata,
Zea mays,NA
`)

	rows, err := ReadFCS(path, "fcs")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Cucurbita digitata", rows[0].Species)
	require.NotNil(t, rows[0].Score)
	assert.InDelta(t, 42.5, *rows[0].Score, 1e-9)

	// Blank and NA cells are missing scores, not zeros.
	assert.Nil(t, rows[1].Score)
	assert.Nil(t, rows[2].Score)
}

func TestReadFCS_CaseInsensitiveHeader(t *testing.T) {
	path := writeTemp(t, "scores.csv", "SPECIES,FCS\nZea mays,10\n")

	rows, err := ReadFCS(path, "fcs")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 10, *rows[0].Score, 1e-9)
}

func TestReadFCS_SkipsBlankSpecies(t *testing.T) {
	path := writeTemp(t, "scores.csv", "species,fcs\n ,10\nZea mays,20\n")

	rows, err := ReadFCS(path, "fcs")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Zea mays", rows[0].Species)
}

func TestReadFCS_MissingScoreColumn(t *testing.T) {
	path := writeTemp(t, "scores.csv", "species,other\nZea mays,10\n")

	_, err := ReadFCS(path, "fcs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required columns")
}

func TestReadFCS_BadScoreCell(t *testing.T) {
	path := writeTemp(t, "scores.csv", "species,fcs\nZea mays,high\n")

	_, err := ReadFCS(path, "fcs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestReadFCS_Empty(t *testing.T) {
	path := writeTemp(t, "scores.csv", "")

	_, err := ReadFCS(path, "fcs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty score table")
}

func TestReadFCS_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("scores")
	require.NoError(t, err)
	header := sheet.AddRow()
	header.AddCell().SetString("species")
	header.AddCell().SetString("fcs")
	row := sheet.AddRow()
	row.AddCell().SetString("Cucurbita digitata")
	row.AddCell().SetFloat(61.25)
	row = sheet.AddRow()
	row.AddCell().SetString("Cucurbita palmata")
	row.AddCell().SetString("na")
	require.NoError(t, f.Save(path))

	rows, err := ReadFCS(path, "fcs")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NotNil(t, rows[0].Score)
	assert.InDelta(t, 61.25, *rows[0].Score, 1e-9)
	assert.Nil(t, rows[1].Score)
}
