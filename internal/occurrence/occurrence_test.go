package occurrence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croptrust/gapanalysis-cli/internal/model"
)

func TestRead(t *testing.T) {
	csv := `species,latitude,longitude,type
Cucurbita digitata,32.5,-114.8,G
Cucurbita digitata,,,H
Cucurbita palmata,33.1,-115.2,H
`
	occs, err := Read(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, occs, 3)

	assert.Equal(t, "Cucurbita digitata", occs[0].Species)
	assert.Equal(t, model.OccurrenceGermplasm, occs[0].Type)
	require.NotNil(t, occs[0].Latitude)
	assert.InDelta(t, 32.5, *occs[0].Latitude, 1e-9)
	assert.InDelta(t, -114.8, *occs[0].Longitude, 1e-9)

	// Empty coordinate cells decode to nil, not zero.
	assert.Nil(t, occs[1].Latitude)
	assert.Nil(t, occs[1].Longitude)
}

func TestRead_SchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "wrong name", header: "name,latitude,longitude,type"},
		{name: "wrong order", header: "latitude,species,longitude,type"},
		{name: "missing column", header: "species,latitude,longitude"},
		{name: "extra column", header: "species,latitude,longitude,type,country"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.header + "\nCucurbita digitata,1,2,G\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "malformed schema")
		})
	}
}

func TestRead_InvalidType(t *testing.T) {
	csv := "species,latitude,longitude,type\nCucurbita digitata,1,2,X\n"
	_, err := Read(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type must be G or H")
	assert.Contains(t, err.Error(), "row 1")
}

func TestBySpecies(t *testing.T) {
	lat, lon := 1.0, 2.0
	occs := []model.Occurrence{
		{Species: "A", Latitude: &lat, Longitude: &lon, Type: model.OccurrenceGermplasm},
		{Species: "B", Type: model.OccurrenceHerbarium},
		{Species: "A", Type: model.OccurrenceHerbarium},
	}

	grouped := BySpecies(occs)
	assert.Len(t, grouped, 2)
	assert.Len(t, grouped["A"], 2)
	assert.Len(t, grouped["B"], 1)
	assert.Equal(t, model.OccurrenceGermplasm, grouped["A"][0].Type)
}

func TestQualifyingCoords(t *testing.T) {
	lat, lon := 32.5, -114.8
	occs := []model.Occurrence{
		{Species: "A", Latitude: &lat, Longitude: &lon, Type: model.OccurrenceGermplasm},
		{Species: "A", Latitude: &lat, Longitude: &lon, Type: model.OccurrenceHerbarium},
		{Species: "A", Latitude: &lat, Type: model.OccurrenceGermplasm},
		{Species: "A", Type: model.OccurrenceGermplasm},
	}

	coords := QualifyingCoords(occs)
	require.Len(t, coords, 1, "only georeferenced G records qualify")
	assert.InDelta(t, -114.8, coords[0][0], 1e-9)
	assert.InDelta(t, 32.5, coords[0][1], 1e-9)
}

func TestQualifyingCoords_Empty(t *testing.T) {
	assert.Nil(t, QualifyingCoords(nil))
}
