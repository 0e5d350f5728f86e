// Package model defines the core data structures shared across the gap
// analysis pipeline: occurrence records, per-species scores, combined
// assessments, and analysis runs.
package model

// OccurrenceType distinguishes germplasm-backed records from reference-only ones.
type OccurrenceType string

const (
	// OccurrenceGermplasm marks a record backed by an ex-situ genebank accession.
	OccurrenceGermplasm OccurrenceType = "G"
	// OccurrenceHerbarium marks a herbarium or observation-only record.
	OccurrenceHerbarium OccurrenceType = "H"
)

// Occurrence is one georeferenced record for a species. Coordinates are
// pointers because source tables routinely carry rows without them; such
// rows never participate in buffering.
type Occurrence struct {
	Species   string         `csv:"species" json:"species"`
	Latitude  *float64       `csv:"latitude" json:"latitude,omitempty"`
	Longitude *float64       `csv:"longitude" json:"longitude,omitempty"`
	Type      OccurrenceType `csv:"type" json:"type"`
}

// Qualifies reports whether the record participates in ex-situ buffering:
// germplasm-backed with both coordinates present.
func (o Occurrence) Qualifies() bool {
	return o.Type == OccurrenceGermplasm && o.Latitude != nil && o.Longitude != nil
}
