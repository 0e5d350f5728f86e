package model

import "time"

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunKind distinguishes the two analysis entry points.
type RunKind string

const (
	RunKindGRS     RunKind = "grs"
	RunKindCombine RunKind = "combine"
)

// RunParams records the inputs that shaped a run.
type RunParams struct {
	Kind         RunKind `json:"kind" yaml:"kind"`
	BufferMeters float64 `json:"buffer_meters,omitempty" yaml:"buffer_meters,omitempty"`
	GapMaps      bool    `json:"gap_maps,omitempty" yaml:"gap_maps,omitempty"`
	SpeciesCount int     `json:"species_count" yaml:"species_count"`
	Occurrences  string  `json:"occurrences,omitempty" yaml:"occurrences,omitempty"`
	RasterDir    string  `json:"raster_dir,omitempty" yaml:"raster_dir,omitempty"`
	ExSituTable  string  `json:"exsitu_table,omitempty" yaml:"exsitu_table,omitempty"`
	InSituTable  string  `json:"insitu_table,omitempty" yaml:"insitu_table,omitempty"`
}

// Run represents a single analysis run.
type Run struct {
	ID        string    `json:"id"`
	Params    RunParams `json:"params"`
	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
