// Package store persists analysis runs and their per-species results.
package store

import (
	"context"

	"github.com/croptrust/gapanalysis-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Kind   model.RunKind   `json:"kind,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis results.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, params model.RunParams) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Results. Save preserves row order; List returns rows in saved order.
	SaveScores(ctx context.Context, runID string, rows []model.ScoreRow) error
	SaveAssessments(ctx context.Context, runID string, rows []model.FinalAssessment) error
	ListScores(ctx context.Context, runID string) ([]model.ScoreRow, error)
	ListAssessments(ctx context.Context, runID string) ([]model.FinalAssessment, error)
	LatestAssessment(ctx context.Context, species string) (*model.FinalAssessment, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
