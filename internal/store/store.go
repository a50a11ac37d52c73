package store

import "context"

// Store is the persistence interface for decision history.
type Store interface {
	// LogEvaluation persists an evaluation asynchronously (buffered).
	LogEvaluation(ctx context.Context, record *EvaluationRecord) error

	// Query retrieves evaluations matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]EvaluationRecord, error)

	// GetEvaluation retrieves a single evaluation by ID.
	GetEvaluation(ctx context.Context, id string) (*EvaluationRecord, error)

	// Stats returns aggregate statistics, optionally filtered by run.
	Stats(ctx context.Context, runID string) (*Stats, error)

	// CreateRun records a new batch evaluation run.
	CreateRun(ctx context.Context, run *Run) error

	// EndRun marks a run as ended.
	EndRun(ctx context.Context, runID string) error

	// GetRuns retrieves recent runs, newest first.
	GetRuns(ctx context.Context, limit int) ([]Run, error)

	// Close flushes pending writes and closes the store.
	Close() error
}
