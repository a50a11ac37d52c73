package store

import "time"

// EvaluationRecord is one persisted filter decision with its trace.
type EvaluationRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	ItemID    string    `json:"item_id"`
	ItemName  string    `json:"item_name"`
	Category  string    `json:"category"`
	Context   string    `json:"context"`
	Decision  string    `json:"decision"`
	Stage     string    `json:"stage,omitempty"`
	Signal    string    `json:"signal,omitempty"`
	Value     string    `json:"value,omitempty"`
	// TraceJSON is the serialized ordered trace (filter.TraceStep list).
	TraceJSON string `json:"trace,omitempty"`
}

// Run represents one batch evaluation over a catalog.
type Run struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Context     string     `json:"context"`
	RulesPath   string     `json:"rules_path"`
	CatalogPath string     `json:"catalog_path"`
}

// QueryFilter specifies filters for querying evaluations.
type QueryFilter struct {
	RunID    string
	Context  string
	Category string
	Decision string
	Stage    string
	Since    *time.Time
	Limit    int
	Offset   int
}

// Stats holds aggregate decision statistics.
type Stats struct {
	TotalEvaluations int            `json:"total_evaluations"`
	AllowCount       int            `json:"allow_count"`
	BlockCount       int            `json:"block_count"`
	UnknownCount     int            `json:"unknown_count"`
	StageCounts      map[string]int `json:"stage_counts"`
	SignalCounts     map[string]int `json:"signal_counts"`
}
