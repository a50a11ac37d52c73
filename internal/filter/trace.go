package filter

import "github.com/stylegate/stylegate/internal/rules"

// Stage identifies which pass of the chain produced a trace step.
type Stage string

const (
	StageMetadata Stage = "metadata"
	StageOccasion Stage = "occasion"
	StageType     Stage = "type"
	StageName     Stage = "name"
)

// Step outcomes. Allow/block outcomes reuse the decision strings.
const (
	OutcomeAbsent       = "absent"       // signal not present on the item
	OutcomeUnrecognized = "unrecognized" // present but not in the value table
	OutcomeNoMatch      = "no_match"     // condition or tag sets did not match
	OutcomeError        = "error"        // compound condition failed at runtime
)

// TraceStep records one consulted signal. Steps appear in consultation
// order; when a decision was reached, the deciding step is last.
type TraceStep struct {
	Stage   Stage  `json:"stage"`
	Signal  string `json:"signal"`
	Value   string `json:"value,omitempty"`
	Outcome string `json:"outcome"`
}

// Result is the outcome of one Evaluate call.
type Result struct {
	Decision rules.Decision `json:"decision"`
	// Stage, Signal, and Value describe the deciding step. All are
	// empty when the decision is Unknown.
	Stage  Stage       `json:"stage,omitempty"`
	Signal string      `json:"signal,omitempty"`
	Value  string      `json:"value,omitempty"`
	Trace  []TraceStep `json:"trace,omitempty"`
}
