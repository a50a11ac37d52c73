// Package cli holds the user-facing output and scaffolding helpers
// for the stylegate command.
package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/stylegate/stylegate/internal/filter"
	"github.com/stylegate/stylegate/internal/runner"
	"github.com/stylegate/stylegate/internal/store"
)

// PrintResults writes one line per evaluated item.
func PrintResults(w io.Writer, results []runner.ItemResult) {
	for i := range results {
		r := &results[i]
		where := ""
		if r.Result.Stage != "" {
			where = fmt.Sprintf("  (%s: %s", r.Result.Stage, r.Result.Signal)
			if r.Result.Value != "" {
				where += "=" + r.Result.Value
			}
			where += ")"
		}
		name := r.Item.Name
		if name == "" {
			name = "<unnamed>"
		}
		fmt.Fprintf(w, "%-7s  %-10s  %s%s\n", r.Result.Decision, r.Item.ID, name, where)
	}
}

// PrintSummary writes the run summary.
func PrintSummary(w io.Writer, s runner.Summary) {
	fmt.Fprintf(w, "\n%d items: %d allowed, %d blocked, %d unknown\n",
		s.Total, s.Allowed, s.Blocked, s.Unknown)
	if s.Uncovered > 0 {
		fmt.Fprintf(w, "%d items had no matching category\n", s.Uncovered)
	}
	if len(s.Stages) > 0 {
		fmt.Fprint(w, "decided by:")
		for _, stage := range []filter.Stage{filter.StageMetadata, filter.StageOccasion, filter.StageType, filter.StageName} {
			if n := s.Stages[stage]; n > 0 {
				fmt.Fprintf(w, " %s=%d", stage, n)
			}
		}
		fmt.Fprintln(w)
	}
}

// PrintTrace writes the full step-by-step trace of one result.
func PrintTrace(w io.Writer, result filter.Result) {
	fmt.Fprintf(w, "decision: %s\n", result.Decision)
	if result.Stage != "" {
		fmt.Fprintf(w, "decided at: %s (%s", result.Stage, result.Signal)
		if result.Value != "" {
			fmt.Fprintf(w, "=%s", result.Value)
		}
		fmt.Fprintln(w, ")")
	}
	fmt.Fprintln(w, "trace:")
	for i, step := range result.Trace {
		value := step.Value
		if value != "" {
			value = "=" + value
		}
		fmt.Fprintf(w, "  %2d. [%s] %s%s -> %s\n", i+1, step.Stage, step.Signal, value, step.Outcome)
	}
	if len(result.Trace) == 0 {
		fmt.Fprintln(w, "  (no signals consulted)")
	}
}

// PrintHistory writes stored evaluation records.
func PrintHistory(w io.Writer, records []store.EvaluationRecord) {
	for i := range records {
		r := &records[i]
		fmt.Fprintf(w, "%s  %-7s  %-10s  %-8s  %s", r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Decision, r.ItemID, r.Category, r.ItemName)
		if r.Stage != "" {
			fmt.Fprintf(w, "  (%s: %s)", r.Stage, r.Signal)
		}
		fmt.Fprintln(w)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "no evaluations recorded")
	}
}

// PrintStats writes aggregate decision statistics.
func PrintStats(w io.Writer, st *store.Stats) {
	fmt.Fprintf(w, "evaluations: %d (%d allowed, %d blocked, %d unknown)\n",
		st.TotalEvaluations, st.AllowCount, st.BlockCount, st.UnknownCount)

	if len(st.StageCounts) > 0 {
		fmt.Fprintln(w, "by stage:")
		for _, k := range sortedKeys(st.StageCounts) {
			fmt.Fprintf(w, "  %-10s %d\n", k, st.StageCounts[k])
		}
	}
	if len(st.SignalCounts) > 0 {
		fmt.Fprintln(w, "top signals:")
		for _, k := range sortedKeys(st.SignalCounts) {
			fmt.Fprintf(w, "  %-16s %d\n", k, st.SignalCounts[k])
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
