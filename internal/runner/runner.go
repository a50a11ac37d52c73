// Package runner wires the filter engine to catalogs and sinks: it
// batch-evaluates every item of a catalog for one context, publishes
// each decision record on the event bus, and aggregates a summary.
package runner

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stylegate/stylegate/internal/catalog"
	"github.com/stylegate/stylegate/internal/eventbus"
	"github.com/stylegate/stylegate/internal/filter"
	"github.com/stylegate/stylegate/internal/rules"
	"github.com/stylegate/stylegate/internal/store"
)

// Config controls one batch run.
type Config struct {
	// Context is the activity context to evaluate against.
	Context string
	// Category forces every item into one category. When empty, each
	// item's category is resolved from its type via the ruleset's
	// category names and aliases.
	Category string
	// Workers is the evaluation fan-out. Evaluation is stateless, so
	// any value >= 1 is safe.
	Workers int
	// RunID tags every published record. Assigned if empty.
	RunID string
}

// ItemResult pairs an item with its evaluation result.
type ItemResult struct {
	Item     catalog.Item
	Category string
	Result   filter.Result
}

// Summary aggregates decisions across a run.
type Summary struct {
	Total     int
	Allowed   int
	Blocked   int
	Unknown   int
	Uncovered int // items whose type resolved to no category
	Stages    map[filter.Stage]int
}

// Runner evaluates catalogs against a compiled ruleset.
type Runner struct {
	engine *filter.Engine
	doc    *rules.Document
	bus    *eventbus.EventBus
	logger *slog.Logger
}

func New(engine *filter.Engine, doc *rules.Document, bus *eventbus.EventBus, logger *slog.Logger) *Runner {
	return &Runner{engine: engine, doc: doc, bus: bus, logger: logger}
}

// Run evaluates all items and returns per-item results in input order
// plus a summary. Records are published to the event bus as decisions
// are made; ctx cancellation stops feeding the workers.
func (r *Runner) Run(ctx context.Context, cfg Config, items []catalog.Item) ([]ItemResult, Summary) {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]ItemResult, len(items))
	indexCh := make(chan int)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				results[i] = r.evaluateOne(cfg, &items[i])
			}
		}()
	}

feed:
	for i := range items {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexCh)
	wg.Wait()

	summary := Summary{Stages: make(map[filter.Stage]int)}
	for i := range results {
		res := &results[i]
		summary.Total++
		switch res.Result.Decision {
		case rules.Allow:
			summary.Allowed++
		case rules.Block:
			summary.Blocked++
		default:
			summary.Unknown++
		}
		if res.Category == "" {
			summary.Uncovered++
		}
		if res.Result.Stage != "" {
			summary.Stages[res.Result.Stage]++
		}
	}
	return results, summary
}

func (r *Runner) evaluateOne(cfg Config, item *catalog.Item) ItemResult {
	category := cfg.Category
	if category == "" {
		category = r.doc.Context(cfg.Context).ResolveCategory(item.Type)
	}
	if category == "" {
		r.logger.Debug("no category for item type", "item", item.ID, "type", item.Type)
	}

	result := r.engine.Evaluate(item, category, cfg.Context)
	r.bus.Publish(newRecord(cfg, item, category, result))
	return ItemResult{Item: *item, Category: category, Result: result}
}

func newRecord(cfg Config, item *catalog.Item, category string, result filter.Result) *store.EvaluationRecord {
	record := &store.EvaluationRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		RunID:     cfg.RunID,
		ItemID:    item.ID,
		ItemName:  item.Name,
		Category:  category,
		Context:   cfg.Context,
		Decision:  string(result.Decision),
		Stage:     string(result.Stage),
		Signal:    result.Signal,
		Value:     result.Value,
	}
	if len(result.Trace) > 0 {
		if j, err := json.Marshal(result.Trace); err == nil {
			record.TraceJSON = string(j)
		}
	}
	return record
}
