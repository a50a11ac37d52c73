// Package filter implements the metadata-first attribute resolver:
// given a catalog item, a garment category, and an activity context,
// it walks a strict trust chain (structured metadata, then occasion
// tags, then item type, then free-text name tokens) and returns the
// first definite allow/block decision, or unknown when every signal
// is absent or inconclusive.
package filter

import (
	"log/slog"

	"github.com/stylegate/stylegate/internal/catalog"
	"github.com/stylegate/stylegate/internal/rules"
)

// Engine evaluates items against a compiled ruleset. It holds no
// mutable state; concurrent Evaluate calls need no coordination.
type Engine struct {
	doc    *rules.Document
	logger *slog.Logger
	passes []pass
}

// New creates an engine over a compiled ruleset. The logger is used
// only for diagnostic trace output and never affects decisions.
func New(doc *rules.Document, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		doc:    doc,
		logger: logger,
		passes: []pass{metadataPass{}, occasionPass{}, typePass{}, namePass{}},
	}
}

// Evaluate resolves one item for a category and context. It never
// fails: an unknown context or category, missing metadata, and
// unrecognized values all degrade down the chain, ending in Unknown
// when nothing decides. The caller owns the default policy for
// Unknown results.
func (e *Engine) Evaluate(item *catalog.Item, category, context string) Result {
	ctx := e.doc.Context(context)
	cat := ctx.Category(category)

	var trace []TraceStep
	for _, p := range e.passes {
		decision, decided := p.Evaluate(item, ctx, cat, &trace)
		if !decided {
			continue
		}
		last := trace[len(trace)-1]
		e.logger.Debug("decision",
			"item", item.ID,
			"category", category,
			"context", context,
			"decision", decision,
			"stage", p.Stage(),
			"signal", last.Signal,
			"value", last.Value,
		)
		return Result{
			Decision: decision,
			Stage:    p.Stage(),
			Signal:   last.Signal,
			Value:    last.Value,
			Trace:    trace,
		}
	}

	e.logger.Debug("decision",
		"item", item.ID,
		"category", category,
		"context", context,
		"decision", rules.Unknown,
	)
	return Result{Decision: rules.Unknown, Trace: trace}
}
