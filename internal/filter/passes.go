package filter

import (
	"strings"

	"github.com/stylegate/stylegate/internal/catalog"
	"github.com/stylegate/stylegate/internal/rules"
)

// pass is one link of the resolution chain. A pass inspects its
// signals, appends a trace step for everything it consulted, and
// reports whether it reached a definite decision. Evaluation stops
// at the first pass that decides (first-match-wins), mirroring the
// strict trust ordering: metadata > occasion > type > name.
type pass interface {
	Stage() Stage
	Evaluate(item *catalog.Item, ctx *rules.Context, cat *rules.Category, trace *[]TraceStep) (rules.Decision, bool)
}

// metadataPass walks the category's ordered criteria. A recognized
// attribute value or a matching compound condition is terminal; a
// present-but-unrecognized value only skips to the next criterion,
// so the whole list is exhausted before any lower-trust pass runs.
type metadataPass struct{}

func (metadataPass) Stage() Stage { return StageMetadata }

func (metadataPass) Evaluate(item *catalog.Item, _ *rules.Context, cat *rules.Category, trace *[]TraceStep) (rules.Decision, bool) {
	if cat == nil {
		return rules.Unknown, false
	}
	var input map[string]any // built lazily, only for compound criteria
	for i := range cat.Metadata {
		c := &cat.Metadata[i]

		if c.Compound() {
			if input == nil {
				input = exprInput(item)
			}
			matched, err := c.EvalCompound(input)
			switch {
			case err != nil:
				*trace = append(*trace, TraceStep{StageMetadata, c.Name, "", OutcomeError})
			case matched:
				*trace = append(*trace, TraceStep{StageMetadata, c.Name, "", string(c.Decision)})
				return c.Decision, true
			default:
				*trace = append(*trace, TraceStep{StageMetadata, c.Name, "", OutcomeNoMatch})
			}
			continue
		}

		value, present := item.Attr(c.Attribute)
		if !present {
			*trace = append(*trace, TraceStep{StageMetadata, c.Attribute, "", OutcomeAbsent})
			continue
		}
		decision, recognized := c.Lookup(value)
		if !recognized {
			*trace = append(*trace, TraceStep{StageMetadata, c.Attribute, value, OutcomeUnrecognized})
			continue
		}
		*trace = append(*trace, TraceStep{StageMetadata, c.Attribute, value, string(decision)})
		return decision, true
	}
	return rules.Unknown, false
}

// exprInput is the environment compound conditions run against.
// Attribute maps are rebuilt as map[string]any so missing keys
// resolve to nil inside expressions instead of raising.
func exprInput(item *catalog.Item) map[string]any {
	attrs := make(map[string]any, len(item.Metadata.VisualAttributes))
	for k, v := range item.Metadata.VisualAttributes {
		attrs[k] = v
	}
	return map[string]any{
		"attrs":    attrs,
		"itemType": item.Type,
		"name":     item.Name,
	}
}

// occasionPass checks item occasion tags against the context-wide
// allow and block sets. Allow is checked first.
type occasionPass struct{}

func (occasionPass) Stage() Stage { return StageOccasion }

func (occasionPass) Evaluate(item *catalog.Item, ctx *rules.Context, _ *rules.Category, trace *[]TraceStep) (rules.Decision, bool) {
	if ctx == nil || ctx.Occasions.Empty() {
		return rules.Unknown, false
	}
	if len(item.Occasion) == 0 {
		*trace = append(*trace, TraceStep{StageOccasion, "occasion", "", OutcomeAbsent})
		return rules.Unknown, false
	}
	for _, tag := range item.Occasion {
		if ctx.Occasions.InAllow(tag) {
			*trace = append(*trace, TraceStep{StageOccasion, "occasion", tag, string(rules.Allow)})
			return rules.Allow, true
		}
	}
	for _, tag := range item.Occasion {
		if ctx.Occasions.InBlock(tag) {
			*trace = append(*trace, TraceStep{StageOccasion, "occasion", tag, string(rules.Block)})
			return rules.Block, true
		}
	}
	*trace = append(*trace, TraceStep{StageOccasion, "occasion", strings.Join(item.Occasion, ","), OutcomeNoMatch})
	return rules.Unknown, false
}

// typePass decides on item.type alone.
type typePass struct{}

func (typePass) Stage() Stage { return StageType }

func (typePass) Evaluate(item *catalog.Item, _ *rules.Context, cat *rules.Category, trace *[]TraceStep) (rules.Decision, bool) {
	if cat == nil || cat.Types.Empty() {
		return rules.Unknown, false
	}
	if item.Type == "" {
		*trace = append(*trace, TraceStep{StageType, "type", "", OutcomeAbsent})
		return rules.Unknown, false
	}
	if cat.Types.InAllow(item.Type) {
		*trace = append(*trace, TraceStep{StageType, "type", item.Type, string(rules.Allow)})
		return rules.Allow, true
	}
	if cat.Types.InBlock(item.Type) {
		*trace = append(*trace, TraceStep{StageType, "type", item.Type, string(rules.Block)})
		return rules.Block, true
	}
	*trace = append(*trace, TraceStep{StageType, "type", item.Type, OutcomeNoMatch})
	return rules.Unknown, false
}

// namePass tokenizes the item name and matches tokens against the
// category keyword sets. Name data is the least trusted signal, so
// when both an allow and a block keyword appear, block wins.
type namePass struct{}

func (namePass) Stage() Stage { return StageName }

func (namePass) Evaluate(item *catalog.Item, _ *rules.Context, cat *rules.Category, trace *[]TraceStep) (rules.Decision, bool) {
	if cat == nil || cat.Keywords.Empty() {
		return rules.Unknown, false
	}
	tokens := item.NameTokens()
	if len(tokens) == 0 {
		*trace = append(*trace, TraceStep{StageName, "name", "", OutcomeAbsent})
		return rules.Unknown, false
	}

	var allowHit string
	for _, tok := range tokens {
		if cat.Keywords.InBlock(tok) {
			*trace = append(*trace, TraceStep{StageName, "name", tok, string(rules.Block)})
			return rules.Block, true
		}
		if allowHit == "" && cat.Keywords.InAllow(tok) {
			allowHit = tok
		}
	}
	if allowHit != "" {
		*trace = append(*trace, TraceStep{StageName, "name", allowHit, string(rules.Allow)})
		return rules.Allow, true
	}
	*trace = append(*trace, TraceStep{StageName, "name", item.Name, OutcomeNoMatch})
	return rules.Unknown, false
}
