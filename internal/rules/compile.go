package rules

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
)

// Compile validates the document and prepares every context for
// evaluation: tag sets become lookup maps, value tables become
// value->decision maps, and compound conditions are compiled to
// expr programs. A compiled Document is immutable and safe to share
// across goroutines.
func (d *Document) Compile() error {
	for ctxName, ctx := range d.Contexts {
		if ctx == nil {
			return fmt.Errorf("context %q is empty", ctxName)
		}
		ctx.Occasions.compile()
		for catName, cat := range ctx.Categories {
			if cat == nil {
				return fmt.Errorf("context %q category %q is empty", ctxName, catName)
			}
			cat.aliases = toSet(cat.Aliases)
			cat.Types.compile()
			cat.Keywords.compile()
			for i := range cat.Metadata {
				c := &cat.Metadata[i]
				if err := c.compile(); err != nil {
					return fmt.Errorf("context %q category %q criterion %d: %w", ctxName, catName, i, err)
				}
			}
		}
	}
	return nil
}

func (c *Criterion) compile() error {
	switch {
	case c.Attribute != "" && c.When != "":
		return fmt.Errorf("criterion %q sets both attribute and when", c.Label())
	case c.When != "":
		if c.Name == "" {
			return fmt.Errorf("compound criterion needs a name")
		}
		if !c.Decision.IsValid() {
			return fmt.Errorf("compound criterion %q has invalid decision %q", c.Name, c.Decision)
		}
		program, err := expr.Compile(c.When,
			expr.Env(map[string]any{}),
			expr.AllowUndefinedVariables(),
			expr.AsBool(),
		)
		if err != nil {
			return fmt.Errorf("compile condition for %q: %w", c.Name, err)
		}
		c.program = program
		return nil
	case c.Attribute != "":
		if len(c.Allow) == 0 && len(c.Block) == 0 {
			return fmt.Errorf("criterion %q has no allow or block values", c.Attribute)
		}
		c.table = make(map[string]Decision, len(c.Allow)+len(c.Block))
		for _, v := range c.Allow {
			c.table[norm(v)] = Allow
		}
		// Block entries win when a value appears in both lists.
		for _, v := range c.Block {
			c.table[norm(v)] = Block
		}
		return nil
	default:
		return fmt.Errorf("criterion must set attribute or when")
	}
}

// Lookup resolves an attribute value against the criterion's table.
// The second return is false when the value is present but not
// recognized, which means "no decision from this attribute".
func (c *Criterion) Lookup(value string) (Decision, bool) {
	d, ok := c.table[norm(value)]
	return d, ok
}

// EvalCompound runs the compiled condition against the evaluation
// input. Runtime errors (such as type mismatches from odd attribute
// combinations) are reported to the caller, which treats them as
// "no decision" rather than failing the item.
func (c *Criterion) EvalCompound(input map[string]any) (bool, error) {
	out, err := expr.Run(c.program, input)
	if err != nil {
		return false, err
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("condition %q did not return a boolean", c.Name)
	}
	return ok, nil
}

func (t *TagSets) compile() {
	t.allow = toSet(t.Allow)
	t.block = toSet(t.Block)
}

// InAllow reports whether tag is in the allow set.
func (t *TagSets) InAllow(tag string) bool { return t.allow[norm(tag)] }

// InBlock reports whether tag is in the block set.
func (t *TagSets) InBlock(tag string) bool { return t.block[norm(tag)] }

// Empty reports whether both sets are empty.
func (t *TagSets) Empty() bool { return len(t.allow) == 0 && len(t.block) == 0 }

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = norm(v); v != "" {
			set[v] = true
		}
	}
	return set
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
