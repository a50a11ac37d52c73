// Package rules defines the declarative ruleset document: per activity
// context and per garment category, an ordered list of metadata
// criteria plus occasion, type, and name-keyword tag sets. The trust
// ordering (metadata beats occasion beats type beats name) is data,
// not branching, so new categories are added by editing the document.
package rules

import "github.com/expr-lang/expr/vm"

// Decision is the outcome of evaluating an item.
type Decision string

const (
	// Allow admits the item for the context.
	Allow Decision = "allow"
	// Block rejects the item for the context.
	Block Decision = "block"
	// Unknown means no signal was decisive; the caller owns the
	// default policy.
	Unknown Decision = "unknown"
)

// IsValid reports whether d is a decision a rule may produce.
// Unknown is never written in a ruleset; it is only ever returned.
func (d Decision) IsValid() bool {
	return d == Allow || d == Block
}

// Document is the top-level ruleset YAML structure.
type Document struct {
	Version  string              `yaml:"version"`
	Contexts map[string]*Context `yaml:"contexts"`
}

// Context holds the rules for one activity context (e.g. "gym").
type Context struct {
	// Occasions are context-wide tag sets checked against
	// item.occasion when metadata yields no decision.
	Occasions  TagSets              `yaml:"occasions"`
	Categories map[string]*Category `yaml:"categories"`
}

// Category holds the per-category rule chain.
type Category struct {
	// Aliases are item types that resolve to this category in batch
	// runs, e.g. "shorts" and "jeans" under "pants".
	Aliases []string `yaml:"aliases,omitempty"`
	// Metadata criteria are evaluated strictly in list order and
	// exhausted before any lower-trust signal is consulted.
	Metadata []Criterion `yaml:"metadata"`
	// Types decide on item.type alone.
	Types TagSets `yaml:"types"`
	// Keywords decide on name tokens; the least trusted signal.
	Keywords TagSets `yaml:"keywords"`

	aliases map[string]bool
}

// TagSets pairs an allow list with a block list of normalized tags.
type TagSets struct {
	Allow []string `yaml:"allow"`
	Block []string `yaml:"block"`

	allow map[string]bool
	block map[string]bool
}

// Criterion is one step of the metadata pass. It takes one of two
// forms: a value table over a single attribute (Attribute + Allow /
// Block lists), or a compound condition over the whole attribute map
// (Name + When expression + Decision).
type Criterion struct {
	Attribute string   `yaml:"attribute,omitempty"`
	Allow     []string `yaml:"allow,omitempty"`
	Block     []string `yaml:"block,omitempty"`

	Name     string   `yaml:"name,omitempty"`
	When     string   `yaml:"when,omitempty"`
	Decision Decision `yaml:"decision,omitempty"`

	table   map[string]Decision
	program *vm.Program
}

// Compound reports whether the criterion is a compound condition.
func (c *Criterion) Compound() bool {
	return c.When != ""
}

// Label identifies the criterion in traces and logs: the attribute
// name for table criteria, the rule name for compound ones.
func (c *Criterion) Label() string {
	if c.Compound() {
		return c.Name
	}
	return c.Attribute
}

// Context returns the named context, or nil when absent.
func (d *Document) Context(name string) *Context {
	return d.Contexts[name]
}

// Category returns the named category within the context, or nil.
func (c *Context) Category(name string) *Category {
	if c == nil {
		return nil
	}
	return c.Categories[name]
}

// ResolveCategory maps an item type to a category: an exact category
// name match first, then alias lookup. Returns "" when nothing matches.
func (c *Context) ResolveCategory(itemType string) string {
	if c == nil || itemType == "" {
		return ""
	}
	if _, ok := c.Categories[itemType]; ok {
		return itemType
	}
	for name, cat := range c.Categories {
		if cat.aliases[itemType] {
			return name
		}
	}
	return ""
}
