// Package catalog defines the catalog item model and the JSON loader
// that feeds the filter. Normalization lives here: by the time an Item
// reaches the engine, every attribute value is a trimmed, lower-cased,
// non-empty string.
package catalog

import "strings"

// Item is a single catalog entry. Occasion tags and visual attributes
// are optional; Name is the lowest-trust signal and may be empty.
type Item struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Occasion []string `json:"occasion,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// Metadata holds the structured descriptors of a garment's physical
// construction (waistband type, material, neckline, ...).
type Metadata struct {
	VisualAttributes map[string]string `json:"visualAttributes,omitempty"`
}

// Attr returns the named visual attribute. The second return is false
// when the attribute is absent or empty.
func (it *Item) Attr(name string) (string, bool) {
	v, ok := it.Metadata.VisualAttributes[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// HasOccasion reports whether the item carries the given occasion tag.
func (it *Item) HasOccasion(tag string) bool {
	for _, t := range it.Occasion {
		if t == tag {
			return true
		}
	}
	return false
}

// NameTokens splits the item name into lower-case tokens on any
// non-alphanumeric boundary. "Pants, Cargo-Khaki" -> [pants cargo khaki].
func (it *Item) NameTokens() []string {
	return Tokenize(it.Name)
}

// Tokenize lower-cases s and splits it on runs of non-alphanumeric runes.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

// Norm canonicalizes a tag or attribute value for comparison.
func Norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
