package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// rawItem mirrors Item but keeps occasion and visual attributes loosely
// typed so that malformed catalog entries degrade instead of failing
// the whole load.
type rawItem struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Name     string          `json:"name"`
	Occasion json.RawMessage `json:"occasion"`
	Metadata struct {
		VisualAttributes map[string]any `json:"visualAttributes"`
	} `json:"metadata"`
}

// Load reads a catalog JSON file (a list of items).
func Load(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a catalog from r. Attribute values that are not
// non-empty strings (numbers, nulls, nested objects) are dropped: a
// malformed optional attribute means "attribute absent", never an
// error. Occasion accepts either a JSON array or a single string.
func Parse(r io.Reader) ([]Item, error) {
	var raw []rawItem
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	items := make([]Item, 0, len(raw))
	for _, ri := range raw {
		it := Item{
			ID:       ri.ID,
			Type:     Norm(ri.Type),
			Name:     ri.Name,
			Occasion: parseOccasion(ri.Occasion),
		}
		for name, v := range ri.Metadata.VisualAttributes {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if s = Norm(s); s != "" {
				if it.Metadata.VisualAttributes == nil {
					it.Metadata.VisualAttributes = make(map[string]string)
				}
				it.Metadata.VisualAttributes[name] = s
			}
		}
		items = append(items, it)
	}
	return items, nil
}

// ParseItem decodes a single item, for one-off evaluation from the CLI.
func ParseItem(data []byte) (Item, error) {
	items, err := Parse(strings.NewReader("[" + string(data) + "]"))
	if err != nil {
		return Item{}, err
	}
	if len(items) != 1 {
		return Item{}, fmt.Errorf("expected one item, got %d", len(items))
	}
	return items[0], nil
}

func parseOccasion(raw json.RawMessage) []string {
	if raw == nil {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		// Single string form: occasion: "gym"
		var one string
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil
		}
		tags = []string{one}
	}
	var out []string
	for _, t := range tags {
		if t = Norm(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

