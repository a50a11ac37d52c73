package rules

import (
	"os"
	"path/filepath"
	"testing"
)

const validDoc = `
version: "1"
contexts:
  gym:
    occasions:
      allow: [athletic, gym]
      block: [formal]
    categories:
      pants:
        aliases: [shorts, jeans]
        metadata:
          - attribute: waistbandType
            allow: [elastic]
            block: [button_zip]
          - name: heavy-natural-fiber
            when: 'attrs.material == "wool" && itemType != "shorts"'
            decision: block
        types:
          allow: [shorts]
        keywords:
          allow: [jogger]
          block: [jeans]
`

func loadString(t *testing.T, doc string) *Document {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	os.WriteFile(path, []byte(doc), 0644)
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return d
}

func TestLoad_ValidYAML(t *testing.T) {
	doc := loadString(t, validDoc)

	ctx := doc.Context("gym")
	if ctx == nil {
		t.Fatal("context gym missing")
	}
	cat := ctx.Category("pants")
	if cat == nil {
		t.Fatal("category pants missing")
	}
	if len(cat.Metadata) != 2 {
		t.Fatalf("expected 2 criteria, got %d", len(cat.Metadata))
	}
	if !cat.Metadata[1].Compound() {
		t.Fatal("second criterion should be compound")
	}
	if cat.Metadata[1].Label() != "heavy-natural-fiber" {
		t.Fatalf("label = %q", cat.Metadata[1].Label())
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	os.WriteFile(path, []byte(`{{{invalid`), 0644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		crit Criterion
	}{
		{"both forms", Criterion{Attribute: "material", When: "true", Decision: Block, Block: []string{"wool"}}},
		{"neither form", Criterion{}},
		{"empty value lists", Criterion{Attribute: "material"}},
		{"compound without name", Criterion{When: "true", Decision: Block}},
		{"compound invalid decision", Criterion{Name: "x", When: "true", Decision: "maybe"}},
		{"compound bad expression", Criterion{Name: "x", When: "attrs.material ==", Decision: Block}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &Document{Contexts: map[string]*Context{
				"gym": {Categories: map[string]*Category{
					"pants": {Metadata: []Criterion{tt.crit}},
				}},
			}}
			if err := doc.Compile(); err == nil {
				t.Fatal("expected compile error")
			}
		})
	}
}

func TestCriterion_Lookup(t *testing.T) {
	c := Criterion{
		Attribute: "waistbandType",
		Allow:     []string{"Elastic ", "drawstring"},
		Block:     []string{"button_zip"},
	}
	if err := c.compile(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		value      string
		want       Decision
		recognized bool
	}{
		{"elastic", Allow, true},
		{"ELASTIC", Allow, true},
		{"button_zip", Block, true},
		{" drawstring ", Allow, true},
		{"velcro", "", false},
	}
	for _, tt := range tests {
		got, ok := c.Lookup(tt.value)
		if ok != tt.recognized || (ok && got != tt.want) {
			t.Errorf("Lookup(%q) = %q/%v, want %q/%v", tt.value, got, ok, tt.want, tt.recognized)
		}
	}
}

func TestCriterion_BlockWinsOnOverlap(t *testing.T) {
	c := Criterion{
		Attribute: "material",
		Allow:     []string{"leather"},
		Block:     []string{"leather"},
	}
	if err := c.compile(); err != nil {
		t.Fatal(err)
	}
	got, ok := c.Lookup("leather")
	if !ok || got != Block {
		t.Fatalf("Lookup(leather) = %q/%v, want block/true", got, ok)
	}
}

func TestCriterion_EvalCompound(t *testing.T) {
	c := Criterion{
		Name:     "nonathletic-leather",
		When:     `attrs.material == "leather" && !((attrs.shoeType ?? "") in ["sneaker"])`,
		Decision: Block,
	}
	if err := c.compile(); err != nil {
		t.Fatal(err)
	}

	input := map[string]any{"attrs": map[string]any{"material": "leather", "shoeType": "loafer"}}
	matched, err := c.EvalCompound(input)
	if err != nil || !matched {
		t.Fatalf("EvalCompound = %v/%v, want true/nil", matched, err)
	}

	input = map[string]any{"attrs": map[string]any{"material": "leather", "shoeType": "sneaker"}}
	matched, err = c.EvalCompound(input)
	if err != nil || matched {
		t.Fatalf("EvalCompound = %v/%v, want false/nil", matched, err)
	}

	// Absent attribute coalesces to "" instead of raising.
	input = map[string]any{"attrs": map[string]any{"material": "leather"}}
	matched, err = c.EvalCompound(input)
	if err != nil || !matched {
		t.Fatalf("EvalCompound without shoeType = %v/%v, want true/nil", matched, err)
	}
}

func TestTagSets(t *testing.T) {
	ts := TagSets{Allow: []string{"Athletic", " gym "}, Block: []string{"formal"}}
	ts.compile()

	if !ts.InAllow("athletic") || !ts.InAllow("gym") {
		t.Fatal("allow lookup failed for normalized tags")
	}
	if !ts.InBlock("formal") || ts.InBlock("athletic") {
		t.Fatal("block lookup wrong")
	}
	if ts.Empty() {
		t.Fatal("non-empty sets reported empty")
	}

	var empty TagSets
	empty.compile()
	if !empty.Empty() {
		t.Fatal("empty sets not reported empty")
	}
}

func TestResolveCategory(t *testing.T) {
	doc := loadString(t, validDoc)
	ctx := doc.Context("gym")

	if got := ctx.ResolveCategory("pants"); got != "pants" {
		t.Fatalf("ResolveCategory(pants) = %q", got)
	}
	if got := ctx.ResolveCategory("shorts"); got != "pants" {
		t.Fatalf("ResolveCategory(shorts) = %q, want pants via alias", got)
	}
	if got := ctx.ResolveCategory("hat"); got != "" {
		t.Fatalf("ResolveCategory(hat) = %q, want empty", got)
	}
	var nilCtx *Context
	if got := nilCtx.ResolveCategory("pants"); got != "" {
		t.Fatalf("nil context ResolveCategory = %q, want empty", got)
	}
}
