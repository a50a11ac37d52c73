package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stylegate/stylegate/internal/catalog"
	"github.com/stylegate/stylegate/internal/filter"
	"github.com/stylegate/stylegate/internal/rules"
)

func TestRunInit_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	if err := RunInit(dir); err != nil {
		t.Fatalf("RunInit failed: %v", err)
	}

	for _, name := range []string{"rules.yaml", "items.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("%s not written: %v", name, err)
		}
	}
}

func TestRunInit_KeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	os.WriteFile(path, []byte("mine"), 0644)

	if err := RunInit(dir); err != nil {
		t.Fatalf("RunInit failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "mine" {
		t.Fatal("existing rules.yaml was overwritten")
	}
}

// The starter files must load cleanly and reproduce the canonical
// pants/gym outcomes.
func TestStarterFiles_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	if err := RunInit(dir); err != nil {
		t.Fatal(err)
	}

	doc, err := rules.Load(filepath.Join(dir, "rules.yaml"))
	if err != nil {
		t.Fatalf("starter ruleset does not compile: %v", err)
	}
	items, err := catalog.Load(filepath.Join(dir, "items.json"))
	if err != nil {
		t.Fatalf("starter catalog does not parse: %v", err)
	}

	engine := filter.New(doc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := doc.Context("gym")

	want := map[string]struct {
		decision rules.Decision
		stage    filter.Stage
	}{
		"p1": {rules.Block, filter.StageMetadata},   // button_zip waistband
		"p2": {rules.Allow, filter.StageMetadata},   // elastic waistband
		"p3": {rules.Block, filter.StageMetadata},   // waistbandType first in order
		"p4": {rules.Allow, filter.StageOccasion},   // athletic occasion
		"p5": {rules.Allow, filter.StageType},       // shorts type
		"p6": {rules.Allow, filter.StageName},       // jogger keyword
		"s1": {rules.Block, filter.StageMetadata},   // loafer shoeType
		"s2": {rules.Allow, filter.StageMetadata},   // trainer shoeType beats leather
	}

	for i := range items {
		it := &items[i]
		w, ok := want[it.ID]
		if !ok {
			continue
		}
		category := ctx.ResolveCategory(it.Type)
		if category == "" {
			t.Fatalf("%s: type %q resolves to no category", it.ID, it.Type)
		}
		result := engine.Evaluate(it, category, "gym")
		if result.Decision != w.decision || result.Stage != w.stage {
			t.Errorf("%s: got %s at %s, want %s at %s",
				it.ID, result.Decision, result.Stage, w.decision, w.stage)
		}
	}
}
