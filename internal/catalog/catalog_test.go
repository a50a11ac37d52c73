package catalog

import (
	"reflect"
	"strings"
	"testing"
)

func TestParse_Normalization(t *testing.T) {
	input := `[
		{
			"id": "p1",
			"type": " Pants ",
			"name": "Pants Cargo Khaki",
			"occasion": ["Casual", " WEEKEND ", ""],
			"metadata": {"visualAttributes": {
				"waistbandType": " Button_Zip ",
				"material": "cotton twill",
				"fit": 42,
				"pattern": null,
				"extra": {"nested": true},
				"empty": "  "
			}}
		}
	]`

	items, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}

	it := items[0]
	if it.Type != "pants" {
		t.Errorf("type = %q, want pants", it.Type)
	}
	if !reflect.DeepEqual(it.Occasion, []string{"casual", "weekend"}) {
		t.Errorf("occasion = %v", it.Occasion)
	}

	// Non-string and empty attribute values are dropped, not errors.
	want := map[string]string{"waistbandType": "button_zip", "material": "cotton twill"}
	if !reflect.DeepEqual(it.Metadata.VisualAttributes, want) {
		t.Errorf("attributes = %v, want %v", it.Metadata.VisualAttributes, want)
	}
}

func TestParse_OccasionSingleString(t *testing.T) {
	items, err := Parse(strings.NewReader(`[{"id":"x","type":"pants","occasion":"Gym"}]`))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(items[0].Occasion, []string{"gym"}) {
		t.Fatalf("occasion = %v, want [gym]", items[0].Occasion)
	}
}

func TestParse_MalformedOccasionDropped(t *testing.T) {
	items, err := Parse(strings.NewReader(`[{"id":"x","type":"pants","occasion":{"bad":"shape"}}]`))
	if err != nil {
		t.Fatal(err)
	}
	if items[0].Occasion != nil {
		t.Fatalf("occasion = %v, want nil", items[0].Occasion)
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	if _, err := Parse(strings.NewReader(`{not a list`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseItem(t *testing.T) {
	it, err := ParseItem([]byte(`{"id":"p1","type":"pants","name":"jogger pants"}`))
	if err != nil {
		t.Fatal(err)
	}
	if it.ID != "p1" || it.Type != "pants" {
		t.Fatalf("item = %+v", it)
	}

	if _, err := ParseItem([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid item JSON")
	}
}

func TestAttr(t *testing.T) {
	it := Item{Metadata: Metadata{VisualAttributes: map[string]string{"material": "denim"}}}

	if v, ok := it.Attr("material"); !ok || v != "denim" {
		t.Fatalf("Attr(material) = %q/%v", v, ok)
	}
	if _, ok := it.Attr("neckline"); ok {
		t.Fatal("absent attribute reported present")
	}

	var empty Item
	if _, ok := empty.Attr("material"); ok {
		t.Fatal("attribute on empty item reported present")
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"pants cargo khaki", []string{"pants", "cargo", "khaki"}},
		{"Pants, Cargo-Khaki!", []string{"pants", "cargo", "khaki"}},
		{"shorts athletic blue by rams", []string{"shorts", "athletic", "blue", "by", "rams"}},
		{"levi's 501", []string{"levi", "s", "501"}},
		{"", nil},
		{"  --  ", nil},
	}
	for _, tt := range tests {
		got := Tokenize(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHasOccasion(t *testing.T) {
	it := Item{Occasion: []string{"gym", "casual"}}
	if !it.HasOccasion("gym") {
		t.Fatal("HasOccasion(gym) = false")
	}
	if it.HasOccasion("formal") {
		t.Fatal("HasOccasion(formal) = true")
	}
}
