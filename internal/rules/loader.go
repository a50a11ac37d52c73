package rules

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads, parses, and compiles a ruleset YAML file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}
	return parse(data)
}

// Parse decodes and compiles a ruleset document from r.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse ruleset YAML: %w", err)
	}
	if err := doc.Compile(); err != nil {
		return nil, err
	}
	return &doc, nil
}
