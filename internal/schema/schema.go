// Package schema describes the columns a source file is expected to carry.
//
// The expected schema is reported against, never enforced: missing columns
// and type mismatches are logged and the run continues.
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed movies.yaml
var moviesYAML []byte

// Known dtype names.
const (
	TypeObject  = "object"
	TypeInt64   = "int64"
	TypeFloat64 = "float64"
)

// Field is one expected column.
type Field struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Schema is an ordered set of expected columns.
type Schema struct {
	Name    string  `yaml:"name"`
	Columns []Field `yaml:"columns"`
}

// Movies returns the embedded schema for the movies dataset.
func Movies() (*Schema, error) {
	return Parse(moviesYAML)
}

// Load returns the schema at path, or the embedded default when path is empty.
func Load(path string) (*Schema, error) {
	if path == "" {
		return Movies()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and checks a YAML schema document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	if len(s.Columns) == 0 {
		return nil, fmt.Errorf("schema %q declares no columns", s.Name)
	}

	seen := make(map[string]bool, len(s.Columns))
	for i, f := range s.Columns {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("schema column %d has no name", i)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("schema column %q declared twice", f.Name)
		}
		seen[f.Name] = true

		switch f.Type {
		case TypeObject, TypeInt64, TypeFloat64:
		default:
			return nil, fmt.Errorf("schema column %q: unknown type %q", f.Name, f.Type)
		}
	}

	return &s, nil
}

// Names returns expected column names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, f := range s.Columns {
		names[i] = f.Name
	}
	return names
}
