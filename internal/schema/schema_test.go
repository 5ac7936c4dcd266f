package schema

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMovies(t *testing.T) {
	s, err := Movies()
	if err != nil {
		t.Fatalf("Movies() error = %v", err)
	}

	if len(s.Columns) != 20 {
		t.Errorf("len(Columns) = %d, want 20", len(s.Columns))
	}
	if s.Columns[0].Name != "title" || s.Columns[0].Type != TypeObject {
		t.Errorf("first column = %+v", s.Columns[0])
	}

	names := s.Names()
	if names[2] != "Country" {
		t.Errorf("Names()[2] = %q, want Country", names[2])
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "columns: [\n"},
		{"no columns", "name: empty\n"},
		{"unnamed column", "columns:\n  - {type: object}\n"},
		{"duplicate column", "columns:\n  - {name: a, type: object}\n  - {name: a, type: int64}\n"},
		{"unknown type", "columns:\n  - {name: a, type: foat}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Errorf("Parse(%q) expected error", tt.doc)
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	doc := "name: small\ncolumns:\n  - {name: ID, type: int64}\n  - {name: title, type: object}\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Name != "small" || len(s.Columns) != 2 {
		t.Errorf("Load() = %+v", s)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoad_DefaultsToEmbedded(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if s.Name != "disney_movies" {
		t.Errorf("Name = %q, want disney_movies", s.Name)
	}
}
