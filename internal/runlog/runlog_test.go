package runlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
)

func sampleLog() *Log {
	l := New()
	l.Add("Data Loaded", "Loaded table with 5 rows and 3 columns.")
	l.Add("Data Quality: Missing Values", "ID       1\ntitle    0\nCountry  2")
	l.Addf("Data Quality: Duplicates", "Number of duplicate rows: %d", 1)
	l.Add("Schema Validation", `Missing columns: [Budget "Box office"]`)
	return l
}

func TestExport_Golden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validation_log.csv")

	if err := sampleLog().Export(path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "validation_log", data)
}

func TestExport_OneRecordPerEntryInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	l := sampleLog()

	if err := l.Export(path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse export: %v", err)
	}

	if len(records) != l.Len()+1 {
		t.Fatalf("got %d records, want %d (header + entries)", len(records), l.Len()+1)
	}
	for i, e := range l.Entries() {
		got := records[i+1]
		if got[0] != e.Title || got[1] != e.Message {
			t.Errorf("record %d = %q, want %q/%q", i+1, got, e.Title, e.Message)
		}
	}
}

func TestExport_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	if err := os.WriteFile(path, []byte("stale content that is longer than the new log\n\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New()
	if err := l.Export(path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Title,Message\n" {
		t.Errorf("empty log export = %q, want header only", data)
	}
}

func TestEntries_ReturnsCopy(t *testing.T) {
	l := sampleLog()
	entries := l.Entries()
	entries[0].Title = "changed"

	if l.Entries()[0].Title != "Data Loaded" {
		t.Error("Entries() exposed internal slice")
	}
}
