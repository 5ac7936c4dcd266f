// Package runlog collects the human-readable record of a pipeline run.
//
// Entries are appended in order by each step and written out once at the end
// of the run. Nothing is persisted before Export is called.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Entry is one logged event.
type Entry struct {
	Title   string
	Message string
}

// Sink receives log entries. Check and validation steps depend on this
// interface rather than on *Log.
type Sink interface {
	Add(title, message string)
}

// Log is an append-only, ordered list of entries. Not safe for concurrent use.
type Log struct {
	entries []Entry
}

// New returns an empty log.
func New() *Log {
	return &Log{}
}

// Add appends an entry.
func (l *Log) Add(title, message string) {
	l.entries = append(l.entries, Entry{Title: title, Message: message})
}

// Addf appends an entry with a formatted message.
func (l *Log) Addf(title, format string, args ...any) {
	l.Add(title, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the logged entries in order.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int { return len(l.entries) }

// WriteCSV writes a Title,Message header followed by one record per entry.
func (l *Log) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Title", "Message"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, e := range l.entries {
		if err := cw.Write([]string{e.Title, e.Message}); err != nil {
			return fmt.Errorf("write entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Export writes the log to path as CSV, replacing any existing file.
func (l *Log) Export(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create log file: %w", err)
	}

	if err := l.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
