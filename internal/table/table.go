// Package table holds the in-memory tabular model loaded from the source file
// and read back from the database.
//
// A Table is an ordered list of named, typed columns of equal length. Cell
// values are int64, float64, string or nil (null). Tables are loaded once and
// then mutated in place: columns are renamed, replaced or inserted.
package table

import (
	"fmt"
)

// Kind is the inferred storage type of a column.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindFloat
)

// String returns the dtype-style name used by schema documents.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	default:
		return "object"
	}
}

// Column is a named, typed sequence of values.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// Table is an ordered sequence of columns sharing one row count.
type Table struct {
	columns []*Column
	rows    int
}

// New builds a table from columns. All columns must have the same length
// and distinct names.
func New(cols ...*Column) (*Table, error) {
	t := &Table{}
	for i, c := range cols {
		if i == 0 {
			t.rows = len(c.Values)
		}
		if err := t.check(c); err != nil {
			return nil, err
		}
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// FromRows builds a table from row-major values, inferring each column's
// kind from the values it holds. Driver-specific scalar types are
// normalized to int64, float64 and string.
func FromRows(names []string, rows [][]any) (*Table, error) {
	cols := make([]*Column, len(names))
	for j, name := range names {
		cols[j] = &Column{Name: name, Values: make([]any, len(rows))}
	}

	for i, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(names))
		}
		for j, v := range row {
			cols[j].Values[i] = normalizeValue(v)
		}
	}

	for _, c := range cols {
		c.Kind = inferValueKind(c.Values)
	}

	return New(cols...)
}

func (t *Table) check(c *Column) error {
	if c == nil {
		return fmt.Errorf("nil column")
	}
	if len(c.Values) != t.rows {
		return fmt.Errorf("column %q has %d values, table has %d rows", c.Name, len(c.Values), t.rows)
	}
	if t.Index(c.Name) >= 0 {
		return fmt.Errorf("duplicate column %q", c.Name)
	}
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Columns returns the columns in order. The slice must not be modified.
func (t *Table) Columns() []*Column { return t.columns }

// Names returns column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	if i := t.Index(name); i >= 0 {
		return t.columns[i], true
	}
	return nil, false
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// Rename changes a column's name. Returns false if from is absent.
// Renaming onto an existing different column is an error.
func (t *Table) Rename(from, to string) (bool, error) {
	i := t.Index(from)
	if i < 0 {
		return false, nil
	}
	if from == to {
		return true, nil
	}
	if t.Has(to) {
		return false, fmt.Errorf("rename %q: column %q already exists", from, to)
	}
	t.columns[i].Name = to
	return true, nil
}

// Insert adds a column at position pos (clamped to the valid range).
// An empty table adopts the column's length.
func (t *Table) Insert(pos int, c *Column) error {
	if len(t.columns) == 0 {
		t.rows = len(c.Values)
	}
	if err := t.check(c); err != nil {
		return err
	}
	if pos < 0 {
		pos = 0
	}
	if pos > len(t.columns) {
		pos = len(t.columns)
	}
	t.columns = append(t.columns, nil)
	copy(t.columns[pos+1:], t.columns[pos:])
	t.columns[pos] = c
	return nil
}

// Row returns the values of row i in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Values[i]
	}
	return row
}
