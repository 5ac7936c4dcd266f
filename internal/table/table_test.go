package table

import (
	"testing"
)

func sample(t *testing.T) *Table {
	t.Helper()
	tbl, err := New(
		&Column{Name: "Unnamed: 0", Kind: KindInt, Values: []any{int64(0), int64(1)}},
		&Column{Name: "title", Kind: KindText, Values: []any{"Bambi", nil}},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return tbl
}

func TestNew_RejectsMismatchedLengths(t *testing.T) {
	_, err := New(
		&Column{Name: "a", Values: []any{int64(1)}},
		&Column{Name: "b", Values: []any{int64(1), int64(2)}},
	)
	if err == nil {
		t.Fatal("New() expected error for columns of different lengths")
	}
}

func TestRename(t *testing.T) {
	tbl := sample(t)

	ok, err := tbl.Rename("Unnamed: 0", "ID")
	if err != nil || !ok {
		t.Fatalf("Rename() = %v, %v; want true, nil", ok, err)
	}
	if !tbl.Has("ID") || tbl.Has("Unnamed: 0") {
		t.Errorf("Names() = %v after rename", tbl.Names())
	}

	ok, err = tbl.Rename("missing", "x")
	if err != nil || ok {
		t.Errorf("Rename(missing) = %v, %v; want false, nil", ok, err)
	}

	if _, err := tbl.Rename("ID", "title"); err == nil {
		t.Error("Rename onto existing column should fail")
	}
}

func TestInsert(t *testing.T) {
	tbl := sample(t)

	err := tbl.Insert(0, &Column{Name: "ID", Kind: KindInt, Values: []any{int64(7), int64(8)}})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if tbl.Names()[0] != "ID" || tbl.Width() != 3 {
		t.Errorf("Names() = %v", tbl.Names())
	}

	row := tbl.Row(1)
	if row[0] != int64(8) || row[1] != int64(1) || row[2] != nil {
		t.Errorf("Row(1) = %v", row)
	}

	if err := tbl.Insert(0, &Column{Name: "short", Values: []any{int64(1)}}); err == nil {
		t.Error("Insert() should reject column with wrong length")
	}
}

func TestFromRows_NormalizesDriverTypes(t *testing.T) {
	tbl, err := FromRows(
		[]string{"ID", "title", "imdb"},
		[][]any{
			{int32(1), []byte("Dumbo"), float32(7.5)},
			{int64(2), "Fantasia", nil},
		},
	)
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}

	id, _ := tbl.Column("ID")
	if id.Kind != KindInt || id.Values[0] != int64(1) {
		t.Errorf("ID column = %+v", id)
	}
	title, _ := tbl.Column("title")
	if title.Kind != KindText || title.Values[0] != "Dumbo" {
		t.Errorf("title column = %+v", title)
	}
	imdb, _ := tbl.Column("imdb")
	if imdb.Kind != KindFloat || imdb.Values[1] != nil {
		t.Errorf("imdb column = %+v", imdb)
	}

	if _, err := FromRows([]string{"a"}, [][]any{{1, 2}}); err == nil {
		t.Error("FromRows() should reject ragged rows")
	}
}

func TestKindString(t *testing.T) {
	if KindInt.String() != "int64" || KindFloat.String() != "float64" || KindText.String() != "object" {
		t.Errorf("unexpected kind names: %s %s %s", KindInt, KindFloat, KindText)
	}
}
