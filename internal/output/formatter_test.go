package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteCSVCreatesHeaderThenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := NewWriter(Config{Path: path, Format: FormatCSV})

	if err := w.WriteRows([]string{"id", "name"}, [][]string{{"1", "a"}}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRows([]string{"id", "name"}, [][]string{{"2", "b"}}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "id,name\n1,a\n2,b\n"
	if string(data) != want {
		t.Fatalf("got %q, want %q", data, want)
	}
}

func TestWriteCSVRejectsHeaderMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := NewWriter(Config{Path: path, Format: FormatCSV})
	if err := w.WriteRows([]string{"id", "name"}, [][]string{{"1", "a"}}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRows([]string{"id", "other"}, [][]string{{"2", "b"}}); err == nil {
		t.Fatal("expected header mismatch error")
	}
}

func TestWriteJSONCompactNullsEmptyCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w := NewWriter(Config{Path: path, Format: FormatJSONCompact})
	if err := w.WriteRows([]string{"id", "name"}, [][]string{{"1", ""}}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var docs []map[string]interface{}
	if err := json.Unmarshal(data, &docs); err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0]["name"] != nil {
		t.Fatalf("expected name to be null, got %+v", docs)
	}
}

func TestRowEncodedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.rowenc")
	w := NewWriter(Config{Path: path, Format: FormatRowEncoded})
	if err := w.WriteRows([]string{"id", "name"}, [][]string{{"1", "a"}, {"2", "b"}}); err != nil {
		t.Fatal(err)
	}

	headers, rows, err := ReadRowEncoded(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(headers) != 2 || headers[0] != "id" || headers[1] != "name" {
		t.Fatalf("unexpected headers: %v", headers)
	}
	if len(rows) != 2 || rows[0][0] != "1" || rows[1][1] != "b" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}
