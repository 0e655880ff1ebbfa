package recordsrc

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestEachSimple(t *testing.T) {
	path := writeTemp(t, "simple.csv", "a,b,c\n1,2,3\n4,5,6\n")
	src, err := Open(path, Options{Headers: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = src.Close() }()

	if got := src.Headers(); len(got) != 3 || got[0] != "a" {
		t.Fatalf("Headers() = %v", got)
	}

	var rows [][]string
	err = src.Each(func(rec Record) error {
		row := make([]string, len(rec.Fields))
		for i, f := range rec.Fields {
			row[i] = string(f)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0][1] != "2" || rows[1][2] != "6" {
		t.Fatalf("unexpected row contents: %v", rows)
	}
}

func TestEachQuotedMultilineField(t *testing.T) {
	path := writeTemp(t, "quoted.csv", "a,b\n\"line1\nline2\",2\n")
	src, err := Open(path, Options{Headers: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = src.Close() }()

	var rows [][]string
	err = src.Each(func(rec Record) error {
		row := make([]string, len(rec.Fields))
		for i, f := range rec.Fields {
			row[i] = string(f)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1 (quoted newline must not split record)", len(rows))
	}
	if rows[0][0] != "line1\nline2" {
		t.Fatalf("field = %q", rows[0][0])
	}
}

func TestScanMatchesEach(t *testing.T) {
	path := writeTemp(t, "scan.csv", "a,b\n1,x\n2,y\n3,z\n4,w\n5,v\n")
	src, err := Open(path, Options{Headers: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = src.Close() }()

	var mu sync.Mutex
	count := 0
	err = src.Scan(4, func(workerID int, rec Record) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if count != 5 {
		t.Fatalf("Scan visited %d records, want 5", count)
	}
}

func TestBuildIndexAndSeek(t *testing.T) {
	path := writeTemp(t, "idx.csv", "a,b\n1,x\n2,y\n3,z\n")
	if err := BuildIndex(path, Options{Headers: true}); err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	src, err := Open(path, Options{Headers: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = src.Close() }()

	if !src.Indexed() {
		t.Fatal("expected Indexed() to be true after BuildIndex")
	}

	offset, err := src.Seek(1)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}

	var want int64 = -1
	_ = src.Each(func(rec Record) error {
		if rec.Num == 1 {
			want = rec.Offset
			return errStop
		}
		return nil
	})
	if offset != want {
		t.Fatalf("Seek(1) = %d, want %d", offset, want)
	}
}

var errStop = stopErr{}

type stopErr struct{}

func (stopErr) Error() string { return "stop" }
