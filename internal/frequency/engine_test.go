package frequency

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qsvcore/qsvcore/internal/recordsrc"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunBuildsRankedTable(t *testing.T) {
	path := writeTemp(t, "color\na\na\na\nb\nb\nc\nc\nd\n")
	src, err := recordsrc.Open(path, recordsrc.Options{Headers: true})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	results, err := Run(src, RunOptions{Workers: 1, WeightColumn: -1, Strategy: Dense})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	byVal := map[string]Entry{}
	for _, e := range results[0].Entries {
		byVal[e.Value] = e
	}
	if byVal["a"].Rank != 1 || byVal["a"].Count != 3 {
		t.Fatalf("a = %+v, want rank 1 count 3", byVal["a"])
	}
	if byVal["b"].Rank != 2 || byVal["c"].Rank != 2 {
		t.Fatalf("b/c should tie at rank 2: %+v / %+v", byVal["b"], byVal["c"])
	}
}

func TestRunAllUniqueShortCircuit(t *testing.T) {
	path := writeTemp(t, "id\n1\n2\n3\n")
	src, err := recordsrc.Open(path, recordsrc.Options{Headers: true})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	results, err := Run(src, RunOptions{
		Workers:       1,
		WeightColumn:  -1,
		RowCounts:     map[string]int64{"id": 3},
		Cardinalities: map[string]int64{"id": 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results[0].Entries) != 1 || results[0].Entries[0].Value != AllUniqueSentinel {
		t.Fatalf("expected single all-unique row, got %+v", results[0].Entries)
	}
}
