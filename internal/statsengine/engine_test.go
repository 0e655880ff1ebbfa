package statsengine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qsvcore/qsvcore/internal/recordsrc"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunComputesPerColumnReports(t *testing.T) {
	path := writeTemp(t, "id,amount\n1,10\n2,20\n3,30\n4,40\n")
	src, err := recordsrc.Open(path, recordsrc.Options{Headers: true})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	reports, err := Run(src, RunOptions{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}

	byName := map[string]*Report{}
	for _, r := range reports {
		byName[r.Field] = r
	}
	amount := byName["amount"]
	if amount == nil {
		t.Fatal("missing amount report")
	}
	if amount.Sum != 100 {
		t.Fatalf("sum = %v, want 100", amount.Sum)
	}
	if amount.Count != 4 {
		t.Fatalf("count = %d, want 4", amount.Count)
	}
}

func TestRunRespectsSelection(t *testing.T) {
	path := writeTemp(t, "id,amount,note\n1,10,a\n2,20,b\n")
	src, err := recordsrc.Open(path, recordsrc.Options{Headers: true})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	reports, err := Run(src, RunOptions{Workers: 1, Selection: []int{1}})
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].Field != "amount" {
		t.Fatalf("got %+v, want single amount report", reports)
	}
}
