package validate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qsvcore/qsvcore/internal/recordsrc"
)

func TestCheckConformanceValidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("name,city\nAda,London\nGrace,NYC\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := recordsrc.Open(path, recordsrc.Options{Headers: true})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	result, err := CheckConformance(src, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Valid {
		t.Fatalf("expected valid UTF-8, got invalid records: %v", result.InvalidRecords)
	}
}
