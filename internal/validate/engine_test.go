package validate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/qsvcore/qsvcore/internal/recordsrc"
)

func TestRunPartitionsValidAndInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("id,amount\na1,10\n,20\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := recordsrc.Open(path, recordsrc.Options{Headers: true})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	doc := []byte(`{"type":"object","properties":{"id":{"type":"string","minLength":1},"amount":{"type":"string"}},"required":["id"]}`)
	cs, err := Compile("mem://engine-schema.json", doc)
	if err != nil {
		t.Fatal(err)
	}

	outcomes, err := Run(context.Background(), src, cs, RunOptions{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	validCount, invalidCount := 0, 0
	for _, o := range outcomes {
		if o.Valid {
			validCount++
		} else {
			invalidCount++
		}
	}
	if validCount != 1 || invalidCount != 1 {
		t.Fatalf("got %d valid / %d invalid, want 1/1", validCount, invalidCount)
	}
}

func TestRunEnforcesUniqueCombinedWith(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("name,email\nalice,a@example.com\nalice,a@example.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := recordsrc.Open(path, recordsrc.Options{Headers: true})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	doc := []byte(`{"type":"object","uniqueCombinedWith":["name","email"]}`)
	cs, err := Compile("mem://unique-schema.json", doc)
	if err != nil {
		t.Fatal(err)
	}

	outcomes, err := Run(context.Background(), src, cs, RunOptions{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	invalidCount := 0
	for _, o := range outcomes {
		if !o.Valid {
			invalidCount++
		}
	}
	if invalidCount != 1 {
		t.Fatalf("got %d invalid records, want 1 (the duplicate row)", invalidCount)
	}
}
