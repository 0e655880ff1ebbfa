package statscache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qsvcore/qsvcore/internal/statsengine"
)

func writeInput(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte("id,amount\n1,10\n2,20\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStoreThenLoadRoundTrip(t *testing.T) {
	path := writeInput(t)
	fp, err := ComputeFingerprint(path, 2, "opts-v1")
	if err != nil {
		t.Fatal(err)
	}

	reports := []*statsengine.Report{
		{Field: "id", Type: "Integer", Count: 2, Sum: 3, Mean: 1.5},
		{Field: "amount", Type: "Integer", Count: 2, Sum: 30, Mean: 15},
	}
	if err := Store(path, fp, 2, reports); err != nil {
		t.Fatal(err)
	}

	loaded, current, err := Load(path, fp)
	if err != nil {
		t.Fatal(err)
	}
	if !current {
		t.Fatal("expected cache to be current")
	}
	if len(loaded) != 2 {
		t.Fatalf("got %d reports, want 2", len(loaded))
	}
	if loaded[0].Field != "id" || loaded[1].Field != "amount" {
		t.Fatalf("unexpected field order: %+v", loaded)
	}
	if loaded[1].Sum != 30 {
		t.Fatalf("sum = %v, want 30", loaded[1].Sum)
	}
}

func TestLoadMissingSidecar(t *testing.T) {
	path := writeInput(t)
	fp, _ := ComputeFingerprint(path, 2, "opts-v1")
	_, current, err := Load(path, fp)
	if err != nil {
		t.Fatal(err)
	}
	if current {
		t.Fatal("expected no sidecar to report not current")
	}
}

func TestLoadStaleFingerprintMismatch(t *testing.T) {
	path := writeInput(t)
	fp, _ := ComputeFingerprint(path, 2, "opts-v1")
	if err := Store(path, fp, 2, nil); err != nil {
		t.Fatal(err)
	}

	staleFP := fp
	staleFP.SchemaOptionsHash = "opts-v2"
	_, current, err := Load(path, staleFP)
	if err != nil {
		t.Fatal(err)
	}
	if current {
		t.Fatal("expected mismatched fingerprint to be stale")
	}
}

func TestInvalidateRemovesSidecar(t *testing.T) {
	path := writeInput(t)
	fp, _ := ComputeFingerprint(path, 2, "opts-v1")
	if err := Store(path, fp, 2, nil); err != nil {
		t.Fatal(err)
	}
	if err := Invalidate(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(CachePath(path)); !os.IsNotExist(err) {
		t.Fatal("expected sidecar to be removed")
	}
}

func TestSatisfiesDetectsMissingOptionalStats(t *testing.T) {
	cached := []*statsengine.Report{{Field: "id", Count: 2, CardinalityKnown: false}}
	if Satisfies(cached, true, false) {
		t.Fatal("expected Satisfies to report false when cardinality missing")
	}
	if !Satisfies(cached, false, false) {
		t.Fatal("expected Satisfies to be true when nothing extra is requested")
	}
}
