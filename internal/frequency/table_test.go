package frequency

import "testing"

func TestTableObserveUnweighted(t *testing.T) {
	tb := NewTable(false)
	for _, v := range []string{"a", "a", "b"} {
		tb.Observe([]byte(v), 0, false)
	}
	tb.Observe(nil, 0, false)

	if tb.Cardinality() != 2 {
		t.Fatalf("cardinality = %d, want 2", tb.Cardinality())
	}
	if tb.NullCount() != 1 {
		t.Fatalf("nullcount = %d, want 1", tb.NullCount())
	}
}

func TestTableWeightedSkipsNonFiniteZeroAndNegative(t *testing.T) {
	tb := NewTable(true)
	tb.Observe([]byte("x"), 1, true)
	tb.Observe([]byte("x"), posInf(), true)
	tb.Observe([]byte("y"), 2, true)
	tb.Observe([]byte("z"), -1, true)
	tb.Observe([]byte("z"), 0, true)

	entries := tb.Entries()
	byVal := map[string]float64{}
	for _, e := range entries {
		byVal[e.Value] = e.Count
	}
	if byVal["x"] != 1 {
		t.Fatalf("x = %v, want 1 (inf weight row skipped)", byVal["x"])
	}
	if byVal["y"] != 2 {
		t.Fatalf("y = %v, want 2", byVal["y"])
	}
	if _, present := byVal["z"]; present {
		t.Fatalf("z = %v, want absent (zero/negative weight rows dropped entirely)", byVal["z"])
	}
}

func TestTableMerge(t *testing.T) {
	a := NewTable(false)
	a.Observe([]byte("x"), 0, false)
	a.Observe([]byte("x"), 0, false)
	b := NewTable(false)
	b.Observe([]byte("x"), 0, false)
	b.Observe([]byte("y"), 0, false)

	merged := a.Merge(b)
	entries := merged.Entries()
	byVal := map[string]float64{}
	for _, e := range entries {
		byVal[e.Value] = e.Count
	}
	if byVal["x"] != 3 {
		t.Fatalf("x = %v, want 3", byVal["x"])
	}
	if byVal["y"] != 1 {
		t.Fatalf("y = %v, want 1", byVal["y"])
	}
}

func posInf() float64 {
	var zero float64
	return 1 / zero
}
