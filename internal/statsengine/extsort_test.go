package statsengine

import "testing"

func TestQuantileSorterNoSpillSortsInMemory(t *testing.T) {
	qs := NewQuantileSorter(t.TempDir(), 100)
	for _, v := range []float64{5, 3, 1, 4, 2} {
		if err := qs.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	var got []float64
	if err := qs.Finalize(func(v float64) { got = append(got, v) }); err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 2, 3, 4, 5}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestQuantileSorterSpillsAndMerges(t *testing.T) {
	qs := NewQuantileSorter(t.TempDir(), 3)
	values := []float64{9, 7, 5, 3, 1, 8, 6, 4, 2, 0}
	for _, v := range values {
		if err := qs.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	var got []float64
	if err := qs.Finalize(func(v float64) { got = append(got, v) }); err != nil {
		t.Fatal(err)
	}
	if len(got) != len(values) {
		t.Fatalf("got %d values, want %d", len(got), len(values))
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("not sorted at index %d: %v", i, got)
		}
	}
}
