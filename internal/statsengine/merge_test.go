package statsengine

import "testing"

func TestMergeCombinesCounts(t *testing.T) {
	a := New("x", Options{})
	for _, v := range []string{"1", "2", "3"} {
		a.Observe([]byte(v))
	}
	b := New("x", Options{})
	for _, v := range []string{"4", "5"} {
		b.Observe([]byte(v))
	}
	merged := Merge(a, b)
	r, err := merged.Finalize(FinalizeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if r.Count != 5 {
		t.Fatalf("count = %d, want 5", r.Count)
	}
	if r.Sum != 15 {
		t.Fatalf("sum = %v, want 15", r.Sum)
	}
	if r.Min != 1 || r.Max != 5 {
		t.Fatalf("min/max = %v/%v, want 1/5", r.Min, r.Max)
	}
}

func TestMergeFusesAscendingRunAcrossBoundary(t *testing.T) {
	a := New("x", Options{})
	for _, v := range []string{"a", "b", "c"} {
		a.Observe([]byte(v))
	}
	b := New("x", Options{})
	for _, v := range []string{"d", "e"} {
		b.Observe([]byte(v))
	}
	merged := Merge(a, b)
	r, err := merged.Finalize(FinalizeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !r.AppearsSorted || r.SortDirection != "ascending" {
		t.Fatalf("expected fused ascending run, got %+v", r)
	}
}

func TestMergeNilHandledEitherSide(t *testing.T) {
	a := New("x", Options{})
	a.Observe([]byte("1"))
	if Merge(nil, a) != a {
		t.Fatal("Merge(nil, a) should return a")
	}
	if Merge(a, nil) != a {
		t.Fatal("Merge(a, nil) should return a")
	}
}
