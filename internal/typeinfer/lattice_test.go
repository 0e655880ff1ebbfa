package typeinfer

import "testing"

func TestMergeCommutativeAssociative(t *testing.T) {
	cases := []struct {
		a, b, want Type
	}{
		{Null, Integer, Integer},
		{Integer, Float, Float},
		{Float, Integer, Float},
		{Date, DateTime, DateTime},
		{Integer, String, String},
		{Boolean, Integer, String},
		{Null, Null, Null},
	}
	for _, c := range cases {
		if got := Merge(c.a, c.b); got != c.want {
			t.Errorf("Merge(%v,%v) = %v, want %v", c.a, c.b, got, c.want)
		}
		if got := Merge(c.b, c.a); got != c.want {
			t.Errorf("Merge(%v,%v) (commuted) = %v, want %v", c.b, c.a, got, c.want)
		}
	}
}

func TestInferValue(t *testing.T) {
	opts := DefaultOptions()
	if got := InferValue([]byte("42"), false, opts); got != Integer {
		t.Errorf("got %v, want Integer", got)
	}
	if got := InferValue([]byte("3.5"), false, opts); got != Float {
		t.Errorf("got %v, want Float", got)
	}
	if got := InferValue([]byte("hello"), false, opts); got != String {
		t.Errorf("got %v, want String", got)
	}
	if got := InferValue([]byte(""), false, opts); got != Null {
		t.Errorf("got %v, want Null", got)
	}
}

func TestMaxPrecision(t *testing.T) {
	cases := map[string]int{"1": 0, "1.5": 1, "1.50": 1, "1.230": 2, "1.0": 0}
	for s, want := range cases {
		if got := MaxPrecision(s); got != want {
			t.Errorf("MaxPrecision(%q) = %d, want %d", s, got, want)
		}
	}
}

func TestIsTruthyOrFalsy(t *testing.T) {
	opts := DefaultOptions()
	if truthy, matched := IsTruthyOrFalsy("Yes", opts); !matched || !truthy {
		t.Fatal("expected Yes to be a matched truthy value")
	}
	if truthy, matched := IsTruthyOrFalsy("No", opts); !matched || truthy {
		t.Fatal("expected No to be a matched falsy value")
	}
	if _, matched := IsTruthyOrFalsy("maybe", opts); matched {
		t.Fatal("expected maybe to not match")
	}
}
