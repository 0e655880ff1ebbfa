package common

import "testing"

func TestBloomFilterNoFalseNegatives(t *testing.T) {
	bf := NewBloomFilter(1000, 0.01)
	keys := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	for _, k := range keys {
		bf.Add(k)
	}
	for _, k := range keys {
		if !bf.MightContain(k) {
			t.Fatalf("false negative for key %q", k)
		}
	}
}

func TestBloomFilterNeverFalseNegativeAcrossSizes(t *testing.T) {
	for _, n := range []int{1, 10, 500} {
		bf := NewBloomFilter(n, 0.01)
		bf.Add("needle")
		if !bf.MightContain("needle") {
			t.Fatalf("n=%d: false negative for key added before sizing", n)
		}
	}
}
