package memplan

import "testing"

func TestPlanCPUBased(t *testing.T) {
	p := &Planner{Mode: CPUBased}
	cs := p.Plan(1000, 4, nil)
	if cs != 250 {
		t.Fatalf("got %d, want 250", cs)
	}
}

func TestPlanCPUBasedRounding(t *testing.T) {
	p := &Planner{Mode: CPUBased}
	cs := p.Plan(1001, 4, nil)
	if cs != 251 {
		t.Fatalf("got %d, want 251 (ceil division)", cs)
	}
}

func TestPlanAutoNeverBelowOne(t *testing.T) {
	p := &Planner{Mode: Auto, TotalMemoryBytes: 1}
	cs := p.Plan(1_000_000, 64, nil)
	if cs < 1 {
		t.Fatalf("got %d, want >= 1", cs)
	}
}

func TestPlanFixedScalesWithBudget(t *testing.T) {
	p1 := &Planner{Mode: Fixed, FixedMB: 64}
	p2 := &Planner{Mode: Fixed, FixedMB: 256}
	sample := []int{100, 120, 90}
	cs1 := p1.Plan(1_000_000, 1, sample)
	cs2 := p2.Plan(1_000_000, 1, sample)
	if cs2 <= cs1 {
		t.Fatalf("larger budget should yield larger chunk size: %d vs %d", cs1, cs2)
	}
}

func TestSampleSourceCapped(t *testing.T) {
	records := make([][][]byte, SampleSize+50)
	for i := range records {
		records[i] = [][]byte{[]byte("abc")}
	}
	sample := SampleSource(records)
	if len(sample) != SampleSize {
		t.Fatalf("got %d, want %d", len(sample), SampleSize)
	}
}
