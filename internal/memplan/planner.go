// Package memplan implements C3, the memory planner: given a record
// count, a parallelism level, a budget mode, and an optional sample, it
// computes a chunk size that keeps each worker's working set bounded.
//
// Grounded on the teacher's indexer.NewSorter, which derives its chunk
// size as memoryLimit/100 clamped to a 1000-record floor, and on
// original_source/src/util.rs, which samples up to 1000 records before
// committing to a chunk size.
package memplan

// Mode selects how the chunk-size budget is computed.
type Mode int

const (
	// Auto estimates per-record footprint from a sample.
	Auto Mode = iota
	// Fixed uses an explicit per-chunk megabyte budget.
	Fixed
	// CPUBased ignores memory and divides evenly by job count.
	CPUBased
)

// SampleSize is the maximum number of records sampled to estimate
// per-record memory footprint in Auto mode (original_source/src/util.rs).
const SampleSize = 1000

// hashOverheadBytes approximates the per-expected-distinct-value hash
// table bookkeeping cost (bucket header + pointer + allocator slop),
// per spec.md §4.3.
const hashOverheadBytes = 24

// slackFactor is spec.md §4.3's "+20% slack" applied to the raw sample
// estimate before dividing into the available budget.
const slackFactor = 1.2

// Planner computes a chunk size per spec.md §4.3.
type Planner struct {
	Mode Mode

	// Fixed mode: per-chunk budget in megabytes.
	FixedMB int

	// Auto mode: safety margin applied to available memory (default 0.8).
	SafetyMargin float64
	// AvailableMemoryBytes and TotalMemoryBytes feed the Auto budget;
	// a conservative run applies SafetyMargin to Available, otherwise to Total.
	AvailableMemoryBytes int64
	TotalMemoryBytes     int64
	Conservative         bool
	HeadroomPct          int // reserved fraction, default 20, clamped 10-90
}

// Plan computes the chunk size (>=1) for n total records, j workers, and
// an optional sample of raw record byte lengths (≤ SampleSize entries).
func (p *Planner) Plan(n int64, j int, sampleRecordBytes []int) int {
	if j < 1 {
		j = 1
	}
	if n < 1 {
		return 1
	}

	switch p.Mode {
	case CPUBased:
		cs := ceilDiv(n, int64(j))
		return clampChunk(cs)
	case Fixed:
		avgBytes := averageRecordFootprint(sampleRecordBytes)
		budgetBytes := int64(p.FixedMB) * 1024 * 1024
		safety := p.safetyMargin()
		cs := int64(float64(budgetBytes) * safety / float64(avgBytes))
		return clampChunk(cs)
	default: // Auto
		avgBytes := averageRecordFootprint(sampleRecordBytes)
		budget := p.availableBudgetBytes()
		perWorkerBudget := budget / int64(j)
		safety := p.safetyMargin()
		cs := int64(float64(perWorkerBudget) * safety / float64(avgBytes))
		return clampChunk(cs)
	}
}

func (p *Planner) safetyMargin() float64 {
	if p.SafetyMargin > 0 {
		return p.SafetyMargin
	}
	return 0.8
}

func (p *Planner) availableBudgetBytes() int64 {
	headroom := p.HeadroomPct
	if headroom <= 0 {
		headroom = 20
	}
	if headroom < 10 {
		headroom = 10
	}
	if headroom > 90 {
		headroom = 90
	}

	base := p.TotalMemoryBytes
	if p.Conservative {
		base = p.AvailableMemoryBytes
	}
	if base <= 0 {
		base = 1 << 30 // 1 GiB conservative default when the caller has no reading
	}
	reserved := base * int64(headroom) / 100
	remaining := base - reserved
	if remaining < 1 {
		remaining = 1
	}
	return remaining
}

// averageRecordFootprint estimates bytes-per-record: mean raw field
// bytes in the sample, plus a fixed hash-table overhead per record
// (spec.md §4.3: "~24B hash overhead"), times the slack factor.
func averageRecordFootprint(sample []int) int64 {
	if len(sample) == 0 {
		defaultBytes := float64(128 + hashOverheadBytes)
		return int64(defaultBytes * slackFactor)
	}
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}
	var sum int64
	for _, b := range sample {
		sum += int64(b)
	}
	avg := sum / int64(len(sample))
	return int64(float64(avg+hashOverheadBytes) * slackFactor)
}

func ceilDiv(a, b int64) int64 {
	if b == 0 {
		return a
	}
	return (a + b - 1) / b
}

func clampChunk(cs int64) int {
	if cs < 1 {
		return 1
	}
	if cs > int64(^uint(0)>>1) {
		return int(^uint(0) >> 1)
	}
	return int(cs)
}

// SampleSource samples up to SampleSize records' total raw byte length
// from fields, for callers that have already read a prefix of the input.
func SampleSource(records [][][]byte) []int {
	n := len(records)
	if n > SampleSize {
		n = SampleSize
	}
	sample := make([]int, n)
	for i := 0; i < n; i++ {
		total := 0
		for _, f := range records[i] {
			total += len(f)
		}
		sample[i] = total
	}
	return sample
}
