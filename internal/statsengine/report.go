package statsengine

import (
	"math"
	"sort"
	"strings"
)

// QuantileSpillThreshold is the number of buffered values above which
// Finalize spills the quantile buffer to disk via QuantileSorter instead
// of sorting in place, per spec.md §4.3's chunk-size budget applying
// equally to the quantile working set.
const QuantileSpillThreshold = 1_000_000

// FinalizeOptions controls percentile computation and disk-spill behavior.
type FinalizeOptions struct {
	Percentiles    []float64 // fractions in [0,1]; median is always computed
	SpillTempDir   string
	SpillChunkSize int // values per spilled chunk; 0 uses a 250k default
}

// Finalize converts the accumulated state into a user-facing Report.
// Quantile computation (median, arbitrary percentiles) consumes
// a.quantileBuf, spilling to disk through a QuantileSorter once the
// buffer exceeds QuantileSpillThreshold, so a single huge numeric column
// cannot blow the process's memory budget merely to report its median.
func (a *Accumulator) Finalize(opts FinalizeOptions) (*Report, error) {
	r := &Report{
		Field:        a.FieldName,
		Type:         a.colType.String(),
		IsASCII:      a.isASCII,
		NullCount:    a.nullCount,
		Count:        a.n,
		MaxPrecision: a.maxPrecision,
		NNeg:         a.nNeg,
		NZero:        a.nZero,
		NPos:         a.nPos,
	}

	if a.n > 0 && a.hasMinMax {
		r.HasNumericStat = true
		r.Sum = a.sum
		r.SumOverflowed = a.sumOver
		r.Mean = a.mean
		if a.n > 1 {
			r.Variance = a.m2 / float64(a.n-1)
			r.StdDev = math.Sqrt(r.Variance)
		}
		r.Min, r.Max = a.min, a.max
		if a.logSumOK {
			r.GeometricMean = math.Exp(a.logSum / float64(a.n))
		}
		if a.reciprSum != 0 {
			r.HarmonicMean = float64(a.n) / a.reciprSum
		}
	}

	if a.hasLen {
		r.MinLength, r.MaxLength = a.minLen, a.maxLen
		r.SumLength = a.sumLen
		r.MeanLength = a.lenMean
		if a.lenN > 1 {
			r.VarianceLength = a.lenM2 / float64(a.lenN-1)
			r.StdDevLength = math.Sqrt(r.VarianceLength)
		}
		if r.MeanLength != 0 {
			r.CVLength = r.StdDevLength / math.Abs(r.MeanLength) * 100
		}
	}

	if r.HasNumericStat {
		if a.n > 0 {
			r.SEM = r.StdDev / math.Sqrt(float64(a.n))
		}
		if r.Mean != 0 {
			r.CV = r.StdDev / math.Abs(r.Mean) * 100
		}
	}

	if a.firstVal != nil {
		r.FirstValue = string(a.firstVal)
	}
	if a.lastVal != nil {
		r.LastValue = string(a.lastVal)
	}
	if a.longestSigned >= 0 {
		r.LongestAscendingRun = a.longestSigned
	} else {
		r.LongestDescendingRun = -a.longestSigned
	}
	switch {
	case a.totalSeen <= 1:
		r.SortDirection = ""
	case a.longestSigned == a.totalSeen:
		r.SortDirection = "ascending"
		r.AppearsSorted = true
	case -a.longestSigned == a.totalSeen:
		r.SortDirection = "descending"
		r.AppearsSorted = true
	default:
		r.SortDirection = "unsorted"
	}
	if a.totalSeen > 0 {
		r.Sortiness = float64(a.longestSigned) / float64(a.totalSeen)
	}

	if a.rowCount > 0 {
		r.Sparsity = float64(a.nullCount) / float64(a.rowCount)
	}

	if a.valueCounts != nil {
		r.CardinalityKnown = true
		r.Cardinality = int64(len(a.valueCounts))
		if a.rowCount > 0 {
			r.UniquenessRatio = float64(r.Cardinality) / float64(a.rowCount)
		}
		computeModeAntimode(r, a.valueCounts, a.opts.AntimodesLen)
	}

	if a.opts.TrackQuantiles && a.n > 0 && r.HasNumericStat {
		if err := a.finalizeQuantiles(r, opts); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// computeModeAntimode finds the max- and min-count values and joins every
// value tied for that count into a single "|"-separated string, sorted
// lexically for determinism, per spec.md §4.4's "ties emit a pipe-joined
// list capped at a configurable length". antimodesLen <= 0 leaves the
// joined string untruncated. Per spec.md §3's Categorical block,
// mode_count/antimode_count count how many distinct values are tied,
// while mode_occurrences/antimode_occurrences record the shared count
// those tied values occur at — two distinct scalars, not one.
func computeModeAntimode(r *Report, counts map[string]int64, antimodesLen int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var modeOccurrences, antimodeOccurrences int64 = -1, -1
	for _, k := range keys {
		c := counts[k]
		if c > modeOccurrences {
			modeOccurrences = c
		}
		if antimodeOccurrences == -1 || c < antimodeOccurrences {
			antimodeOccurrences = c
		}
	}

	var modeKeys, antimodeKeys []string
	for _, k := range keys {
		if counts[k] == modeOccurrences {
			modeKeys = append(modeKeys, k)
		}
		if counts[k] == antimodeOccurrences {
			antimodeKeys = append(antimodeKeys, k)
		}
	}

	r.Mode = truncateJoined(modeKeys, antimodesLen)
	r.ModeCount = int64(len(modeKeys))
	r.ModeOccurrences = modeOccurrences
	r.Antimode = truncateJoined(antimodeKeys, antimodesLen)
	r.AntimodeCount = int64(len(antimodeKeys))
	r.AntimodeOccurrences = antimodeOccurrences
}

// truncateJoined pipe-joins keys and caps the result to maxLen bytes
// (0 or negative means unbounded).
func truncateJoined(keys []string, maxLen int) string {
	joined := strings.Join(keys, "|")
	if maxLen > 0 && len(joined) > maxLen {
		return joined[:maxLen]
	}
	return joined
}

func (a *Accumulator) finalizeQuantiles(r *Report, opts FinalizeOptions) error {
	percentiles := opts.Percentiles
	if len(percentiles) == 0 {
		percentiles = []float64{0.25, 0.5, 0.75}
	}

	var sorted []float64
	if len(a.quantileBuf) <= QuantileSpillThreshold || opts.SpillTempDir == "" {
		sorted = append([]float64(nil), a.quantileBuf...)
		sort.Float64s(sorted)
	} else {
		chunkSize := opts.SpillChunkSize
		if chunkSize < 1 {
			chunkSize = 250_000
		}
		qs := NewQuantileSorter(opts.SpillTempDir, chunkSize)
		for _, v := range a.quantileBuf {
			if err := qs.Add(v); err != nil {
				return err
			}
		}
		sorted = make([]float64, 0, len(a.quantileBuf))
		if err := qs.Finalize(func(v float64) { sorted = append(sorted, v) }); err != nil {
			return err
		}
	}

	r.QuantileSampleSize = len(sorted)
	if len(sorted) == 0 {
		return nil
	}

	r.Median = percentileOf(sorted, 0.5)
	r.Percentiles = make([]PercentileValue, 0, len(percentiles))
	for _, p := range percentiles {
		r.Percentiles = append(r.Percentiles, PercentileValue{Fraction: p, Value: percentileOf(sorted, p)})
	}

	// Distribution block: q1/q3, Tukey's 1.5x/3x fences, median
	// absolute deviation, and third-moment skewness, all gated behind
	// the same opt-in quantile tracking per spec.md §3.
	r.Q1 = percentileOf(sorted, 0.25)
	r.Q3 = percentileOf(sorted, 0.75)
	r.IQR = r.Q3 - r.Q1
	r.LowerInnerFence = r.Q1 - 1.5*r.IQR
	r.LowerOuterFence = r.Q1 - 3*r.IQR
	r.UpperInnerFence = r.Q3 + 1.5*r.IQR
	r.UpperOuterFence = r.Q3 + 3*r.IQR

	devs := make([]float64, len(a.quantileBuf))
	for i, v := range a.quantileBuf {
		devs[i] = math.Abs(v - r.Median)
	}
	sort.Float64s(devs)
	if len(devs) > 0 {
		r.MAD = percentileOf(devs, 0.5)
	}

	if r.StdDev > 0 && len(a.quantileBuf) > 0 {
		var sumCube float64
		for _, v := range a.quantileBuf {
			d := v - r.Mean
			sumCube += d * d * d
		}
		r.Skewness = (sumCube / float64(len(a.quantileBuf))) / (r.StdDev * r.StdDev * r.StdDev)
	}

	return nil
}

// percentileOf uses linear interpolation between closest ranks, the
// default method in most statistics packages (R's type 7 / NumPy's
// "linear").
func percentileOf(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := p * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
