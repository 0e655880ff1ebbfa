package statsengine

import (
	"bytes"
	"math"

	"github.com/qsvcore/qsvcore/internal/typeinfer"
)

// Report is the finalized, user-facing stats record for one column,
// per spec.md §4.4. JSON tags match the stats-cache sidecar's on-disk
// field names (spec.md §6) so a Report round-trips through it unchanged.
type Report struct {
	Field string `json:"field"`

	Type         string `json:"type"`
	IsASCII      bool   `json:"is_ascii"`
	NullCount    int64  `json:"null_count"`
	Count        int64  `json:"count"` // non-null observations
	MaxPrecision int    `json:"max_precision"`

	NNeg  int64 `json:"n_neg"`
	NZero int64 `json:"n_zero"`
	NPos  int64 `json:"n_pos"`

	Sum            float64 `json:"sum"`
	SumOverflowed  bool    `json:"sum_overflowed"`
	Mean           float64 `json:"mean"`
	Variance       float64 `json:"variance"`
	StdDev         float64 `json:"stddev"`
	GeometricMean  float64 `json:"geometric_mean"`
	HarmonicMean   float64 `json:"harmonic_mean"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	HasNumericStat bool    `json:"has_numeric_stat"`

	MinLength      int     `json:"min_length"`
	MaxLength      int     `json:"max_length"`
	SumLength      int64   `json:"sum_length"`
	MeanLength     float64 `json:"mean_length"`
	StdDevLength   float64 `json:"stddev_length"`
	VarianceLength float64 `json:"variance_length"`
	CVLength       float64 `json:"cv_length"` // stddev_length / |mean_length| * 100

	// SEM (standard error of the mean) and CV (coefficient of
	// variation) are the two numeric ratios spec.md §3 names alongside
	// the moments above.
	SEM float64 `json:"sem"`
	CV  float64 `json:"cv"` // stddev / |mean| * 100

	// FirstValue/LastValue are the lexically ordered boundary values seen
	// in record order, for the sort-order diagnostic below.
	FirstValue           string  `json:"first_value"`
	LastValue            string  `json:"last_value"`
	LongestAscendingRun  int64   `json:"longest_ascending_run"`
	LongestDescendingRun int64   `json:"longest_descending_run"`
	AppearsSorted        bool    `json:"appears_sorted"`
	SortDirection        string  `json:"sort_direction"` // "ascending", "descending", "unsorted", ""
	Sortiness            float64 `json:"sortiness"`      // signed longest run / n, in [-1, 1]

	// Ratios, always computed: sparsity = nullcount/rowcount,
	// uniqueness_ratio = cardinality/rowcount (0 when cardinality
	// wasn't tracked).
	Sparsity         float64 `json:"sparsity"`
	UniquenessRatio  float64 `json:"uniqueness_ratio"`

	CardinalityKnown    bool   `json:"cardinality_known"`
	Cardinality         int64  `json:"cardinality"`
	Mode                string `json:"mode"`
	ModeCount           int64  `json:"mode_count"`        // number of distinct values tied for the mode
	ModeOccurrences     int64  `json:"mode_occurrences"`  // the shared count those values occur at
	Antimode            string `json:"antimode"`
	AntimodeCount       int64  `json:"antimode_count"`
	AntimodeOccurrences int64  `json:"antimode_occurrences"`

	QuantileSampleSize int               `json:"quantile_sample_size"`
	Median             float64           `json:"q2_median"`
	Percentiles        []PercentileValue `json:"percentiles,omitempty"`

	// Distribution, opt-in alongside quantile tracking: q1/q3, the
	// interquartile-range derived fences (Tukey's 1.5x/3x rule), the
	// median absolute deviation, and the third-moment skewness.
	Q1               float64 `json:"q1"`
	Q3               float64 `json:"q3"`
	IQR              float64 `json:"iqr"`
	MAD              float64 `json:"mad"`
	LowerInnerFence  float64 `json:"lower_inner_fence"`
	LowerOuterFence  float64 `json:"lower_outer_fence"`
	UpperInnerFence  float64 `json:"upper_inner_fence"`
	UpperOuterFence  float64 `json:"upper_outer_fence"`
	Skewness         float64 `json:"skewness"`
}

// PercentileValue pairs a requested fraction (e.g. 0.25) with its
// interpolated value. A slice, not a map keyed by float64, since JSON
// object keys must be strings.
type PercentileValue struct {
	Fraction float64 `json:"fraction"`
	Value    float64 `json:"value"`
}

// Merge combines b into a using the parallel Welford combination formula
// (sample-moment merge across independently accumulated chunks) plus
// straightforward additive/extremal merges for the remaining fields.
// Ties in sort-order boundary bookkeeping are broken deterministically by
// treating a as the lower-indexed (earlier) chunk, matching the
// left-to-right chunk ordering the caller must preserve.
func Merge(a, b *Accumulator) *Accumulator {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	out := &Accumulator{FieldName: a.FieldName, opts: a.opts}
	out.colType = typeinfer.Merge(a.colType, b.colType)
	out.rowCount = a.rowCount + b.rowCount
	out.nullCount = a.nullCount + b.nullCount
	out.isASCII = a.isASCII && b.isASCII
	if a.maxPrecision > b.maxPrecision {
		out.maxPrecision = a.maxPrecision
	} else {
		out.maxPrecision = b.maxPrecision
	}
	out.nNeg = a.nNeg + b.nNeg
	out.nZero = a.nZero + b.nZero
	out.nPos = a.nPos + b.nPos

	out.n = a.n + b.n
	out.sum = a.sum + b.sum
	out.sumOver = a.sumOver || b.sumOver || math.IsInf(out.sum, 0)
	out.logSum = a.logSum + b.logSum
	out.logSumOK = a.logSumOK && b.logSumOK
	out.reciprSum = a.reciprSum + b.reciprSum

	out.mean, out.m2 = mergeWelford(a.mean, a.m2, float64(a.n), b.mean, b.m2, float64(b.n))

	out.hasMinMax = a.hasMinMax || b.hasMinMax
	if a.hasMinMax && b.hasMinMax {
		out.min = math.Min(a.min, b.min)
		out.max = math.Max(a.max, b.max)
	} else if a.hasMinMax {
		out.min, out.max = a.min, a.max
	} else {
		out.min, out.max = b.min, b.max
	}

	out.lenN = a.lenN + b.lenN
	out.lenMean, out.lenM2 = mergeWelford(a.lenMean, a.lenM2, float64(a.lenN), b.lenMean, b.lenM2, float64(b.lenN))
	out.sumLen = a.sumLen + b.sumLen
	out.hasLen = a.hasLen || b.hasLen
	if a.hasLen && b.hasLen {
		out.minLen = minInt(a.minLen, b.minLen)
		out.maxLen = maxInt(a.maxLen, b.maxLen)
	} else if a.hasLen {
		out.minLen, out.maxLen = a.minLen, a.maxLen
	} else {
		out.minLen, out.maxLen = b.minLen, b.maxLen
	}

	out.totalSeen = a.totalSeen + b.totalSeen
	out.firstVal = a.firstVal
	if out.firstVal == nil {
		out.firstVal = b.firstVal
	}
	out.lastVal = b.lastVal
	if out.lastVal == nil {
		out.lastVal = a.lastVal
	}

	// Joining two runs across the chunk boundary: if b's chunk is a single
	// monotone run and a's tail value and b's head value continue both
	// runs' direction, the runs fuse.
	out.runDir, out.runLen, out.longestSigned = joinRuns(a, b)

	if a.valueCounts != nil || b.valueCounts != nil {
		out.valueCounts = make(map[string]int64, len(a.valueCounts)+len(b.valueCounts))
		for k, v := range a.valueCounts {
			out.valueCounts[k] += v
		}
		for k, v := range b.valueCounts {
			out.valueCounts[k] += v
		}
	}

	if a.opts.TrackQuantiles {
		out.quantileBuf = append(append([]float64(nil), a.quantileBuf...), b.quantileBuf...)
	}

	return out
}

// mergeWelford applies Chan et al.'s parallel variance combination formula.
func mergeWelford(meanA, m2A, nA, meanB, m2B, nB float64) (mean, m2 float64) {
	if nA == 0 {
		return meanB, m2B
	}
	if nB == 0 {
		return meanA, m2A
	}
	delta := meanB - meanA
	n := nA + nB
	mean = meanA + delta*nB/n
	m2 = m2A + m2B + delta*delta*nA*nB/n
	return mean, m2
}

func joinRuns(a, b *Accumulator) (dir int, runLen int64, longest int64) {
	longest = a.longestSigned
	if abs64(b.longestSigned) > abs64(longest) {
		longest = b.longestSigned
	}
	if a.lastVal == nil {
		return b.runDir, b.runLen, longest
	}
	if b.firstVal == nil {
		return a.runDir, a.runLen, longest
	}

	cmp := bytes.Compare(b.firstVal, a.lastVal)
	boundaryDir := 0
	if cmp > 0 {
		boundaryDir = 1
	} else if cmp < 0 {
		boundaryDir = -1
	}

	if boundaryDir != 0 && b.runLen == b.totalSeen && (a.runDir == 0 || a.runDir == boundaryDir) && (b.runDir == 0 || b.runDir == boundaryDir) {
		fused := a.runLen + b.runLen
		if fused > 0 && fused > abs64(longest) {
			longest = signedRun(boundaryDir, fused)
		}
		return boundaryDir, fused, longest
	}
	return b.runDir, b.runLen, longest
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
