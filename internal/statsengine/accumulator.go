// Package statsengine implements C4: streaming per-column accumulators,
// their parallel merge, and the stats-cache writer contract. Grounded on
// indexer.Indexer's per-column worker/channel orchestration (generalized
// from index-key collection to full statistical accumulation) and on the
// Welford/sort-order/quantile design of spec.md §4.4.
package statsengine

import (
	"bytes"
	"math"
	"strconv"

	"github.com/qsvcore/qsvcore/internal/typeinfer"
)

// OverflowSentinel is emitted in place of a numeric sum that overflowed,
// per spec.md §4.4's failure semantics.
const OverflowSentinel = "*OVERFLOW*"

// UnderflowSentinel is the symmetric case for negative overflow.
const UnderflowSentinel = "*UNDERFLOW*"

// Options configures which opt-in accumulators run, since cardinality
// maps and quantile buffers are the dominant memory cost (spec.md §4.4).
type Options struct {
	TrackCardinality bool
	TrackQuantiles   bool
	Percentiles      []float64 // fractions in [0,1]
	TypeInfer        typeinfer.Options
	HeaderIsDateLike bool
	AntimodesLen     int // cap on joined-antimode string length, 0 = unbounded
}

// Accumulator is the per-column streaming state of spec.md §4.4's "Stats
// record", before finalization into a Report.
type Accumulator struct {
	FieldName string
	opts      Options

	colType   typeinfer.Type
	n         int64 // total non-null observations
	nullCount int64
	rowCount  int64

	isASCII      bool
	maxPrecision int

	nNeg, nZero, nPos int64

	// Welford moments over numeric values.
	mean, m2  float64
	sum       float64
	sumOver   bool // true once the running float64 sum overflows to +-Inf
	logSum    float64
	logSumOK  bool
	reciprSum float64

	hasMinMax bool
	min, max  float64
	minStr    []byte
	maxStr    []byte

	// Length accumulators (Welford over UTF-8 rune length).
	lenMean, lenM2        float64
	lenN                  int64
	minLen, maxLen        int
	sumLen                int64
	hasLen                bool

	// Sort-order tracker: boundary info needed for a deterministic merge.
	firstVal     []byte
	lastVal      []byte
	runLen       int64 // length of current monotone run
	runDir       int   // -1 descending, 0 unknown/flat, 1 ascending
	longestSigned int64 // signed longest run seen so far (sign = direction)
	totalSeen    int64

	// Opt-in: cardinality / mode.
	valueCounts map[string]int64

	// Opt-in: quantile buffer (spills via extsort when large, see report.go's finalizeQuantiles).
	quantileBuf []float64
}

// New creates an accumulator for one column.
func New(fieldName string, opts Options) *Accumulator {
	a := &Accumulator{FieldName: fieldName, opts: opts, isASCII: true, colType: typeinfer.Null, runDir: 0}
	if opts.TrackCardinality {
		a.valueCounts = make(map[string]int64)
	}
	return a
}

// Observe folds one raw field value into the accumulator.
func (a *Accumulator) Observe(raw []byte) {
	a.rowCount++

	if len(raw) == 0 {
		a.nullCount++
		a.observeSortOrder(raw)
		return
	}

	if !typeinfer.IsASCII(raw) {
		a.isASCII = false
	}

	vt := typeinfer.InferValue(raw, a.opts.HeaderIsDateLike, a.opts.TypeInfer)
	a.colType = typeinfer.Merge(a.colType, vt)
	a.n++

	switch vt {
	case typeinfer.Integer, typeinfer.Float:
		a.observeNumeric(raw, vt)
	}

	a.observeLength(raw)
	a.observeSortOrder(raw)

	if a.valueCounts != nil {
		a.valueCounts[string(raw)]++
	}
}

func (a *Accumulator) observeNumeric(raw []byte, vt typeinfer.Type) {
	s := string(raw)
	v, ok := parseFloat(s)
	if !ok {
		return
	}

	if vt == typeinfer.Integer {
		if prec := typeinfer.MaxPrecision(s); prec > a.maxPrecision {
			a.maxPrecision = prec
		}
	} else if prec := typeinfer.MaxPrecision(s); prec > a.maxPrecision {
		a.maxPrecision = prec
	}

	switch {
	case v < 0:
		a.nNeg++
	case v == 0:
		a.nZero++
	default:
		a.nPos++
	}

	// Welford update.
	nn := a.n
	delta := v - a.mean
	a.mean += delta / float64(nn)
	delta2 := v - a.mean
	a.m2 += delta * delta2

	newSum := a.sum + v
	if math.IsInf(newSum, 0) && !math.IsInf(a.sum, 0) {
		a.sumOver = true
	}
	a.sum = newSum

	if v > 0 {
		a.logSum += math.Log(v)
		a.logSumOK = true
		a.reciprSum += 1 / v
	} else if v < 0 {
		a.logSumOK = false
	}

	if !a.hasMinMax {
		a.hasMinMax = true
		a.min, a.max = v, v
	} else {
		if v < a.min {
			a.min = v
		}
		if v > a.max {
			a.max = v
		}
	}

	if a.opts.TrackQuantiles {
		a.quantileBuf = append(a.quantileBuf, v)
	}
}

func (a *Accumulator) observeLength(raw []byte) {
	l := typeinfer.RuneLen(raw)
	a.lenN++
	delta := float64(l) - a.lenMean
	a.lenMean += delta / float64(a.lenN)
	delta2 := float64(l) - a.lenMean
	a.lenM2 += delta * delta2
	a.sumLen += int64(l)

	if !a.hasLen {
		a.hasLen = true
		a.minLen, a.maxLen = l, l
	} else {
		if l < a.minLen {
			a.minLen = l
		}
		if l > a.maxLen {
			a.maxLen = l
		}
	}
}

func (a *Accumulator) observeSortOrder(raw []byte) {
	a.totalSeen++
	if a.firstVal == nil {
		a.firstVal = append([]byte(nil), raw...)
		a.lastVal = append([]byte(nil), raw...)
		a.runLen = 1
		a.longestSigned = 1
		return
	}

	cmp := bytes.Compare(raw, a.lastVal)
	dir := 0
	if cmp > 0 {
		dir = 1
	} else if cmp < 0 {
		dir = -1
	}

	switch {
	case dir == 0:
		a.runLen++
	case a.runDir == 0 || a.runDir == dir:
		a.runDir = dir
		a.runLen++
	default:
		a.runDir = dir
		a.runLen = 2
	}

	if signedRun(a.runDir, a.runLen) > abs64(a.longestSigned) {
		a.longestSigned = signedRun(a.runDir, a.runLen)
	}

	a.lastVal = append(a.lastVal[:0], raw...)
}

func signedRun(dir int, length int64) int64 {
	if dir < 0 {
		return -length
	}
	return length
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
