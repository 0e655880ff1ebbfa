package frequency

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/qsvcore/qsvcore/internal/recordsrc"
	"github.com/qsvcore/qsvcore/internal/selector"
)

// RunOptions configures one frequency pass.
type RunOptions struct {
	Workers       int
	Selection     selector.Selection
	WeightColumn  int // -1 for unweighted
	Strategy      Strategy
	Ascending     bool
	Limit             int   // spec.md §4.6 step 3: >0 keeps top N, <0 retains count >= -limit, 0 disables
	DistinctThreshold int64 // gates Limit: only applied when a column's cardinality meets this (0 = always apply)
	ExcludeNulls  bool
	WeightStddev  float64 // feeds toleranceFromStats; zero-value is fine
	WeightRange   float64
	WeightMean    float64
	RowCounts     map[string]int64 // optional: field name -> total row count, for all-unique short-circuit
	Cardinalities map[string]int64 // optional: field name -> cardinality, from a prior stats pass
}

// ColumnResult is one column's ranked, truncated frequency table.
type ColumnResult struct {
	Field     string
	Entries   []Entry
	NullCount int64
	TotalRows int64
}

// Run builds, merges, ranks, and truncates a frequency table per
// selected column. Grounded on indexer/indexer.go's per-worker
// accumulate-then-merge orchestration (see statsengine.Run, which
// shares the same shape).
func Run(src *recordsrc.Source, opts RunOptions) ([]ColumnResult, error) {
	headers := src.Headers()
	sel := opts.Selection
	if len(sel) == 0 {
		sel = make(selector.Selection, len(headers))
		for i := range headers {
			sel[i] = i
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	weighted := opts.WeightColumn >= 0

	// All-unique short-circuit: a column whose stats-cache cardinality
	// equals its row count never needs a full table built.
	shortCircuit := make(map[int]bool, len(sel))
	for _, colIdx := range sel {
		if colIdx < 0 || colIdx >= len(headers) {
			continue
		}
		name := headers[colIdx]
		if opts.RowCounts == nil || opts.Cardinalities == nil {
			continue
		}
		rc, rcOK := opts.RowCounts[name]
		card, cardOK := opts.Cardinalities[name]
		if rcOK && cardOK && rc > 0 && card == rc {
			shortCircuit[colIdx] = true
		}
	}

	perWorker := make([]map[int]*Table, workers)
	for w := range perWorker {
		tables := make(map[int]*Table, len(sel))
		for _, colIdx := range sel {
			if shortCircuit[colIdx] {
				continue
			}
			tables[colIdx] = NewTable(weighted)
		}
		perWorker[w] = tables
	}

	err := src.Scan(workers, func(workerID int, rec recordsrc.Record) {
		if workerID < 0 || workerID >= workers {
			workerID = 0
		}
		tables := perWorker[workerID]

		var weight float64
		var weightOK bool
		if weighted && opts.WeightColumn < len(rec.Fields) {
			v, err := strconv.ParseFloat(string(rec.Fields[opts.WeightColumn]), 64)
			weightOK = err == nil
			weight = v
		}

		for _, colIdx := range sel {
			t := tables[colIdx]
			if t == nil {
				continue
			}
			var raw []byte
			if colIdx >= 0 && colIdx < len(rec.Fields) {
				raw = rec.Fields[colIdx]
			}
			t.Observe(raw, weight, weightOK)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("frequency scan: %w", err)
	}

	tolerance := toleranceFromStats(opts.WeightStddev, opts.WeightRange, opts.WeightMean)

	results := make([]ColumnResult, 0, len(sel))
	for _, colIdx := range sel {
		name := ""
		if colIdx >= 0 && colIdx < len(headers) {
			name = headers[colIdx]
		}

		if shortCircuit[colIdx] {
			rc := opts.RowCounts[name]
			results = append(results, ColumnResult{
				Field:     name,
				TotalRows: rc,
				Entries: []Entry{{
					Value:      AllUniqueSentinel,
					Count:      float64(rc),
					Percentage: 100,
					Rank:       1,
				}},
			})
			continue
		}

		var merged *Table
		for w := 0; w < workers; w++ {
			merged = merged.Merge(perWorker[w][colIdx])
		}
		if merged == nil {
			merged = NewTable(weighted)
		}

		entries := merged.Entries()
		total := float64(0)
		for _, e := range entries {
			total += e.Count
		}
		denom := total
		if !opts.ExcludeNulls {
			denom += float64(merged.NullCount())
		}

		cardinality, cardOK := opts.Cardinalities[name]
		if !cardOK {
			cardinality = merged.Cardinality()
		}

		ranked := Rank(entries, opts.Strategy, opts.Ascending, rankTolerance(weighted, tolerance))
		ranked = ApplyDistinctThreshold(ranked, opts.Limit, cardinality, opts.DistinctThreshold)
		ranked = WithPercentages(ranked, denom)

		results = append(results, ColumnResult{
			Field:     name,
			Entries:   ranked,
			NullCount: merged.NullCount(),
			TotalRows: merged.TotalRows(),
		})
	}

	return results, nil
}

// rankTolerance returns 0 for unweighted tables (exact integer ties),
// and the computed float tolerance for weighted ones.
func rankTolerance(weighted bool, tolerance float64) float64 {
	if !weighted {
		return 0
	}
	return tolerance
}
