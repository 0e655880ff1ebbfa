package statsengine

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/qsvcore/qsvcore/internal/recordsrc"
	"github.com/qsvcore/qsvcore/internal/selector"
	"github.com/qsvcore/qsvcore/internal/typeinfer"
)

// RunOptions configures one stats-engine pass over a record source.
type RunOptions struct {
	Workers          int
	Selection        selector.Selection // nil/empty selects all columns
	TrackCardinality bool
	TrackQuantiles   bool
	Percentiles      []float64
	TypeInfer        typeinfer.Options
	DateHeaderHints  []string // substrings matched against header names to mark a column date-like
	SpillTempDir     string
	SpillChunkSize   int
	AntimodesLen     int // cap on the joined mode/antimode string length, 0 = unbounded
}

// Run scans src in parallel, one Accumulator set per worker, then merges
// them in worker-index order (so chunk boundaries are joined
// left-to-right, keeping Merge's sort-order fusion and tie-breaking
// deterministic across repeated runs on the same input) and finalizes
// into per-column Reports. Grounded on indexer.Indexer's per-worker
// accumulator-then-merge orchestration, generalized from index-building
// to arbitrary column statistics.
func Run(src *recordsrc.Source, opts RunOptions) ([]*Report, error) {
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

	headerIsDateLike := make([]bool, len(headers))
	for i, h := range headers {
		headerIsDateLike[i] = matchesAny(h, opts.DateHeaderHints)
	}

	perWorker := make([][]*Accumulator, workers)
	for w := 0; w < workers; w++ {
		accs := make([]*Accumulator, len(sel))
		for i, colIdx := range sel {
			aopts := Options{
				TrackCardinality: opts.TrackCardinality,
				TrackQuantiles:   opts.TrackQuantiles,
				Percentiles:      opts.Percentiles,
				TypeInfer:        opts.TypeInfer,
				HeaderIsDateLike: colIdx < len(headerIsDateLike) && headerIsDateLike[colIdx],
				AntimodesLen:     opts.AntimodesLen,
			}
			name := ""
			if colIdx < len(headers) {
				name = headers[colIdx]
			}
			accs[i] = New(name, aopts)
		}
		perWorker[w] = accs
	}

	err := src.Scan(workers, func(workerID int, rec recordsrc.Record) {
		if workerID < 0 || workerID >= workers {
			workerID = 0
		}
		accs := perWorker[workerID]
		for i, colIdx := range sel {
			var raw []byte
			if colIdx >= 0 && colIdx < len(rec.Fields) {
				raw = rec.Fields[colIdx]
			}
			accs[i].Observe(raw)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("statsengine scan: %w", err)
	}

	merged := make([]*Accumulator, len(sel))
	for i := range sel {
		var acc *Accumulator
		for w := 0; w < workers; w++ {
			acc = Merge(acc, perWorker[w][i])
		}
		merged[i] = acc
	}

	tempDir := opts.SpillTempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	reports := make([]*Report, len(merged))
	for i, acc := range merged {
		r, err := acc.Finalize(FinalizeOptions{
			Percentiles:    opts.Percentiles,
			SpillTempDir:   tempDir,
			SpillChunkSize: opts.SpillChunkSize,
		})
		if err != nil {
			return nil, fmt.Errorf("statsengine finalize %q: %w", acc.FieldName, err)
		}
		reports[i] = r
	}
	return reports, nil
}

func matchesAny(header string, hints []string) bool {
	if len(hints) == 0 {
		return false
	}
	lower := strings.ToLower(header)
	for _, h := range hints {
		if strings.Contains(lower, strings.ToLower(h)) {
			return true
		}
	}
	return false
}
