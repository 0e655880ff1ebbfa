package validate

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/qsvcore/qsvcore/internal/recordsrc"
)

// Outcome is one record's validation verdict.
type Outcome struct {
	RecordNum int64
	Offset    int64
	Valid     bool
	Errors    []string
}

// RunOptions configures one validation pass.
type RunOptions struct {
	Workers  int
	FailFast bool
}

// Run validates every record of src against cs in parallel batches,
// partitioning into valid/invalid streams. Grounded on
// indexer/indexer.go's worker-pool/channel orchestration, generalized
// from index-key emission to schema validation with a shared read-only
// compiled schema and a single cross-worker uniqueness seen-set (per
// spec.md §5's cooperative-cancellation / reader-writer-lock design).
func Run(ctx context.Context, src *recordsrc.Source, cs *CompiledSchema, opts RunOptions) ([]Outcome, error) {
	headers := src.Headers()
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	checker := NewCombinedUniquenessChecker()

	var mu sync.Mutex
	var outcomes []Outcome
	var stopped bool

	err := src.Scan(workers, func(workerID int, rec recordsrc.Record) {
		mu.Lock()
		if stopped {
			mu.Unlock()
			return
		}
		mu.Unlock()

		o := validateRecord(ctx, headers, rec, cs, checker)

		mu.Lock()
		outcomes = append(outcomes, o)
		if opts.FailFast && !o.Valid {
			stopped = true
		}
		mu.Unlock()
	})
	if err != nil {
		return nil, fmt.Errorf("validate scan: %w", err)
	}
	return outcomes, nil
}

func validateRecord(ctx context.Context, headers []string, rec recordsrc.Record, cs *CompiledSchema, checker *CombinedUniquenessChecker) Outcome {
	o := Outcome{RecordNum: rec.Num, Offset: rec.Offset, Valid: true}

	doc := make(map[string]interface{}, len(headers))
	for i, h := range headers {
		if i < len(rec.Fields) {
			doc[h] = string(rec.Fields[i])
		} else {
			doc[h] = ""
		}
	}

	if cs.Schema != nil {
		if err := cs.Schema.Validate(toJSONValue(doc)); err != nil {
			o.Valid = false
			o.Errors = append(o.Errors, err.Error())
		}
	}

	for field, spec := range cs.DynamicEnums {
		v, _ := doc[field].(string)
		cache := dynamicEnumCacheFor(spec)
		ok, err := cache.Contains(ctx, spec, v)
		if err != nil {
			o.Valid = false
			o.Errors = append(o.Errors, fmt.Sprintf("%s: dynamicEnum lookup failed: %v", field, err))
			continue
		}
		if !ok {
			o.Valid = false
			o.Errors = append(o.Errors, fmt.Sprintf("%s: %q not present in dynamicEnum reference set %q", field, v, spec.Name))
		}
	}

	for _, group := range cs.UniqueGroups {
		values := make([]string, len(group))
		for i, col := range group {
			values[i], _ = doc[col].(string)
		}
		if checker.CheckAndInsert(CombinedKey(values)) {
			o.Valid = false
			o.Errors = append(o.Errors, fmt.Sprintf("uniqueCombinedWith %v: duplicate combined value %q", group, CombinedKey(values)))
		}
	}

	return o
}

// toJSONValue hands map[string]interface{} straight to Schema.Validate,
// which accepts any value produced by encoding/json-compatible decoding.
func toJSONValue(doc map[string]interface{}) interface{} {
	return doc
}

var sharedEnumCaches sync.Map // map[string]*DynamicEnumCache keyed by spec.Name

func dynamicEnumCacheFor(spec DynamicEnumSpec) *DynamicEnumCache {
	v, _ := sharedEnumCaches.LoadOrStore(spec.Name, NewDynamicEnumCache(DefaultFetchTimeout))
	return v.(*DynamicEnumCache)
}
