package validate

import (
	"fmt"
	"runtime"
	"sync"
	"unicode/utf8"

	"github.com/qsvcore/qsvcore/internal/recordsrc"
)

// ConformanceResult is the outcome of a schema-less RFC 4180/UTF-8 check.
type ConformanceResult struct {
	Valid          bool
	InvalidRecords []int64 // byte offsets of records with malformed UTF-8
}

// CheckConformance validates that every record's bytes are valid UTF-8,
// per spec.md §4.7's schema-less fallback ("RFC 4180 / UTF-8 conformance
// check"). Only UTF-8 validity is checked: records with differing field
// counts or an unterminated quote are not reported, since recordsrc.Source
// does not check either (Options.Flexible does not change this).
func CheckConformance(src *recordsrc.Source, workers int) (ConformanceResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var mu sync.Mutex
	result := ConformanceResult{Valid: true}

	err := src.Scan(workers, func(workerID int, rec recordsrc.Record) {
		for _, f := range rec.Fields {
			if !utf8.Valid(f) {
				mu.Lock()
				result.Valid = false
				result.InvalidRecords = append(result.InvalidRecords, rec.Offset)
				mu.Unlock()
				return
			}
		}
	})
	if err != nil {
		return result, fmt.Errorf("conformance scan: %w", err)
	}
	return result, nil
}
