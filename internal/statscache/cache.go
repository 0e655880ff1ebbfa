// Package statscache implements C5: an on-disk, newline-delimited JSON
// sidecar of C4's stats output, keyed by an input-file fingerprint, so a
// repeated stats/frequency/validate invocation over an unchanged file can
// skip the scan entirely. Grounded on the teacher's schema.Schema, whose
// sidecar-JSON-next-to-the-input pattern (`<path>_schema.json`,
// mutex-guarded Load/Save) is generalized here from a virtual-column map
// to a fingerprinted multi-record stats dump.
package statscache

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/qsvcore/qsvcore/internal/statsengine"
)

// Fingerprint identifies the exact input + configuration a cache sidecar
// was computed from, per spec.md §4.5.
type Fingerprint struct {
	InputPath         string `json:"input_path"`
	Size              int64  `json:"size"`
	ModTimeUnixNano   int64  `json:"modification_time"`
	ColumnArity       int    `json:"column_arity"`
	SchemaOptionsHash string `json:"schema_options_hash"`
}

// datasetField names the special dataset-level lines that precede the
// per-column records in the sidecar (spec.md §6).
const (
	fieldRowCount    = "qsv__rowcount"
	fieldColumnCount = "qsv__columncount"
	fieldFileSize    = "qsv__filesize"
	fieldFingerprint = "qsv__fingerprint"
)

// datasetLine is one `{"field":"qsv__...","qsv__value":...}` record.
type datasetLine struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"qsv__value"`
}

// columnLine wraps a Report so the sidecar records stay self-describing:
// a column record is any line whose "field" names a real column, and
// unknown top-level keys are ignored on read for forward compatibility.
type columnLine struct {
	statsengine.Report
}

// CachePath returns the sidecar path for inputPath, per spec.md §6:
// `<stem>.stats.csv.data.jsonl`.
func CachePath(inputPath string) string {
	dir := filepath.Dir(inputPath)
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, stem+".stats.csv.data.jsonl")
}

// ComputeFingerprint builds a Fingerprint from the input file's current
// on-disk state and the options hash of the requested run.
func ComputeFingerprint(inputPath string, columnArity int, schemaOptionsHash string) (Fingerprint, error) {
	fi, err := os.Stat(inputPath)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("statscache fingerprint: %w", err)
	}
	return Fingerprint{
		InputPath:         inputPath,
		Size:              fi.Size(),
		ModTimeUnixNano:   fi.ModTime().UnixNano(),
		ColumnArity:       columnArity,
		SchemaOptionsHash: schemaOptionsHash,
	}, nil
}

// Mutex serializes writes to a single cache path, matching the teacher's
// per-Schema sync.Mutex (the spec does not require cross-process locking
// since "commands acquire the cache by path uniqueness").
var writeLocks sync.Map // map[string]*sync.Mutex

func lockFor(path string) *sync.Mutex {
	v, _ := writeLocks.LoadOrStore(path, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Store writes the sidecar for inputPath: a set of dataset lines followed
// by one line per column Report.
func Store(inputPath string, fp Fingerprint, rowCount int64, reports []*statsengine.Report) error {
	path := CachePath(inputPath)
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("statscache store: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, 256*1024)
	enc := json.NewEncoder(bw)

	fpBytes, err := json.Marshal(fp)
	if err != nil {
		return err
	}

	lines := []datasetLine{
		{Field: fieldRowCount, Value: mustMarshal(rowCount)},
		{Field: fieldColumnCount, Value: mustMarshal(len(reports))},
		{Field: fieldFileSize, Value: mustMarshal(fp.Size)},
		{Field: fieldFingerprint, Value: fpBytes},
	}
	for _, l := range lines {
		if err := enc.Encode(l); err != nil {
			return fmt.Errorf("statscache store dataset line: %w", err)
		}
	}

	for _, r := range reports {
		cl := columnLine{Report: *r}
		if err := enc.Encode(cl); err != nil {
			return fmt.Errorf("statscache store column %q: %w", r.Field, err)
		}
	}

	return bw.Flush()
}

// Load reads the sidecar for inputPath and reports whether it is current
// against want (size and fingerprint must match, per spec.md §4.4's
// "strictly later modification time and matching fingerprint" rule,
// checked here via the recorded fingerprint rather than a second stat
// call since Store already captured the authoritative modification time).
func Load(inputPath string, want Fingerprint) (reports []*statsengine.Report, current bool, err error) {
	path := CachePath(inputPath)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("statscache load: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var storedFP Fingerprint
	haveFP := false
	var cols []*statsengine.Report

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var probe struct {
			Field string `json:"field"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			return nil, false, fmt.Errorf("statscache load: malformed line: %w", err)
		}

		switch probe.Field {
		case fieldRowCount, fieldColumnCount, fieldFileSize:
			continue
		case fieldFingerprint:
			var dl datasetLine
			if err := json.Unmarshal(line, &dl); err != nil {
				return nil, false, err
			}
			if err := json.Unmarshal(dl.Value, &storedFP); err != nil {
				return nil, false, err
			}
			haveFP = true
		default:
			var cl columnLine
			if err := json.Unmarshal(line, &cl); err != nil {
				return nil, false, fmt.Errorf("statscache load column %q: %w", probe.Field, err)
			}
			r := cl.Report
			cols = append(cols, &r)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, false, err
	}

	if !haveFP || storedFP != want {
		return cols, false, nil
	}
	return cols, true, nil
}

// Invalidate removes a sidecar, forcing the next run to regenerate it.
func Invalidate(inputPath string) error {
	path := CachePath(inputPath)
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Satisfies reports whether a cached set of reports already carries the
// optional fields a new request needs (cardinality, quantiles), per
// spec.md §4.5's "requested statistics is a strict superset" trigger.
func Satisfies(cached []*statsengine.Report, needCardinality, needQuantiles bool) bool {
	for _, r := range cached {
		if needCardinality && !r.CardinalityKnown {
			return false
		}
		if needQuantiles && r.QuantileSampleSize == 0 && r.Count > 0 {
			return false
		}
	}
	return true
}

func mustMarshal(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
