// Package output implements C8: rendering a selection of records as
// delimited text, compact/pretty JSON, or the compact row-oriented
// shared-key encoding, plus the teacher's append-with-file-lock CSV
// writer adapted to emit any of the three. Grounded on
// internal/writer.CsvWriter's O_APPEND+flock+header-validation pattern,
// generalized from "always comma-separated" to the configurable
// delimiter and format spec.md §4.8 requires.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
)

// Format selects the output encoding.
type Format int

const (
	FormatCSV Format = iota
	FormatJSONPretty
	FormatJSONCompact
	FormatRowEncoded
)

// Config mirrors writer.WriterConfig, extended with Format and an
// explicit delimiter rune (spec.md §4.8: ",", ";", or "\t").
type Config struct {
	Path      string
	Delimiter rune
	Format    Format
}

// Writer appends rows to Config.Path under an exclusive file lock,
// validating that headers match an existing file's, same as the
// teacher's CsvWriter.Write.
type Writer struct {
	cfg Config
}

// NewWriter creates a writer; an unset Delimiter defaults to comma.
func NewWriter(cfg Config) *Writer {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	return &Writer{cfg: cfg}
}

// WriteRows appends a batch of rows (each a []string positionally
// matching headers) to the configured output, encoded in the configured
// Format. CSV and row-encoded formats support append-to-existing-file
// semantics with header validation; JSON formats are written as a
// single complete document per call (no streaming append), matching
// spec.md §4.8's "array of objects" framing.
func (w *Writer) WriteRows(headers []string, rows [][]string) error {
	switch w.cfg.Format {
	case FormatJSONPretty, FormatJSONCompact:
		return w.writeJSON(headers, rows)
	case FormatRowEncoded:
		return w.writeDelimited(headers, rows, true)
	default:
		return w.writeDelimited(headers, rows, false)
	}
}

// writeDelimited is the teacher's CsvWriter.Write, generalized to an
// arbitrary delimiter and to the row-encoded shared-key format.
func (w *Writer) writeDelimited(headers []string, rows [][]string, rowEncoded bool) error {
	dir := filepath.Dir(w.cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("output: creating directory: %w", err)
	}

	file, err := os.OpenFile(w.cfg.Path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("output: opening file: %w", err)
	}
	defer file.Close()

	if err := lockFile(file); err != nil {
		return fmt.Errorf("output: locking file: %w", err)
	}
	defer unlockFile(file)

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	if rowEncoded {
		return writeRowEncoded(file, stat.Size(), headers, rows)
	}

	csvW := csv.NewWriter(file)
	csvW.Comma = w.cfg.Delimiter

	if stat.Size() == 0 {
		if len(headers) == 0 {
			return fmt.Errorf("output: cannot create new file without headers")
		}
		if err := csvW.Write(headers); err != nil {
			return err
		}
	} else if len(headers) > 0 {
		if _, err := file.Seek(0, 0); err != nil {
			return fmt.Errorf("output: seeking to validate headers: %w", err)
		}
		reader := csv.NewReader(file)
		reader.Comma = w.cfg.Delimiter
		existing, err := reader.Read()
		if err != nil {
			return fmt.Errorf("output: reading existing headers: %w", err)
		}
		if !reflect.DeepEqual(existing, headers) {
			return fmt.Errorf("output: header mismatch: file has %v, new write has %v", existing, headers)
		}
	}

	if err := csvW.WriteAll(rows); err != nil {
		return err
	}
	csvW.Flush()
	return csvW.Error()
}

// writeJSON renders headers+rows as a full JSON array of objects, nulls
// for empty cells, per spec.md §4.8.
func (w *Writer) writeJSON(headers []string, rows [][]string) error {
	docs := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		doc := make(map[string]interface{}, len(headers))
		for i, h := range headers {
			if i >= len(row) || row[i] == "" {
				doc[h] = nil
				continue
			}
			doc[h] = row[i]
		}
		docs = append(docs, doc)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if w.cfg.Format == FormatJSONPretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("output: encoding JSON: %w", err)
	}

	dir := filepath.Dir(w.cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("output: creating directory: %w", err)
	}
	if err := os.WriteFile(w.cfg.Path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("output: writing JSON file: %w", err)
	}
	return nil
}
