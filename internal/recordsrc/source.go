// Package recordsrc implements C1, the record source: a uniform record
// iterator over local, compressed, or piped CSV input, generalized from
// the teacher's indexer.Scanner (mmap + parallel chunked SIMD scanning)
// from "emit index keys" to "emit full field-slice records".
package recordsrc

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/qsvcore/qsvcore/internal/common"
)

// Options configures how a Source parses its bytes.
type Options struct {
	Delimiter byte // default ',' if zero
	Headers   bool // true when the first line is a header row
	Flexible  bool // accept variable record arity without error
}

// Record is one parsed CSV row: ordered raw field byte-slices, plus its
// byte offset and 0-based record number when known. Slices alias the
// source's mmap'd buffer and are only valid until the next record is
// produced from the same chunk.
type Record struct {
	Fields [][]byte
	Offset int64
	Num    int64 // -1 when the source cannot cheaply report it (parallel scan of an unindexed file)
}

// Source presents records() / headers() / indexed() / seek() per
// spec.md §4.1.
type Source struct {
	path      string
	data      []byte
	mapped    bool
	tempFile  *os.File // non-nil when a decompression temp file must be cleaned up
	delimiter byte
	flexible  bool

	headers   []string
	headerMap map[string]int
	dataStart int

	idx *common.IndexReader
}

// Open opens path, transparently decompressing recognized extensions
// (see compressed.go) and memory-mapping the (possibly materialized)
// row-oriented file. If a fresh `<path>.idx` sidecar exists it is loaded
// so Indexed()/Seek() become available.
func Open(path string, opts Options) (*Source, error) {
	delim := opts.Delimiter
	if delim == 0 {
		delim = detectDelimiter(path)
	}

	realPath, tempFile, err := materializeRowOriented(path)
	if err != nil {
		return nil, common.Wrap(common.KindIO, "recordsrc.Open", err)
	}

	f, err := os.Open(realPath)
	if err != nil {
		return nil, common.Wrap(common.KindIO, "recordsrc.Open", err)
	}
	defer func() { _ = f.Close() }()

	data, err := common.MmapFile(f)
	if err != nil {
		return nil, common.Wrap(common.KindIO, "recordsrc.Open", err)
	}

	s := &Source{
		path:      path,
		data:      data,
		mapped:    true,
		tempFile:  tempFile,
		delimiter: delim,
		flexible:  opts.Flexible,
	}

	if opts.Headers {
		if err := s.readHeaders(); err != nil {
			_ = s.Close()
			return nil, common.Wrap(common.KindFormat, "recordsrc.Open", err)
		}
	}

	s.tryLoadIndex(path)

	return s, nil
}

func (s *Source) readHeaders() error {
	idx := bytes.IndexByte(s.data, '\n')
	if idx == -1 {
		idx = len(s.data)
		if idx == 0 {
			return fmt.Errorf("empty input")
		}
	}

	line := s.data[:idx]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	if len(line) >= 3 && line[0] == 0xEF && line[1] == 0xBB && line[2] == 0xBF {
		line = line[3:]
	}

	parts := bytes.Split(line, []byte{s.delimiter})
	s.headers = make([]string, len(parts))
	s.headerMap = make(map[string]int, len(parts))
	for i, part := range parts {
		name := string(bytes.TrimSpace(part))
		if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
			name = name[1 : len(name)-1]
		}
		s.headers[i] = name
		s.headerMap[strings.ToLower(name)] = i
	}

	s.dataStart = idx + 1
	if s.dataStart > len(s.data) {
		s.dataStart = len(s.data)
	}
	return nil
}

// Headers returns the header row, or nil when headers were disabled.
func (s *Source) Headers() []string { return s.headers }

// ColumnIndex resolves a case-insensitive header name to its position.
func (s *Source) ColumnIndex(name string) (int, bool) {
	idx, ok := s.headerMap[strings.ToLower(strings.TrimSpace(name))]
	return idx, ok
}

// Delimiter returns the single-byte field separator in effect.
func (s *Source) Delimiter() byte { return s.delimiter }

func (s *Source) tryLoadIndex(path string) {
	idxPath := path + ".idx"
	idxInfo, err := os.Stat(idxPath)
	if err != nil {
		return
	}
	srcInfo, err := os.Stat(path)
	if err != nil || idxInfo.ModTime().Before(srcInfo.ModTime()) {
		return
	}
	reader, err := common.NewIndexReaderMmap(idxPath)
	if err != nil {
		return
	}
	s.idx = reader
}

// Indexed reports whether a valid byte-offset index is loaded.
func (s *Source) Indexed() bool { return s.idx != nil }

// Seek returns the byte offset of recordNum (0-based, data records only)
// using the loaded index. Callers must check Indexed() first.
func (s *Source) Seek(recordNum int64) (int64, error) {
	if s.idx == nil {
		return 0, fmt.Errorf("recordsrc: no index loaded")
	}
	return s.idx.OffsetOf(recordNum)
}

// Each walks every data record sequentially in file order, assigning
// consecutive 0-based record numbers, and stops at the first error
// returned by fn (io.EOF in fn is not special-cased: return nil from fn
// to continue, a sentinel error to stop early).
func (s *Source) Each(fn func(rec Record) error) error {
	data := s.data[s.dataStart:]
	num := int64(0)
	lineStart := 0
	inQuote := false

	emit := func(end int) error {
		line := data[lineStart:end]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		fields := splitRecord(line, s.delimiter)
		rec := Record{Fields: fields, Offset: int64(s.dataStart + lineStart), Num: num}
		if err := fn(rec); err != nil {
			return err
		}
		num++
		return nil
	}

	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '"':
			inQuote = !inQuote
		case '\n':
			if inQuote {
				continue
			}
			if err := emit(i); err != nil {
				return err
			}
			lineStart = i + 1
		}
	}
	if lineStart < len(data) {
		if err := emit(len(data)); err != nil {
			return err
		}
	}
	return nil
}

// splitRecord splits a single unquoted-newline-free line into fields,
// stripping a wrapping pair of quotes per field and, inside such a
// quoted field, unescaping doubled quotes ("" becomes ").
func splitRecord(line []byte, delim byte) [][]byte {
	if len(line) == 0 {
		return [][]byte{}
	}
	var fields [][]byte
	fieldStart := 0
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuote = !inQuote
		case delim:
			if !inQuote {
				fields = append(fields, unwrapQuotes(line[fieldStart:i]))
				fieldStart = i + 1
			}
		}
	}
	fields = append(fields, unwrapQuotes(line[fieldStart:]))
	return fields
}

func unwrapQuotes(field []byte) []byte {
	if len(field) >= 2 && field[0] == '"' && field[len(field)-1] == '"' {
		inner := field[1 : len(field)-1]
		return bytes.ReplaceAll(inner, []byte(`""`), []byte(`"`))
	}
	return field
}

// Close releases the mmap and any decompression temp file.
func (s *Source) Close() error {
	var err error
	if s.mapped {
		err = common.MunmapFile(s.data)
	}
	if s.idx != nil {
		s.idx.Cleanup()
	}
	if s.tempFile != nil {
		_ = s.tempFile.Close()
		_ = os.Remove(s.tempFile.Name())
	}
	return err
}

func detectDelimiter(path string) byte {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return '\t'
	case ".ssv":
		return ';'
	default:
		return ','
	}
}

// NewBufReader wraps a plain io.Reader (e.g. for piped columnar input
// already converted row-wise upstream, per spec.md §1's non-goal for
// columnar conversion) as a non-seekable, non-indexed Each-only source.
func NewBufReader(r io.Reader, opts Options) *StreamSource {
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}
	return &StreamSource{r: bufio.NewReaderSize(r, 256*1024), delimiter: delim, headersOn: opts.Headers}
}

// StreamSource is the io.Reader-backed counterpart of Source for inputs
// that cannot be mmap'd (stdin, pre-converted columnar handles).
type StreamSource struct {
	r         *bufio.Reader
	delimiter byte
	headersOn bool
	headers   []string
}

// Headers reads and returns the header row on first call.
func (s *StreamSource) Headers() ([]string, error) {
	if !s.headersOn {
		return nil, nil
	}
	if s.headers != nil {
		return s.headers, nil
	}
	line, err := s.r.ReadString('\n')
	if err != nil && line == "" {
		return nil, err
	}
	line = strings.TrimRight(line, "\r\n")
	s.headers = strings.Split(line, string(s.delimiter))
	return s.headers, nil
}

// Each streams records in order, assigning 0-based record numbers.
func (s *StreamSource) Each(fn func(rec Record) error) error {
	num := int64(0)
	for {
		line, err := s.r.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\r\n")
			fields := splitRecord([]byte(line), s.delimiter)
			if ferr := fn(Record{Fields: fields, Offset: -1, Num: num}); ferr != nil {
				return ferr
			}
			num++
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
