package output

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// rowEncodingMagic marks the shared-key header line of a row-encoded
// file, so a reader can distinguish it from a plain delimited file.
const rowEncodingMagic = "#qsvcore-row-encoded-v1"

// writeRowEncoded implements spec.md §4.8's "compact row-oriented
// encoding in which each record is represented as a single delimited
// line with a shared key list declared once": a magic line, then one
// line with the pipe-joined keys, then one pipe-joined-values line per
// record. Grounded on original_source/src/util.rs's documented
// jsonl-with-shared-keys scheme (SPEC_FULL.md's C8 entry),
// adapted here from JSON-lines to this package's plain-text sibling
// format since internal/output already owns CSV/JSON and a third
// self-describing text format belongs beside them, not duplicated.
func writeRowEncoded(file *os.File, existingSize int64, headers []string, rows [][]string) error {
	bw := bufio.NewWriterSize(file, 256*1024)

	if existingSize == 0 {
		if len(headers) == 0 {
			return fmt.Errorf("output: cannot create new row-encoded file without headers")
		}
		if _, err := bw.WriteString(rowEncodingMagic + "\n"); err != nil {
			return err
		}
		if _, err := bw.WriteString(strings.Join(headers, "|") + "\n"); err != nil {
			return err
		}
	} else if len(headers) > 0 {
		if _, err := file.Seek(0, 0); err != nil {
			return fmt.Errorf("output: seeking to validate headers: %w", err)
		}
		br := bufio.NewReader(file)
		_, _ = br.ReadString('\n') // magic line
		keys, err := br.ReadString('\n')
		if err != nil {
			return fmt.Errorf("output: reading existing key line: %w", err)
		}
		if existing := strings.TrimRight(keys, "\r\n"); existing != strings.Join(headers, "|") {
			return fmt.Errorf("output: header mismatch: file has %q, new write has %q", existing, strings.Join(headers, "|"))
		}
	}

	for _, row := range rows {
		if _, err := bw.WriteString(strings.Join(row, "|") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadRowEncoded parses a file written by writeRowEncoded back into
// headers and rows.
func ReadRowEncoded(path string) (headers []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("output: opening row-encoded file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("output: empty row-encoded file")
	}
	if scanner.Text() != rowEncodingMagic {
		return nil, nil, fmt.Errorf("output: not a row-encoded file (missing magic header)")
	}
	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("output: row-encoded file missing key line")
	}
	headers = strings.Split(scanner.Text(), "|")

	for scanner.Scan() {
		rows = append(rows, strings.Split(scanner.Text(), "|"))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return headers, rows, nil
}
