// Package selector implements C2: parsing and resolving a column
// selection expression (names, 1-based indices, ranges, inversion)
// against a header row, generalized from the teacher's JSON-defined
// single/composite index-column definitions (indexer.IndexerConfig.Columns)
// into spec.md §3's full selection grammar.
package selector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qsvcore/qsvcore/internal/common"
)

// Term is one comma-separated element of a selection expression, before
// resolution against headers.
type Term struct {
	Name      string // set when the term is a bare column name
	Index     int    // 1-based; set when the term is a bare index
	RangeFrom int    // 1-based; both >0 when the term is a range
	RangeTo   int
	IsRange   bool
	IsName    bool
}

// AST is a parsed selection expression: an ordered term list plus
// whether the whole expression is inverted (leading '!').
type AST struct {
	Terms    []Term
	Inverted bool
}

// Selection is an ordered, possibly-repeating list of 0-based column
// positions, per spec.md §3.
type Selection []int

// Parse parses expr into an AST. Grammar: comma-separated terms, each a
// name, a 1-based index, or an inclusive 1-based range "a-b"; a leading
// '!' inverts the whole selection once resolved.
func Parse(expr string) (AST, error) {
	expr = strings.TrimSpace(expr)
	inverted := false
	if strings.HasPrefix(expr, "!") {
		inverted = true
		expr = expr[1:]
	}

	if expr == "" {
		return AST{Inverted: inverted}, nil
	}

	var terms []Term
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		term, err := parseTerm(part)
		if err != nil {
			return AST{}, err
		}
		terms = append(terms, term)
	}
	return AST{Terms: terms, Inverted: inverted}, nil
}

func parseTerm(part string) (Term, error) {
	if rangeFrom, rangeTo, ok := tryParseRange(part); ok {
		return Term{IsRange: true, RangeFrom: rangeFrom, RangeTo: rangeTo}, nil
	}
	if n, err := strconv.Atoi(part); err == nil {
		return Term{Index: n}, nil
	}
	return Term{Name: part, IsName: true}, nil
}

func tryParseRange(part string) (from, to int, ok bool) {
	dash := strings.IndexByte(part, '-')
	if dash <= 0 || dash == len(part)-1 {
		return 0, 0, false
	}
	fromStr, toStr := part[:dash], part[dash+1:]
	fromN, err1 := strconv.Atoi(fromStr)
	toN, err2 := strconv.Atoi(toStr)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return fromN, toN, true
}

// Resolve resolves ast against headers (case-insensitive name lookup)
// into a Selection. An empty ast (no terms, not inverted) selects every
// column in header order.
func Resolve(ast AST, headers []string) (Selection, error) {
	arity := len(headers)
	nameIdx := make(map[string]int, arity)
	for i, h := range headers {
		nameIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	if len(ast.Terms) == 0 && !ast.Inverted {
		sel := make(Selection, arity)
		for i := range sel {
			sel[i] = i
		}
		return sel, nil
	}

	var picked []int
	for _, term := range ast.Terms {
		switch {
		case term.IsRange:
			if term.RangeFrom < 1 || term.RangeTo < term.RangeFrom || term.RangeTo > arity {
				return nil, common.Wrap(common.KindConfig, "selector.Resolve",
					fmt.Errorf("range out of bounds: %d-%d (arity %d)", term.RangeFrom, term.RangeTo, arity))
			}
			for i := term.RangeFrom; i <= term.RangeTo; i++ {
				picked = append(picked, i-1)
			}
		case term.IsName:
			idx, ok := nameIdx[strings.ToLower(strings.TrimSpace(term.Name))]
			if !ok {
				return nil, common.Wrap(common.KindConfig, "selector.Resolve",
					fmt.Errorf("unknown column: %q", term.Name))
			}
			picked = append(picked, idx)
		default:
			if term.Index < 1 || term.Index > arity {
				return nil, common.Wrap(common.KindConfig, "selector.Resolve",
					fmt.Errorf("index out of bounds: %d (arity %d)", term.Index, arity))
			}
			picked = append(picked, term.Index-1)
		}
	}

	if !ast.Inverted {
		if len(picked) == 0 {
			return nil, common.Wrap(common.KindConfig, "selector.Resolve", fmt.Errorf("selection is empty"))
		}
		return Selection(picked), nil
	}

	excluded := make(map[int]bool, len(picked))
	for _, p := range picked {
		excluded[p] = true
	}
	var sel Selection
	for i := 0; i < arity; i++ {
		if !excluded[i] {
			sel = append(sel, i)
		}
	}
	if len(sel) == 0 {
		return nil, common.Wrap(common.KindConfig, "selector.Resolve", fmt.Errorf("selection is empty after exclusion"))
	}
	return sel, nil
}

// Select returns the selected fields from record, in selection order,
// preserving duplicates. Out-of-range positions (from a record with
// fewer fields than the header, under flexible mode) yield an empty
// slice for that position rather than panicking.
func Select(sel Selection, record [][]byte) [][]byte {
	out := make([][]byte, len(sel))
	for i, pos := range sel {
		if pos >= 0 && pos < len(record) {
			out[i] = record[pos]
		} else {
			out[i] = []byte{}
		}
	}
	return out
}
