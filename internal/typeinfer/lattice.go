// Package typeinfer implements spec.md §3's column type lattice and the
// fallible byte->variant coercions that feed it. No teacher file has a
// typed value sum type (the teacher only ever touches []byte/string);
// this is clean-room code following the teacher's preference for small
// unexported-constant enums with a String() method (see query/filter.go's
// FilterOp).
package typeinfer

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Type is a node in the column type lattice:
// Null ⊑ Integer ⊑ Float ⊑ String, Null ⊑ Date ⊑ DateTime ⊑ String, Null ⊑ Boolean ⊑ String.
type Type int

const (
	Null Type = iota
	Integer
	Float
	Date
	DateTime
	Boolean
	String // top
)

func (t Type) String() string {
	switch t {
	case Null:
		return "Null"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case Date:
		return "Date"
	case DateTime:
		return "DateTime"
	case Boolean:
		return "Boolean"
	default:
		return "String"
	}
}

// Merge computes the least upper bound of a and b under the lattice
// rule: String is top, Null is identity, Integer ⊑ Float, Date ⊑ DateTime.
// Commutative and associative, as spec.md §3 requires.
func Merge(a, b Type) Type {
	if a == Null {
		return b
	}
	if b == Null {
		return a
	}
	if a == b {
		return a
	}
	if (a == Integer && b == Float) || (a == Float && b == Integer) {
		return Float
	}
	if (a == Date && b == DateTime) || (a == DateTime && b == Date) {
		return DateTime
	}
	return String
}

// dateFormats are tried in order; under PreferDMY the day-first formats
// are moved ahead of the month-first ones per spec.md §4.4.
var dateFormatsMDY = []string{"01/02/2006", "2006-01-02", "01-02-2006"}
var dateFormatsDMY = []string{"02/01/2006", "2006-01-02", "02-01-2006"}

var dateTimeFormatsMDY = []string{"01/02/2006 15:04:05", "2006-01-02T15:04:05Z07:00", "2006-01-02 15:04:05"}
var dateTimeFormatsDMY = []string{"02/01/2006 15:04:05", "2006-01-02T15:04:05Z07:00", "02-01-2006 15:04:05"}

// Options controls type inference behavior that is not purely structural.
type Options struct {
	// InferDates bounds date/datetime inference to header-name
	// substrings, since arbitrary strings can ambiguously parse as dates.
	InferDates      bool
	DateHeaderHints []string // substrings such as "date", "time", "_at", "dob"
	PreferDMY       bool

	TruthyValues []string // lowercased; default {"true","t","yes","y","1"}
	FalsyValues  []string // lowercased; default {"false","f","no","n","0"}
}

// DefaultOptions returns the boolean truthy/falsy pairs spec.md §3
// implies ("every value matches a configured truthy/falsy pattern pair").
func DefaultOptions() Options {
	return Options{
		TruthyValues: []string{"true", "t", "yes", "y", "1"},
		FalsyValues:  []string{"false", "f", "no", "n", "0"},
	}
}

// InferValue classifies a single raw field under opts, given whether the
// owning column's header matched a date-hint substring. It never returns
// Boolean, and no caller in this module promotes a column to Boolean:
// truthy/falsy columns are typed Integer (for "1"/"0") or String.
func InferValue(raw []byte, headerIsDateLike bool, opts Options) Type {
	if len(raw) == 0 {
		return Null
	}
	s := string(raw)

	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Integer
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return Float
	}
	if opts.InferDates && headerIsDateLike {
		if isDateTime(s, opts.PreferDMY) {
			return DateTime
		}
		if isDate(s, opts.PreferDMY) {
			return Date
		}
	}
	return String
}

func isDate(s string, preferDMY bool) bool {
	formats := dateFormatsMDY
	if preferDMY {
		formats = append(append([]string(nil), dateFormatsDMY...), dateFormatsMDY...)
	}
	for _, f := range formats {
		if _, err := time.Parse(f, s); err == nil {
			return true
		}
	}
	return false
}

func isDateTime(s string, preferDMY bool) bool {
	formats := dateTimeFormatsMDY
	if preferDMY {
		formats = append(append([]string(nil), dateTimeFormatsDMY...), dateTimeFormatsMDY...)
	}
	for _, f := range formats {
		if _, err := time.Parse(f, s); err == nil {
			return true
		}
	}
	return false
}

// IsTruthyOrFalsy reports whether s matches one of opts' configured
// patterns (case-insensitive), and which.
func IsTruthyOrFalsy(s string, opts Options) (truthy, matched bool) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, v := range opts.TruthyValues {
		if lower == v {
			return true, true
		}
	}
	for _, v := range opts.FalsyValues {
		if lower == v {
			return false, true
		}
	}
	return false, false
}

// IsASCII reports whether every byte of raw is ASCII (<=0x7F); used for
// the stats record's is_ascii field.
func IsASCII(raw []byte) bool {
	for _, b := range raw {
		if b > 0x7F {
			return false
		}
	}
	return true
}

// RuneLen returns the UTF-8 character length of raw, falling back to
// byte length when raw is not valid UTF-8, per spec.md §4.4's length
// accumulator fallback.
func RuneLen(raw []byte) int {
	if utf8.Valid(raw) {
		return utf8.RuneCount(raw)
	}
	return len(raw)
}

// MaxPrecision returns the number of digits after the first '.' in s,
// not counting trailing zeros, or 0 when s has no '.' (spec.md §3's
// max_precision). s is not checked to be a number.
func MaxPrecision(s string) int {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	frac := s[dot+1:]
	frac = strings.TrimRight(frac, "0")
	return len(frac)
}
