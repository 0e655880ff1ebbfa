// Package simd provides bitmap-based delimiter scanning for CSV chunks:
// one bit per input byte, set when that byte is a quote, a separator, or
// a newline. Callers iterate set bits with math/bits.TrailingZeros64.
//
// The teacher's retrieved snapshot carried two incompatible scanning
// APIs (a bitmap one actually called by its scanner, and a second,
// unused word-counting one guarded by undeclared assembly kernels).
// Only the bitmap API is kept here, generalized from a hardcoded comma
// to any configured single-byte separator.
package simd

// Scan scans input and sets bits in quotes/commas/newlines for '"', ',',
// and '\n' respectively. Bitmaps must be pre-allocated with length
// >= (len(input)+63)/64.
func Scan(input []byte, quotes, commas, newlines []uint64) {
	ScanWithSeparator(input, ',', quotes, commas, newlines)
}

// ScanWithSeparator is Scan generalized to an arbitrary separator byte,
// so the record source can serve semicolon- or tab-delimited inputs with
// the same scan loop.
func ScanWithSeparator(input []byte, sep byte, quotes, seps, newlines []uint64) {
	for i, b := range input {
		wordIdx := i / 64
		bitPos := uint(i % 64)
		switch b {
		case '"':
			quotes[wordIdx] |= 1 << bitPos
		case sep:
			seps[wordIdx] |= 1 << bitPos
		case '\n':
			newlines[wordIdx] |= 1 << bitPos
		}
	}
}
