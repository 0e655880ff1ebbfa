// Package common - Bloom Filter fast-reject for dynamic enum validation
//
// BloomFilter provides a cheap "definitely not a member" pre-check in front
// of validate.DynamicEnumCache's full map lookup: MightContain returning
// false lets the cache skip the map probe of the already-loaded value set.
// It answers: "Is this key DEFINITELY NOT in the set?" with 100% accuracy.
//
// The algorithm uses double hashing with CRC32, kept in-memory only for the
// lifetime of one enum cache entry — it is never persisted to disk.
package common

import (
	"hash/crc32"
)

// BloomFilter implements a space-efficient probabilistic set
type BloomFilter struct {
	bits      []byte // Bit array
	size      int    // Size in bits
	hashCount int    // Number of hash functions
	count     int    // Number of elements added
}

// NewBloomFilter creates a bloom filter optimized for expected elements and FP rate
//
// Parameters:
//   - n: Expected number of elements
//   - fpRate: Desired false positive rate (0.01 = 1%)
//
// The optimal parameters are calculated using:
//   - m (bits) = -n * ln(p) / (ln(2)^2)
//   - k (hashes) = (m/n) * ln(2)
func NewBloomFilter(n int, fpRate float64) *BloomFilter {
	if n < 1 {
		n = 1
	}
	if fpRate <= 0 {
		fpRate = 0.01
	}

	// Calculate optimal size: m = -n * ln(p) / (ln(2)^2)
	// ln(2)^2 ≈ 0.4804
	// For 1% FP rate: m ≈ 9.6n bits
	m := int(-float64(n) * ln(fpRate) / 0.4804)
	if m < 1024 {
		m = 1024
	}
	m = ((m + 7) / 8) * 8 // Round to bytes

	// Calculate optimal hash count: k = (m/n) * ln(2)
	// ln(2) ≈ 0.693
	k := int(float64(m) / float64(n) * 0.693)
	if k < 1 {
		k = 1
	}
	if k > 10 {
		k = 10 // Cap at 10 hashes for performance
	}

	return &BloomFilter{
		bits:      make([]byte, m/8),
		size:      m,
		hashCount: k,
		count:     0,
	}
}

// ln returns natural logarithm (approximation sufficient for bloom filter)
func ln(x float64) float64 {
	// Use log approximation: ln(x) = 2.302585 * log10(x)
	// For our use case, we can use a simpler calculation
	if x == 0.01 {
		return -4.605 // ln(0.01)
	}
	if x == 0.001 {
		return -6.907 // ln(0.001)
	}
	// General approximation
	result := 0.0
	for x > 1 {
		x /= 2.718
		result += 1
	}
	return result + (x - 1)
}

// Add inserts a key into the filter
func (bf *BloomFilter) Add(key string) {
	// Inline getPositions logic to avoid allocs
	// First hash: CRC32 of key
	keyBytes := []byte(key)
	h1 := crc32.ChecksumIEEE(keyBytes)

	// Second hash: CRC32 of reversed key + salt
	var buf [256]byte
	reversed := appendReversed(buf[:0], keyBytes)
	reversed = append(reversed, "salt"...)
	h2 := crc32.ChecksumIEEE(reversed)

	for i := 0; i < bf.hashCount; i++ {
		combined := int(h1) + i*int(h2)
		if combined < 0 {
			combined = -combined
		}
		pos := combined % bf.size
		byteIdx := pos / 8
		bitIdx := pos % 8
		bf.bits[byteIdx] |= (1 << bitIdx)
	}
	bf.count++
}

// MightContain checks if a key might be in the set
//
// Returns:
//   - false: Key is DEFINITELY NOT in the set (100% accurate)
//   - true: Key MIGHT be in the set (with configured false positive rate)
func (bf *BloomFilter) MightContain(key string) bool {
	// Inline getPositions logic
	keyBytes := []byte(key)
	h1 := crc32.ChecksumIEEE(keyBytes)

	var buf [256]byte
	reversed := appendReversed(buf[:0], keyBytes)
	reversed = append(reversed, "salt"...)
	h2 := crc32.ChecksumIEEE(reversed)

	for i := 0; i < bf.hashCount; i++ {
		combined := int(h1) + i*int(h2)
		if combined < 0 {
			combined = -combined
		}
		pos := combined % bf.size
		byteIdx := pos / 8
		bitIdx := pos % 8
		if (bf.bits[byteIdx] & (1 << bitIdx)) == 0 {
			return false // Definitely not in set
		}
	}
	return true // Possibly in set
}

// appendReversed works on []byte to avoid []rune alloc for ASCII keys
func appendReversed(dst []byte, s []byte) []byte {
	start := len(dst)
	dst = append(dst, s...)
	// Reverse the appended part
	for i, j := start, len(dst)-1; i < j; i, j = i+1, j-1 {
		dst[i], dst[j] = dst[j], dst[i]
	}
	return dst
}
