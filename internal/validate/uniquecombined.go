package validate

import (
	"strings"
	"sync"
)

// CombinedUniquenessChecker enforces spec.md §4.7's `uniqueCombinedWith`:
// records that share a pipe-joined combined value across a configured
// column group fail validation. Guarded by a reader-writer lock per
// spec.md §5: "readers check for membership (no lock upgrade), writers
// insert under the write lock" — grounded directly on the teacher's
// updatemgr.Manager sync.RWMutex usage.
type CombinedUniquenessChecker struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewCombinedUniquenessChecker creates an empty seen-set.
func NewCombinedUniquenessChecker() *CombinedUniquenessChecker {
	return &CombinedUniquenessChecker{seen: make(map[string]struct{})}
}

// CombinedKey joins values with a pipe, per spec.md §4.7.
func CombinedKey(values []string) string {
	return strings.Join(values, "|")
}

// CheckAndInsert reports whether key was already seen; if not, it
// inserts it and returns false (i.e. "not a duplicate"). The read
// fast-path avoids acquiring the write lock in the common case of no
// collision, at the cost of a fast-path miss doing a second lookup
// after upgrading to a write lock (no atomic upgrade is taken directly
// since sync.RWMutex has none).
func (c *CombinedUniquenessChecker) CheckAndInsert(key string) (duplicate bool) {
	c.mu.RLock()
	_, exists := c.seen[key]
	c.mu.RUnlock()
	if exists {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.seen[key]; exists {
		return true
	}
	c.seen[key] = struct{}{}
	return false
}

// Reset clears the seen-set, for reuse across an unrelated run.
func (c *CombinedUniquenessChecker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = make(map[string]struct{})
}
