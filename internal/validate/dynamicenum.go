package validate

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/qsvcore/qsvcore/internal/common"
)

// DynamicEnumSpec is a parsed `dynamicEnum` reference, per spec.md
// §4.7's syntax `[name[;ttl_seconds]|]uri[|column]`.
type DynamicEnumSpec struct {
	Name    string // cache key; defaults to uri if unset
	TTL     time.Duration
	URI     string
	Column  string // name or 0-based index; empty means column 0
}

// DefaultDynamicEnumTTL is used when the reference omits `;ttl_seconds`.
const DefaultDynamicEnumTTL = 3600 * time.Second

// DefaultFetchTimeout bounds a `dynamicEnum` HTTP fetch, per spec.md §5.
const DefaultFetchTimeout = 30 * time.Second

// ParseDynamicEnumRef parses `[name[;ttl_seconds]|]uri[|column]`.
func ParseDynamicEnumRef(ref string) (DynamicEnumSpec, error) {
	parts := strings.Split(ref, "|")
	spec := DynamicEnumSpec{TTL: DefaultDynamicEnumTTL}

	switch len(parts) {
	case 1:
		spec.URI = parts[0]
	case 2:
		spec.URI = parts[0]
		spec.Column = parts[1]
	case 3:
		nameTTL := parts[0]
		if semi := strings.IndexByte(nameTTL, ';'); semi >= 0 {
			spec.Name = nameTTL[:semi]
			secs, err := strconv.Atoi(nameTTL[semi+1:])
			if err != nil {
				return DynamicEnumSpec{}, fmt.Errorf("dynamicEnum: bad ttl_seconds in %q: %w", ref, err)
			}
			spec.TTL = time.Duration(secs) * time.Second
		} else {
			spec.Name = nameTTL
		}
		spec.URI = parts[1]
		spec.Column = parts[2]
	default:
		return DynamicEnumSpec{}, fmt.Errorf("dynamicEnum: malformed reference %q", ref)
	}
	if spec.Name == "" {
		spec.Name = spec.URI
	}
	return spec, nil
}

// entry is one cached reference set, ttl-aged from LoadedAt.
type entry struct {
	set      map[string]struct{}
	bloom    *common.BloomFilter
	loadedAt time.Time
	ttl      time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.loadedAt) > e.ttl
}

// DynamicEnumCache loads and ages `dynamicEnum` reference sets, guarded
// by a mutex per the teacher's updatemgr.Manager sidecar-reload pattern
// (RWMutex-guarded map, reload-on-stale), generalized here from a single
// JSON sidecar to many independently-keyed, independently-ttl'd sets. A
// bloom filter (internal/common.BloomFilter) pre-checks membership so a
// hot validation loop against a large reference set rarely needs the
// full map lookup.
type DynamicEnumCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	client  *http.Client
}

// NewDynamicEnumCache creates an empty cache. timeout bounds HTTP
// fetches for http(s):// URIs; 0 uses DefaultFetchTimeout.
func NewDynamicEnumCache(timeout time.Duration) *DynamicEnumCache {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &DynamicEnumCache{
		entries: make(map[string]*entry),
		client:  &http.Client{Timeout: timeout},
	}
}

// Contains reports whether value is present in the reference set named
// by spec, loading or refreshing it first if the cached copy is missing
// or aged out.
func (c *DynamicEnumCache) Contains(ctx context.Context, spec DynamicEnumSpec, value string) (bool, error) {
	e, err := c.getOrLoad(ctx, spec)
	if err != nil {
		return false, err
	}
	if e.bloom != nil && !e.bloom.MightContain(value) {
		return false, nil
	}
	_, ok := e.set[value]
	return ok, nil
}

func (c *DynamicEnumCache) getOrLoad(ctx context.Context, spec DynamicEnumSpec) (*entry, error) {
	now := time.Now()

	c.mu.RLock()
	e, ok := c.entries[spec.Name]
	c.mu.RUnlock()
	if ok && !e.expired(now) {
		return e, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check under the write lock: another goroutine may have refreshed
	// this entry while we were waiting.
	if e, ok := c.entries[spec.Name]; ok && !e.expired(now) {
		return e, nil
	}

	set, err := loadReferenceSet(ctx, c.client, spec)
	if err != nil {
		return nil, err
	}
	bloom := common.NewBloomFilter(len(set)+1, 0.01)
	for v := range set {
		bloom.Add(v)
	}
	newEntry := &entry{set: set, bloom: bloom, loadedAt: now, ttl: spec.TTL}
	c.entries[spec.Name] = newEntry
	return newEntry, nil
}

// loadReferenceSet reads spec.Column (by name or 0-based index, default
// 0) from a local path or http(s) URL into a string set.
func loadReferenceSet(ctx context.Context, client *http.Client, spec DynamicEnumSpec) (map[string]struct{}, error) {
	var r *bufio.Scanner
	var closeFn func()

	switch {
	case strings.HasPrefix(spec.URI, "http://"), strings.HasPrefix(spec.URI, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.URI, nil)
		if err != nil {
			return nil, fmt.Errorf("dynamicEnum: building request for %q: %w", spec.URI, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("dynamicEnum: fetching %q: %w", spec.URI, err)
		}
		r = bufio.NewScanner(resp.Body)
		closeFn = func() { resp.Body.Close() }
	default:
		f, err := os.Open(spec.URI)
		if err != nil {
			return nil, fmt.Errorf("dynamicEnum: opening %q: %w", spec.URI, err)
		}
		r = bufio.NewScanner(f)
		closeFn = func() { f.Close() }
	}
	defer closeFn()
	r.Buffer(make([]byte, 64*1024), 16*1024*1024)

	colIdx := 0
	if spec.Column != "" {
		if n, err := strconv.Atoi(spec.Column); err == nil {
			colIdx = n
		}
	}

	set := make(map[string]struct{})
	lineNo := 0
	headerNames := map[string]int{}
	for r.Scan() {
		line := r.Text()
		fields := strings.Split(line, ",")
		if lineNo == 0 {
			for i, h := range fields {
				headerNames[strings.TrimSpace(h)] = i
			}
			if spec.Column != "" {
				if idx, ok := headerNames[spec.Column]; ok {
					colIdx = idx
				}
			}
			lineNo++
			continue
		}
		if colIdx >= 0 && colIdx < len(fields) {
			set[strings.TrimSpace(fields[colIdx])] = struct{}{}
		}
		lineNo++
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("dynamicEnum: reading %q: %w", spec.URI, err)
	}
	return set, nil
}
