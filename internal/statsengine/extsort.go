package statsengine

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/pierrec/lz4/v4"
)

// QuantileSorter spills a numeric column's quantile buffer to disk in
// sorted chunks and k-way merges them; Finalize uses it once the in-memory
// buffer exceeds QuantileSpillThreshold. Adapted from indexer.Sorter's
// chunked-flush + manualHeap k-way merge, generalized from sorting fixed
// 64-byte index keys to sorting float64 values with no "distinct key"
// bookkeeping (quantiles need the full multiset, duplicates included).
type QuantileSorter struct {
	tempDir    string
	chunkSize  int
	buffer     []float64
	chunkFiles []string
	total      int64
}

// NewQuantileSorter creates a spill sorter; chunkSize is the number of
// float64 values buffered in memory before a chunk is flushed (Finalize
// passes FinalizeOptions.SpillChunkSize, defaulting to 250k values).
func NewQuantileSorter(tempDir string, chunkSize int) *QuantileSorter {
	if chunkSize < 1 {
		chunkSize = 1000
	}
	return &QuantileSorter{tempDir: tempDir, chunkSize: chunkSize, buffer: make([]float64, 0, chunkSize)}
}

// Add appends one value, flushing a sorted chunk to disk when the buffer fills.
func (q *QuantileSorter) Add(v float64) error {
	q.buffer = append(q.buffer, v)
	q.total++
	if len(q.buffer) >= q.chunkSize {
		return q.flush()
	}
	return nil
}

func (q *QuantileSorter) flush() error {
	if len(q.buffer) == 0 {
		return nil
	}
	sortFloat64s(q.buffer)

	path := filepath.Join(q.tempDir, fmt.Sprintf("qsvcore-quantile-%d.tmp", len(q.chunkFiles)))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("quantile spill: %w", err)
	}
	defer f.Close()

	lzw := lz4.NewWriter(f)
	bw := bufio.NewWriterSize(lzw, 256*1024)
	var buf [8]byte
	for _, v := range q.buffer {
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := lzw.Close(); err != nil {
		return err
	}

	q.chunkFiles = append(q.chunkFiles, path)
	q.buffer = q.buffer[:0]
	return nil
}

// heapItem is one candidate value in the k-way merge's min-heap.
type heapItem struct {
	value  float64
	source int
}

// valueHeap is a manual binary min-heap, same shape as indexer's
// manualHeap, avoiding container/heap's interface boxing.
type valueHeap []heapItem

func (h valueHeap) Len() int            { return len(h) }
func (h valueHeap) less(i, j int) bool  { return h[i].value < h[j].value }
func (h valueHeap) swap(i, j int)       { h[i], h[j] = h[j], h[i] }

func (h *valueHeap) push(x heapItem) {
	*h = append(*h, x)
	h.up(len(*h) - 1)
}

func (h *valueHeap) pop() heapItem {
	old := *h
	n := len(old)
	x := old[0]
	old[0] = old[n-1]
	*h = old[:n-1]
	h.down(0, n-1)
	return x
}

func (h *valueHeap) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !h.less(j, i) {
			break
		}
		h.swap(i, j)
		j = i
	}
}

func (h *valueHeap) down(i0, n int) {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.less(j2, j1) {
			j = j2
		}
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		i = j
	}
}

// Finalize k-way merges all spilled chunks plus any unflushed tail,
// invoking visit(v) for every value in ascending order, then removes the
// temp files. If no chunk was ever spilled, it sorts and visits the
// in-memory buffer directly with no disk I/O.
func (q *QuantileSorter) Finalize(visit func(v float64)) (err error) {
	if len(q.chunkFiles) == 0 {
		sortFloat64s(q.buffer)
		for _, v := range q.buffer {
			visit(v)
		}
		return nil
	}
	if err := q.flush(); err != nil {
		return err
	}

	k := len(q.chunkFiles)
	files := make([]*os.File, k)
	readers := make([]*bufio.Reader, k)
	defer func() {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
		q.Cleanup()
	}()

	for i, path := range q.chunkFiles {
		f, ferr := os.Open(path)
		if ferr != nil {
			return fmt.Errorf("quantile merge: %w", ferr)
		}
		files[i] = f
		readers[i] = bufio.NewReaderSize(lz4.NewReader(f), 64*1024)
	}

	h := make(valueHeap, 0, k)
	for i := 0; i < k; i++ {
		if v, ok := readValue(readers[i]); ok {
			h.push(heapItem{value: v, source: i})
		}
	}

	for len(h) > 0 {
		item := h.pop()
		visit(item.value)
		if v, ok := readValue(readers[item.source]); ok {
			h.push(heapItem{value: v, source: item.source})
		}
	}
	return nil
}

// Cleanup removes any spilled chunk files without merging.
func (q *QuantileSorter) Cleanup() {
	for _, p := range q.chunkFiles {
		os.Remove(p)
	}
	q.chunkFiles = nil
}

func readValue(r *bufio.Reader) (float64, bool) {
	var buf [8]byte
	if _, err := ioReadFull(r, buf[:]); err != nil {
		return 0, false
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[:])), true
}

func ioReadFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func sortFloat64s(vs []float64) {
	sort.Float64s(vs)
}
