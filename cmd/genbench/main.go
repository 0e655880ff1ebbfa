// Command genbench generates a synthetic CSV spanning the full type
// lattice (integers, floats, booleans, dates, and strings; the float and
// boolean columns carry an occasional null) and times stats, frequency,
// and validate conformance
// passes over it. Adapted from cmd/benchmark's single-purpose indexer
// benchmark: same generate-then-time structure, a wider schema, and the
// three engines this repo actually ships in place of the dropped
// indexer.
package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/qsvcore/qsvcore/internal/frequency"
	"github.com/qsvcore/qsvcore/internal/recordsrc"
	"github.com/qsvcore/qsvcore/internal/statsengine"
	"github.com/qsvcore/qsvcore/internal/validate"
)

func main() {
	sizeMB := 500
	if len(os.Args) >= 2 {
		fmt.Sscanf(os.Args[1], "%d", &sizeMB)
	}
	if sizeMB <= 0 {
		sizeMB = 500
	}

	fmt.Printf("Generating %d MB CSV...\n", sizeMB)
	tmpDir, err := os.MkdirTemp("", "qsvcore_genbench")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	csvPath := filepath.Join(tmpDir, "bench.csv")
	bytesWritten, rows := generateCSV(csvPath, int64(sizeMB)*1024*1024)
	fmt.Printf("Generated %d rows (%.2f MB)\n", rows, float64(bytesWritten)/1024/1024)

	workers := runtime.NumCPU()

	runBenchmark("stats", bytesWritten, func() error {
		src, err := recordsrc.Open(csvPath, recordsrc.Options{Headers: true})
		if err != nil {
			return err
		}
		_, err = statsengine.Run(src, statsengine.RunOptions{
			Workers:          workers,
			TrackCardinality: true,
			TrackQuantiles:   true,
			Percentiles:      []float64{0.25, 0.5, 0.75, 0.9},
			DateHeaderHints:  []string{"date"},
		})
		return err
	})

	runBenchmark("frequency", bytesWritten, func() error {
		src, err := recordsrc.Open(csvPath, recordsrc.Options{Headers: true})
		if err != nil {
			return err
		}
		_, err = frequency.Run(src, frequency.RunOptions{
			Workers:      workers,
			WeightColumn: -1,
			Strategy:     frequency.Dense,
			Limit:        10,
		})
		return err
	})

	runBenchmark("validate (conformance)", bytesWritten, func() error {
		src, err := recordsrc.Open(csvPath, recordsrc.Options{Headers: true})
		if err != nil {
			return err
		}
		_, err = validate.CheckConformance(src, workers)
		return err
	})
}

// genColumn describes one synthetic column: its header and a generator
// producing the textual field value for a given row index. Returning ""
// stands for a null field, matching recordsrc's empty-field convention.
type genColumn struct {
	header string
	gen    func(rng *rand.Rand, row int) string
}

var benchColumns = []genColumn{
	{"id", func(rng *rand.Rand, row int) string {
		return fmt.Sprintf("%d", row)
	}},
	{"code", func(rng *rand.Rand, row int) string {
		return fmt.Sprintf("US-%d", rng.Intn(1000))
	}},
	{"amount", func(rng *rand.Rand, row int) string {
		if rng.Intn(200) == 0 {
			return ""
		}
		return fmt.Sprintf("%.2f", rng.Float64()*10000)
	}},
	{"active", func(rng *rand.Rand, row int) string {
		if rng.Intn(50) == 0 {
			return ""
		}
		if rng.Intn(2) == 0 {
			return "true"
		}
		return "false"
	}},
	{"signup_date", func(rng *rand.Rand, row int) string {
		base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
		d := base.AddDate(0, 0, rng.Intn(3650))
		return d.Format("2006-01-02")
	}},
	{"description", func(rng *rand.Rand, row int) string {
		return fmt.Sprintf("\"Description for item %d with some padding to make it longer\"", row)
	}},
}

func generateCSV(path string, limit int64) (int64, int) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 64*1024)

	for i, col := range benchColumns {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteString(col.header)
	}
	w.WriteByte('\n')

	rng := rand.New(rand.NewSource(123))
	buf := make([]byte, 0, 1024)
	bytesWritten := int64(0)
	rows := 0

	for bytesWritten < limit {
		rows++
		buf = buf[:0]
		for i, col := range benchColumns {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, col.gen(rng, rows)...)
		}
		buf = append(buf, '\n')

		n, _ := w.Write(buf)
		bytesWritten += int64(n)
	}
	w.Flush()
	return bytesWritten, rows
}

func runBenchmark(name string, bytesWritten int64, fn func() error) {
	fmt.Printf("Starting %s scan...\n", name)
	start := time.Now()
	if err := fn(); err != nil {
		panic(fmt.Errorf("%s: %w", name, err))
	}
	elapsed := time.Since(start)

	mbPerSec := float64(bytesWritten) / 1024 / 1024 / elapsed.Seconds()
	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("%-24s Throughput: %.2f MB/s   Time: %v\n", name, mbPerSec, elapsed)
	fmt.Printf("--------------------------------------------------\n")
}
