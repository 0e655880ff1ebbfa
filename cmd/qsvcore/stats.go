package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qsvcore/qsvcore/internal/output"
	"github.com/qsvcore/qsvcore/internal/recordsrc"
	"github.com/qsvcore/qsvcore/internal/selector"
	"github.com/qsvcore/qsvcore/internal/statscache"
	"github.com/qsvcore/qsvcore/internal/statsengine"
	"github.com/qsvcore/qsvcore/internal/typeinfer"
)

func newStatsCmd() *cobra.Command {
	var (
		input       string
		outputPath  string
		selectExpr  string
		cardinality bool
		quantiles   bool
		percentiles string
		dateHints   string
		preferDMY   bool
		format      string
		delimiter   string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "single-pass parallel column profiler",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := runContextFrom(cmd)

			src, err := recordsrc.Open(input, recordsrc.Options{Headers: true})
			if err != nil {
				return fmt.Errorf("opening %s: %w", input, err)
			}

			sel, err := resolveSelection(selectExpr, src.Headers())
			if err != nil {
				return err
			}

			pcts, err := parseFloatList(percentiles)
			if err != nil {
				return fmt.Errorf("--percentiles: %w", err)
			}

			optsHash := statsOptionsHash(selectExpr, cardinality, quantiles, percentiles, dateHints, preferDMY, rc.AntimodesLen)
			fp, err := statscache.ComputeFingerprint(input, len(src.Headers()), optsHash)
			if err != nil {
				return err
			}

			var reports []*statsengine.Report
			cacheHit := false
			if rc.StatsCacheMode != "force" {
				if cached, current, err := statscache.Load(input, fp); err == nil && current &&
					statscache.Satisfies(cached, cardinality, quantiles) {
					reports = cached
					cacheHit = true
				}
			}

			if !cacheHit {
				tinfer := typeinfer.DefaultOptions()
				tinfer.PreferDMY = preferDMY
				tinfer.InferDates = dateHints != ""

				reports, err = statsengine.Run(src, statsengine.RunOptions{
					Workers:          rc.MaxJobs,
					Selection:        sel,
					TrackCardinality: cardinality,
					TrackQuantiles:   quantiles,
					Percentiles:      pcts,
					TypeInfer:        tinfer,
					DateHeaderHints:  splitNonEmpty(dateHints),
					AntimodesLen:     rc.AntimodesLen,
				})
				if err != nil {
					return fmt.Errorf("running stats: %w", err)
				}

				if rc.StatsCacheMode != "none" && len(reports) > 0 {
					rowCount := reports[0].Count + reports[0].NullCount
					if err := statscache.Store(input, fp, rowCount, reports); err != nil {
						rc.Logger.Warn("stats cache store failed", "err", err)
					}
				}
			}

			return writeReports(reports, outputPath, format, delimiter)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "input CSV path (required)")
	cmd.Flags().StringVar(&outputPath, "output", "", "output path (required)")
	cmd.Flags().StringVar(&selectExpr, "select", "", "column selection expression (default: all columns)")
	cmd.Flags().BoolVar(&cardinality, "cardinality", false, "track cardinality/mode/antimode (memory cost: one hash map per column)")
	cmd.Flags().BoolVar(&quantiles, "quantiles", false, "track quantiles/percentiles (memory cost: a retained value buffer per numeric column)")
	cmd.Flags().StringVar(&percentiles, "percentiles", "", "comma-separated percentile fractions, e.g. 0.25,0.5,0.75")
	cmd.Flags().StringVar(&dateHints, "date-hints", "", "comma-separated header-name substrings that mark a column date-like")
	cmd.Flags().BoolVar(&preferDMY, "prefer-dmy", false, "prefer day-first date formats over month-first")
	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv, json, json-pretty, or row-encoded")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "output delimiter for the csv format (row-encoded output always uses '|')")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func resolveSelection(expr string, headers []string) (selector.Selection, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	ast, err := selector.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("--select: %w", err)
	}
	sel, err := selector.Resolve(ast, headers)
	if err != nil {
		return nil, fmt.Errorf("--select: %w", err)
	}
	return sel, nil
}

func parseFloatList(s string) ([]float64, error) {
	fields := splitNonEmpty(s)
	if len(fields) == 0 {
		return nil, nil
	}
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// statsOptionsHash feeds statscache.Fingerprint.SchemaOptionsHash: any
// option that changes what a Report contains must also change the hash,
// or a stale cache would appear "current" for a differently-shaped run.
func statsOptionsHash(selectExpr string, cardinality, quantiles bool, percentiles, dateHints string, preferDMY bool, antimodesLen int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%t|%t|%s|%s|%t|%d", selectExpr, cardinality, quantiles, percentiles, dateHints, preferDMY, antimodesLen)
	return hex.EncodeToString(h.Sum(nil))
}

func reportHeaders() []string {
	return []string{
		"field", "type", "is_ascii", "null_count", "count", "max_precision",
		"n_neg", "n_zero", "n_pos", "sum", "sum_overflowed", "mean", "variance",
		"stddev", "sem", "cv", "geometric_mean", "harmonic_mean", "min", "max", "has_numeric_stat",
		"min_length", "max_length", "sum_length", "mean_length", "stddev_length",
		"variance_length", "cv_length",
		"first_value", "last_value", "longest_ascending_run", "longest_descending_run",
		"appears_sorted", "sort_direction", "sortiness",
		"sparsity", "uniqueness_ratio",
		"cardinality_known", "cardinality",
		"mode", "mode_count", "mode_occurrences", "antimode", "antimode_count", "antimode_occurrences",
		"quantile_sample_size", "q1", "q2_median", "q3", "iqr", "mad",
		"lower_inner_fence", "lower_outer_fence", "upper_inner_fence", "upper_outer_fence",
		"skewness", "percentiles",
	}
}

func reportRow(r *statsengine.Report) []string {
	pcts := make([]string, 0, len(r.Percentiles))
	for _, p := range r.Percentiles {
		pcts = append(pcts, fmt.Sprintf("%g:%g", p.Fraction, p.Value))
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		r.Field, r.Type, strconv.FormatBool(r.IsASCII), strconv.FormatInt(r.NullCount, 10),
		strconv.FormatInt(r.Count, 10), strconv.Itoa(r.MaxPrecision),
		strconv.FormatInt(r.NNeg, 10), strconv.FormatInt(r.NZero, 10), strconv.FormatInt(r.NPos, 10),
		f(r.Sum), strconv.FormatBool(r.SumOverflowed),
		f(r.Mean), f(r.Variance),
		f(r.StdDev), f(r.SEM), f(r.CV), f(r.GeometricMean),
		f(r.HarmonicMean), f(r.Min),
		f(r.Max), strconv.FormatBool(r.HasNumericStat),
		strconv.Itoa(r.MinLength), strconv.Itoa(r.MaxLength), strconv.FormatInt(r.SumLength, 10),
		f(r.MeanLength), f(r.StdDevLength),
		f(r.VarianceLength), f(r.CVLength),
		r.FirstValue, r.LastValue,
		strconv.FormatInt(r.LongestAscendingRun, 10), strconv.FormatInt(r.LongestDescendingRun, 10),
		strconv.FormatBool(r.AppearsSorted), r.SortDirection, f(r.Sortiness),
		f(r.Sparsity), f(r.UniquenessRatio),
		strconv.FormatBool(r.CardinalityKnown), strconv.FormatInt(r.Cardinality, 10),
		r.Mode, strconv.FormatInt(r.ModeCount, 10), strconv.FormatInt(r.ModeOccurrences, 10),
		r.Antimode, strconv.FormatInt(r.AntimodeCount, 10), strconv.FormatInt(r.AntimodeOccurrences, 10),
		strconv.Itoa(r.QuantileSampleSize), f(r.Q1), f(r.Median), f(r.Q3), f(r.IQR), f(r.MAD),
		f(r.LowerInnerFence), f(r.LowerOuterFence), f(r.UpperInnerFence), f(r.UpperOuterFence),
		f(r.Skewness), strings.Join(pcts, ";"),
	}
}

func writeReports(reports []*statsengine.Report, path, format, delimiter string) error {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, reportRow(r))
	}

	w := output.NewWriter(output.Config{
		Path:      path,
		Format:    parseFormat(format),
		Delimiter: parseDelimiter(delimiter),
	})
	return w.WriteRows(reportHeaders(), rows)
}

func parseFormat(s string) output.Format {
	switch strings.ToLower(s) {
	case "json":
		return output.FormatJSONCompact
	case "json-pretty":
		return output.FormatJSONPretty
	case "row-encoded":
		return output.FormatRowEncoded
	default:
		return output.FormatCSV
	}
}

func parseDelimiter(s string) rune {
	switch s {
	case "\\t", "tab":
		return '\t'
	case ";":
		return ';'
	default:
		if len(s) == 1 {
			return rune(s[0])
		}
		return ','
	}
}
