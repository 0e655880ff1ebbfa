package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qsvcore/qsvcore/internal/frequency"
	"github.com/qsvcore/qsvcore/internal/output"
	"github.com/qsvcore/qsvcore/internal/recordsrc"
)

func newFrequencyCmd() *cobra.Command {
	var (
		input             string
		outputPath        string
		selectExpr        string
		weightCol         string
		strategy          string
		ascending         bool
		limit             int
		distinctThreshold int64
		excludeNull       bool
		format            string
		delimiter         string
	)

	cmd := &cobra.Command{
		Use:   "frequency",
		Short: "tie-aware frequency-distribution builder",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := runContextFrom(cmd)

			src, err := recordsrc.Open(input, recordsrc.Options{Headers: true})
			if err != nil {
				return fmt.Errorf("opening %s: %w", input, err)
			}
			headers := src.Headers()

			sel, err := resolveSelection(selectExpr, headers)
			if err != nil {
				return err
			}

			weightIdx := -1
			if weightCol != "" {
				weightIdx = indexOf(headers, weightCol)
				if weightIdx < 0 {
					return fmt.Errorf("--weight-col: column %q not found", weightCol)
				}
			}

			strat, err := parseStrategy(strategy)
			if err != nil {
				return err
			}

			results, err := frequency.Run(src, frequency.RunOptions{
				Workers:           rc.MaxJobs,
				Selection:         sel,
				WeightColumn:      weightIdx,
				Strategy:          strat,
				Ascending:         ascending,
				Limit:             limit,
				DistinctThreshold: distinctThreshold,
				ExcludeNulls:      excludeNull,
			})
			if err != nil {
				return fmt.Errorf("running frequency: %w", err)
			}

			return writeFrequency(results, outputPath, format, delimiter)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "input CSV path (required)")
	cmd.Flags().StringVar(&outputPath, "output", "", "output path (required)")
	cmd.Flags().StringVar(&selectExpr, "select", "", "column selection expression (default: all columns)")
	cmd.Flags().StringVar(&weightCol, "weight-col", "", "column name holding per-row weights (default: unweighted counts)")
	cmd.Flags().StringVar(&strategy, "strategy", "dense", "tie-rank strategy: dense, min, max, ordinal, or average")
	cmd.Flags().BoolVar(&ascending, "ascending", false, "rank least-frequent first instead of most-frequent first")
	cmd.Flags().IntVar(&limit, "limit", 0, "positive N keeps the top N entries; negative -K retains entries with count >= K; 0 disables truncation. Either folds the rest into an Other bucket")
	cmd.Flags().Int64Var(&distinctThreshold, "distinct-threshold", 0, "only apply --limit to columns whose distinct-value count meets this (0 = always apply)")
	cmd.Flags().BoolVar(&excludeNull, "exclude-nulls", false, "exclude null values from the percentage denominator")
	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv, json, json-pretty, or row-encoded")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "output delimiter for the csv format (row-encoded output always uses '|')")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

func parseStrategy(s string) (frequency.Strategy, error) {
	switch strings.ToLower(s) {
	case "dense":
		return frequency.Dense, nil
	case "min":
		return frequency.Min, nil
	case "max":
		return frequency.Max, nil
	case "ordinal":
		return frequency.Ordinal, nil
	case "average":
		return frequency.Average, nil
	default:
		return 0, fmt.Errorf("--strategy: unknown strategy %q", s)
	}
}

func writeFrequency(results []frequency.ColumnResult, path, format, delimiter string) error {
	headers := []string{"field", "value", "count", "percentage", "rank", "is_other", "null_count", "total_rows"}
	var rows [][]string
	for _, res := range results {
		for _, e := range res.Entries {
			rows = append(rows, []string{
				res.Field, e.Value,
				strconv.FormatFloat(e.Count, 'g', -1, 64),
				strconv.FormatFloat(e.Percentage, 'g', -1, 64),
				strconv.FormatFloat(e.Rank, 'g', -1, 64),
				strconv.FormatBool(e.IsOther),
				strconv.FormatInt(res.NullCount, 10),
				strconv.FormatInt(res.TotalRows, 10),
			})
		}
	}

	w := output.NewWriter(output.Config{
		Path:      path,
		Format:    parseFormat(format),
		Delimiter: parseDelimiter(delimiter),
	})
	return w.WriteRows(headers, rows)
}
