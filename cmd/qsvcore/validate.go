package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qsvcore/qsvcore/internal/output"
	"github.com/qsvcore/qsvcore/internal/recordsrc"
	"github.com/qsvcore/qsvcore/internal/validate"
)

func newValidateCmd() *cobra.Command {
	var (
		input      string
		schemaPath string
		outputPath string
		failFast   bool
		format     string
		delimiter  string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "JSON-Schema-driven row validator, with an RFC 4180/UTF-8 fallback when no schema is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := runContextFrom(cmd)

			src, err := recordsrc.Open(input, recordsrc.Options{Headers: true})
			if err != nil {
				return fmt.Errorf("opening %s: %w", input, err)
			}

			if schemaPath == "" {
				result, err := validate.CheckConformance(src, rc.MaxJobs)
				if err != nil {
					return fmt.Errorf("running conformance check: %w", err)
				}
				return writeConformance(result, outputPath, format, delimiter)
			}

			doc, err := os.ReadFile(schemaPath)
			if err != nil {
				return fmt.Errorf("reading schema %s: %w", schemaPath, err)
			}
			cs, err := validate.Compile("file://"+schemaPath, doc)
			if err != nil {
				return fmt.Errorf("compiling schema: %w", err)
			}

			outcomes, err := validate.Run(cmd.Context(), src, cs, validate.RunOptions{
				Workers:  rc.MaxJobs,
				FailFast: failFast,
			})
			if err != nil {
				return fmt.Errorf("running validate: %w", err)
			}

			return writeOutcomes(outcomes, outputPath, format, delimiter)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "input CSV path (required)")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "JSON-Schema document path (omit for a schema-less RFC 4180/UTF-8 conformance check)")
	cmd.Flags().StringVar(&outputPath, "output", "", "output path (required)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first invalid record")
	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv, json, json-pretty, or row-encoded")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "output delimiter for the csv format (row-encoded output always uses '|')")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func writeOutcomes(outcomes []validate.Outcome, path, format, delimiter string) error {
	headers := []string{"record_num", "offset", "valid", "errors"}
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{
			strconv.FormatInt(o.RecordNum, 10),
			strconv.FormatInt(o.Offset, 10),
			strconv.FormatBool(o.Valid),
			strings.Join(o.Errors, "; "),
		})
	}

	w := output.NewWriter(output.Config{
		Path:      path,
		Format:    parseFormat(format),
		Delimiter: parseDelimiter(delimiter),
	})
	return w.WriteRows(headers, rows)
}

func writeConformance(result validate.ConformanceResult, path, format, delimiter string) error {
	headers := []string{"valid", "invalid_record_offset"}
	var rows [][]string
	if len(result.InvalidRecords) == 0 {
		rows = append(rows, []string{strconv.FormatBool(result.Valid), ""})
	} else {
		for _, offset := range result.InvalidRecords {
			rows = append(rows, []string{strconv.FormatBool(result.Valid), strconv.FormatInt(offset, 10)})
		}
	}

	w := output.NewWriter(output.Config{
		Path:      path,
		Format:    parseFormat(format),
		Delimiter: parseDelimiter(delimiter),
	})
	return w.WriteRows(headers, rows)
}
