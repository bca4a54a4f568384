// analyze-file runs the full analysis pipeline over a local FIT or GPX file
// and prints the result as JSON, or exports the point table as CSV/Parquet.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/coursescope/server/pkg/domain/activity"
	"github.com/coursescope/server/pkg/domain/analysis"
	"github.com/coursescope/server/pkg/domain/fit_parser"
	"github.com/coursescope/server/pkg/domain/gpx_parser"
	"github.com/coursescope/server/pkg/domain/telemetry"
	"github.com/coursescope/server/pkg/export"
	"github.com/coursescope/server/pkg/narrative"
)

func main() {
	format := flag.String("format", "json", "output format: json, csv or parquet")
	out := flag.String("o", "", "output path (default stdout; required for parquet)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: analyze-file [-format json|csv|parquet] [-o path] <activity-file>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	input := flag.Arg(0)

	data, err := os.ReadFile(input)
	if err != nil {
		fatal("reading %s: %v", input, err)
	}

	tbl, meta, err := parseFile(input, data)
	if err != nil {
		fatal("parsing %s: %v", input, err)
	}

	res, err := analysis.Analyze(tbl, analysis.Params{})
	if err != nil {
		fatal("analyzing %s: %v", input, err)
	}

	switch *format {
	case "json":
		text, _ := narrative.TemplateGenerator{}.Generate(context.Background(), meta, res)
		report := struct {
			Activity  *activity.Metadata `json:"activity"`
			Narrative string             `json:"narrative"`
			Result    *analysis.Result   `json:"result"`
		}{meta, text, res}
		enc := json.NewEncoder(outputWriter(*out))
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fatal("encoding report: %v", err)
		}
	case "csv":
		if err := export.WritePointsCSV(outputWriter(*out), tbl, res.Derived); err != nil {
			fatal("writing csv: %v", err)
		}
	case "parquet":
		if *out == "" {
			fatal("parquet output needs -o <path>")
		}
		blob, err := export.MarshalPointsParquet(tbl, res.Derived)
		if err != nil {
			fatal("writing parquet: %v", err)
		}
		if err := os.WriteFile(*out, blob, 0o644); err != nil {
			fatal("writing %s: %v", *out, err)
		}
	default:
		fatal("unknown format %q", *format)
	}
}

func parseFile(name string, data []byte) (*telemetry.Table, *activity.Metadata, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".fit":
		return fit_parser.Parse(data)
	case ".gpx":
		return gpx_parser.Parse(data)
	}
	return nil, nil, fmt.Errorf("unsupported extension (want .fit or .gpx)")
}

func outputWriter(path string) *os.File {
	if path == "" {
		return os.Stdout
	}
	f, err := os.Create(path)
	if err != nil {
		fatal("creating %s: %v", path, err)
	}
	return f
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
