// effort-curve prints the best rolling efforts and race predictions of a
// local FIT or GPX activity file.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/coursescope/server/pkg/domain/analysis"
	"github.com/coursescope/server/pkg/domain/fit_parser"
	"github.com/coursescope/server/pkg/domain/gpx_parser"
	"github.com/coursescope/server/pkg/narrative"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: effort-curve <activity-file>")
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("Failed to read file: %v\n", err)
		os.Exit(1)
	}

	var res *analysis.Result
	switch strings.ToLower(filepath.Ext(os.Args[1])) {
	case ".fit":
		tbl, _, err := fit_parser.Parse(data)
		if err != nil {
			fmt.Printf("Failed to parse FIT file: %v\n", err)
			os.Exit(1)
		}
		res, err = analysis.Analyze(tbl, analysis.Params{})
		if err != nil {
			fmt.Printf("Analysis failed: %v\n", err)
			os.Exit(1)
		}
	case ".gpx":
		tbl, _, err := gpx_parser.Parse(data)
		if err != nil {
			fmt.Printf("Failed to parse GPX file: %v\n", err)
			os.Exit(1)
		}
		res, err = analysis.Analyze(tbl, analysis.Params{})
		if err != nil {
			fmt.Printf("Analysis failed: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Println("Unsupported extension (want .fit or .gpx)")
		os.Exit(1)
	}

	fmt.Println("=== BEST EFFORTS BY DISTANCE ===")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Distance\tTime\tPace")
	fmt.Fprintln(w, "--------\t----\t----")
	for _, e := range res.BestByDistance {
		fmt.Fprintf(w, "%.1f km\t%s\t%s\n",
			e.DistanceKM, formatTime(e.TimeS), narrative.FormatPace(e.PaceSPerKM))
	}
	w.Flush()

	if len(res.BestByDuration) > 0 {
		fmt.Println("\n=== BEST EFFORTS BY DURATION ===")
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Duration\tDistance\tPace")
		fmt.Fprintln(w, "--------\t--------\t----")
		for _, e := range res.BestByDuration {
			fmt.Fprintf(w, "%s\t%.2f km\t%s\n",
				formatTime(e.DurationS), e.DistanceKM, narrative.FormatPace(e.PaceSPerKM))
		}
		w.Flush()
	}

	if res.Power != nil && len(res.Power.DurationCurve) > 0 {
		fmt.Println("\n=== POWER DURATION CURVE ===")
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Duration\tBest avg power")
		fmt.Fprintln(w, "--------\t--------------")
		for _, p := range res.Power.DurationCurve {
			if p.PowerW == nil {
				continue
			}
			fmt.Fprintf(w, "%s\t%.0f W\n", formatTime(p.DurationS), *p.PowerW)
		}
		w.Flush()
	}

	if len(res.RacePredictions) > 0 {
		fmt.Println("\n=== RACE PREDICTIONS (Riegel) ===")
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Target\tPredicted\tBase effort")
		fmt.Fprintln(w, "------\t---------\t-----------")
		for _, p := range res.RacePredictions {
			fmt.Fprintf(w, "%.1f km\t%s\t%.1f km in %s\n",
				p.TargetDistanceKM, formatTime(p.PredictedTimeS),
				p.BaseDistanceKM, formatTime(p.BaseTimeS))
		}
		w.Flush()
	}
}

func formatTime(seconds float64) string {
	total := int(seconds + 0.5)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
