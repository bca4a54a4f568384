// Package narrative turns an analysis result into a short human summary of
// the run. The template generator is deterministic and always available;
// the Gemini generator rewrites the same facts with a language model and
// falls back to the template when it cannot.
package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/coursescope/server/pkg/domain/activity"
	"github.com/coursescope/server/pkg/domain/analysis"
)

// Generator produces a narrative for an analyzed activity.
type Generator interface {
	Generate(ctx context.Context, meta *activity.Metadata, res *analysis.Result) (string, error)
}

// TemplateGenerator renders the highlight facts directly, one sentence per
// fact. It never errors.
type TemplateGenerator struct{}

func (TemplateGenerator) Generate(_ context.Context, meta *activity.Metadata, res *analysis.Result) (string, error) {
	highlights := buildHighlights(meta, res)
	if len(highlights) == 0 {
		return "Activity recorded.", nil
	}
	return strings.Join(highlights, " "), nil
}

// buildHighlights extracts the facts worth telling: totals, pace, the
// biggest climb, the best rolling efforts and how the pacing held up.
func buildHighlights(meta *activity.Metadata, res *analysis.Result) []string {
	var out []string

	s := res.Summary
	name := "This activity"
	if meta != nil && meta.Name != "" {
		name = meta.Name
	}
	if s.DistanceKM > 0 {
		out = append(out, fmt.Sprintf("%s covered %.2f km in %s of moving time.",
			name, s.DistanceKM, formatDuration(s.MovingTimeS)))
	}
	if s.AveragePaceSPerKM != nil {
		out = append(out, fmt.Sprintf("Average moving pace was %s.", FormatPace(*s.AveragePaceSPerKM)))
	}
	if s.GAPMeanSPerKM != nil && s.AveragePaceSPerKM != nil && *s.GAPMeanSPerKM < *s.AveragePaceSPerKM-2 {
		out = append(out, fmt.Sprintf("Grade adjusted, that effort is worth %s.", FormatPace(*s.GAPMeanSPerKM)))
	}
	if s.ElevationGainM != nil && *s.ElevationGainM >= 30 {
		out = append(out, fmt.Sprintf("Total climbing came to %.0f m.", *s.ElevationGainM))
	}

	if len(res.Climbs) > 0 {
		c := res.Climbs[0]
		sentence := fmt.Sprintf("The biggest climb gained %.0f m over %.1f km", c.ElevationGainM, c.DistanceKM)
		if c.AvgGradePct != nil {
			sentence += fmt.Sprintf(" at %.1f%%", *c.AvgGradePct)
		}
		out = append(out, sentence+".")
	}

	for _, e := range res.BestByDistance {
		if e.DistanceKM == 5 {
			out = append(out, fmt.Sprintf("Best 5 km effort: %s.", formatDuration(e.TimeS)))
			break
		}
	}

	if res.Pacing.PaceDeltaSPerKM != nil {
		switch delta := *res.Pacing.PaceDeltaSPerKM; {
		case delta < -2:
			out = append(out, fmt.Sprintf("Negative split: the second half ran %.0f s/km faster.", -delta))
		case delta > 10:
			out = append(out, fmt.Sprintf("The second half slowed by %.0f s/km.", delta))
		}
	}

	return out
}

// FormatPace renders s/km as "m:ss min/km".
func FormatPace(sPerKM float64) string {
	if sPerKM <= 0 {
		return "-"
	}
	total := int(sPerKM + 0.5)
	return fmt.Sprintf("%d:%02d min/km", total/60, total%60)
}

func formatDuration(seconds float64) string {
	total := int(seconds + 0.5)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
