package narrative

import (
	"context"
	"strings"
	"testing"

	"github.com/coursescope/server/pkg/domain/activity"
	"github.com/coursescope/server/pkg/domain/analysis"
)

func f(v float64) *float64 { return &v }

func sampleResult() *analysis.Result {
	grade := 5.2
	return &analysis.Result{
		Summary: analysis.Summary{
			DistanceKM:        12.3,
			MovingTimeS:       3725,
			AveragePaceSPerKM: f(302.8),
			GAPMeanSPerKM:     f(291.0),
			ElevationGainM:    f(245),
		},
		Climbs: []analysis.Climb{
			{DistanceKM: 1.8, ElevationGainM: 120, AvgGradePct: &grade},
		},
		BestByDistance: []analysis.DistanceEffort{
			{DistanceKM: 1, TimeS: 280, PaceSPerKM: 280},
			{DistanceKM: 5, TimeS: 1475, PaceSPerKM: 295},
		},
		Pacing: analysis.Pacing{PaceDeltaSPerKM: f(-5)},
	}
}

func TestTemplateGenerator(t *testing.T) {
	meta := &activity.Metadata{Name: "Sunday Long Run"}
	text, err := TemplateGenerator{}.Generate(context.Background(), meta, sampleResult())
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"Sunday Long Run covered 12.30 km",
		"1h02m05s",
		"5:03 min/km",
		"4:51 min/km",
		"245 m",
		"120 m over 1.8 km at 5.2%",
		"Best 5 km effort: 24m35s",
		"Negative split",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("narrative missing %q in:\n%s", want, text)
		}
	}
}

func TestTemplateGenerator_EmptyResult(t *testing.T) {
	text, err := TemplateGenerator{}.Generate(context.Background(), nil, &analysis.Result{})
	if err != nil {
		t.Fatal(err)
	}
	if text != "Activity recorded." {
		t.Errorf("empty result narrative = %q", text)
	}
}

func TestTemplateGenerator_NoName(t *testing.T) {
	text, err := TemplateGenerator{}.Generate(context.Background(), nil, sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(text, "This activity covered") {
		t.Errorf("expected the generic subject, got %q", text)
	}
}

func TestFormatPace(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{300, "5:00 min/km"},
		{302.8, "5:03 min/km"},
		{59.4, "0:59 min/km"},
		{0, "-"},
		{-10, "-"},
	}
	for _, tt := range tests {
		if got := FormatPace(tt.in); got != tt.want {
			t.Errorf("FormatPace(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFromEnv(t *testing.T) {
	if _, ok := FromEnv("").(TemplateGenerator); !ok {
		t.Error("no API key should select the template generator")
	}
	if _, ok := FromEnv("key").(*GeminiGenerator); !ok {
		t.Error("an API key should select the Gemini generator")
	}
}

func TestBuildPrompt_CarriesFacts(t *testing.T) {
	prompt := buildPrompt(&activity.Metadata{Name: "Tempo Tuesday"}, sampleResult())
	if !strings.Contains(prompt, "Tempo Tuesday") || !strings.Contains(prompt, "12.30 km") {
		t.Errorf("prompt should embed the highlight facts:\n%s", prompt)
	}
	if !strings.Contains(prompt, "do not invent") {
		t.Error("prompt should forbid invention")
	}
}
