package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/coursescope/server/pkg/domain/activity"
	"github.com/coursescope/server/pkg/domain/analysis"
)

const geminiModel = "gemini-2.0-flash"

// GeminiGenerator rewrites the highlight facts with Gemini. Any failure
// logs and falls back to the template output, so narrative generation can
// never fail an analysis.
type GeminiGenerator struct {
	apiKey   string
	fallback TemplateGenerator
}

func NewGeminiGenerator(apiKey string) *GeminiGenerator {
	return &GeminiGenerator{apiKey: apiKey}
}

// FromEnv picks the Gemini generator when an API key is configured and the
// deterministic template otherwise.
func FromEnv(apiKey string) Generator {
	if apiKey == "" {
		return TemplateGenerator{}
	}
	return NewGeminiGenerator(apiKey)
}

func (g *GeminiGenerator) Generate(ctx context.Context, meta *activity.Metadata, res *analysis.Result) (string, error) {
	text, err := g.generate(ctx, meta, res)
	if err != nil {
		slog.Warn("gemini narrative failed, using template", "error", err)
		return g.fallback.Generate(ctx, meta, res)
	}
	return text, nil
}

func (g *GeminiGenerator) generate(ctx context.Context, meta *activity.Metadata, res *analysis.Result) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("creating Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(geminiModel)
	model.SetTemperature(0.7)
	model.SetTopP(0.9)
	model.SetMaxOutputTokens(300)

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(meta, res)))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	text := strings.Trim(strings.TrimSpace(out.String()), "*_`")
	if text == "" {
		return "", fmt.Errorf("empty response")
	}
	return text, nil
}

func buildPrompt(meta *activity.Metadata, res *analysis.Result) string {
	facts := buildHighlights(meta, res)
	return fmt.Sprintf(`You are a running coach writing a short post-run note.

Facts about the run:
%s

Rewrite these facts as a friendly 2-3 sentence summary. Reference the
specific numbers; do not invent any. Respond with ONLY the summary.`,
		strings.Join(facts, "\n"))
}
