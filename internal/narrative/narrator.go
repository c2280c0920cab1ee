// Package narrative asks a Gemini model for a plain-language summary of a
// computed report.
package narrative

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/dvloznov/finance-analytics/internal/analytics"
	"github.com/dvloznov/finance-analytics/internal/logger"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-2.5-flash"

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls the Gemini API through the genai SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a generator. Credentials and backend come from
// the environment (GOOGLE_API_KEY, or GOOGLE_GENAI_USE_VERTEXAI with project
// and location).
func NewGeminiGenerator(ctx context.Context, model string) (*GeminiGenerator, error) {
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiGenerator: create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}
	return resp.Text(), nil
}

// Narrator writes report summaries.
type Narrator struct {
	gen Generator
}

// NewNarrator creates a Narrator over gen.
func NewNarrator(gen Generator) *Narrator {
	return &Narrator{gen: gen}
}

// Narrate returns the model's summary of report.
func (n *Narrator) Narrate(ctx context.Context, userID string, report *analytics.Report) (string, error) {
	prompt := BuildPrompt(report)

	raw, err := n.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("Narrate: %w", err)
	}

	text := cleanModelText(raw)
	if text == "" {
		return "", fmt.Errorf("Narrate: empty response from model")
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", userID).
		Int("prompt_len", len(prompt)).
		Int("narrative_len", len(text)).
		Msg("Generated report narrative")
	return text, nil
}
