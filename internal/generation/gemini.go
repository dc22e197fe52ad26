package generation

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig selects the Gemini API or Vertex AI backend.
// Vertex AI is used when Project is set.
type GeminiConfig struct {
	APIKey   string
	Project  string
	Location string
}

// GeminiBackend implements Backend on google.golang.org/genai.
type GeminiBackend struct {
	client *genai.Client
	name   string
}

// NewGeminiBackend creates a Gemini client.
func NewGeminiBackend(ctx context.Context, cfg GeminiConfig) (*GeminiBackend, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	name := "gemini-api"
	if cfg.Project != "" {
		location := cfg.Location
		if location == "" {
			location = "us-central1"
		}
		cc = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: location,
			Backend:  genai.BackendVertexAI,
		}
		name = "vertex-ai:" + cfg.Project + "/" + location
	} else if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key or Google Cloud project is required")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiBackend{client: client, name: name}, nil
}

// Name describes the configured endpoint.
func (g *GeminiBackend) Name() string {
	return g.name
}

// Generate implements Backend.
func (g *GeminiBackend) Generate(ctx context.Context, model, prompt string, cfg Config) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), contentConfig(cfg))
	if err != nil {
		return "", fmt.Errorf("generate content with %s: %w", model, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: response from %s has no content", ErrInvalidOutput, model)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

func contentConfig(cfg Config) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		MaxOutputTokens: cfg.MaxOutputTokens,
		Temperature:     genai.Ptr(cfg.Temperature),
		SafetySettings:  safetySettings(cfg.Safety),
	}
	if cfg.TopP > 0 {
		gc.TopP = genai.Ptr(cfg.TopP)
	}
	if cfg.TopK > 0 {
		gc.TopK = genai.Ptr(cfg.TopK)
	}
	if cfg.Schema != nil {
		gc.ResponseMIMEType = "application/json"
		gc.ResponseSchema = responseSchema(cfg.Schema)
	}
	return gc
}

func responseSchema(s *Schema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Properties))
	required := make([]string, 0, len(s.Properties))
	for _, p := range s.Properties {
		t := genai.TypeString
		if p.Type == TypeBoolean {
			t = genai.TypeBoolean
		}
		props[p.Name] = &genai.Schema{Type: t, Description: p.Description}
		required = append(required, p.Name)
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   required,
	}
}

var harmCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
}

func safetySettings(policy SafetyPolicy) []*genai.SafetySetting {
	var threshold genai.HarmBlockThreshold
	switch policy {
	case SafetyStrict:
		threshold = genai.HarmBlockThresholdBlockLowAndAbove
	case SafetyRelaxed:
		threshold = genai.HarmBlockThresholdBlockOnlyHigh
	default:
		return nil
	}

	settings := make([]*genai.SafetySetting, 0, len(harmCategories))
	for _, c := range harmCategories {
		settings = append(settings, &genai.SafetySetting{Category: c, Threshold: threshold})
	}
	return settings
}
