package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"
)

// GenAIGenerator is a Gemini API implementation of Generator.
type GenAIGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// NewGenAIGenerator creates a Generator backed by the Gemini API. baseURL is
// optional and only needed for proxies or tests.
func NewGenAIGenerator(ctx context.Context, apiKey, model, baseURL string, temperature float64, maxTokens int64) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("genai api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if maxTokens < 0 || maxTokens > math.MaxInt32 {
		return nil, fmt.Errorf("genai max tokens out of range: %d", maxTokens)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIGenerator{
		client:      client,
		model:       model,
		temperature: float32(temperature),
		maxTokens:   int32(maxTokens),
	}, nil
}

// Generate sends prompt as a single user turn and returns the reply text.
func (g *GenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "genai.models.generate_content")
	defer span.End()
	span.SetAttributes(attribute.String("generation.model", g.model))

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = g.maxTokens
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		upstream := &UpstreamError{Service: "genai", Err: err}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			upstream.StatusCode = apiErr.Code
		}
		return "", upstream
	}

	text := result.Text()
	if text == "" {
		return "", &UpstreamError{Service: "genai", Detail: "no text content"}
	}
	return text, nil
}
