package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "workflow-assist/backend/generation"

// AnthropicGenerator is an Anthropic Messages API implementation of Generator.
type AnthropicGenerator struct {
	client      anthropic.Client
	model       anthropic.Model
	temperature float64
	maxTokens   int64
}

// NewAnthropicGenerator creates a Generator for the given model. The SDK's
// built-in retries are disabled: each request makes exactly one attempt.
// Extra options are appended last, so tests can point the client at a fake
// server with option.WithBaseURL.
func NewAnthropicGenerator(apiKey, model string, temperature float64, maxTokens int64, opts ...option.RequestOption) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	clientOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	genMetricsOnce.Do(initGenMetrics)

	return &AnthropicGenerator{
		client:      anthropic.NewClient(clientOpts...),
		model:       anthropic.Model(model),
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// genMetrics holds lazily-initialized OTel instruments for generation calls.
var genMetrics struct {
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
}

var genMetricsOnce sync.Once

func initGenMetrics() {
	m := otel.Meter(instrumentationName)
	genMetrics.inputTokens, _ = m.Int64Counter("workflow_assist.generation.input_tokens",
		metric.WithDescription("Generation API input tokens consumed"),
		metric.WithUnit("{token}"),
	)
	genMetrics.outputTokens, _ = m.Int64Counter("workflow_assist.generation.output_tokens",
		metric.WithDescription("Generation API output tokens produced"),
		metric.WithUnit("{token}"),
	)
}

// Generate sends prompt as a single user message and returns the
// concatenated text blocks of the reply.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "anthropic.messages.new")
	defer span.End()
	span.SetAttributes(attribute.String("generation.model", string(g.model)))

	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: anthropic.Float(g.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		upstream := &UpstreamError{Service: "anthropic", Err: err}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			upstream.StatusCode = apiErr.StatusCode
		}
		return "", upstream
	}

	modelAttr := metric.WithAttributes(attribute.String("generation.model", string(g.model)))
	if genMetrics.inputTokens != nil {
		genMetrics.inputTokens.Add(ctx, message.Usage.InputTokens, modelAttr)
		genMetrics.outputTokens.Add(ctx, message.Usage.OutputTokens, modelAttr)
	}
	span.SetAttributes(
		attribute.Int64("generation.input_tokens", message.Usage.InputTokens),
		attribute.Int64("generation.output_tokens", message.Usage.OutputTokens),
	)

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", &UpstreamError{Service: "anthropic", Detail: fmt.Sprintf("no text content (stop reason %q)", message.StopReason)}
	}
	return text.String(), nil
}
