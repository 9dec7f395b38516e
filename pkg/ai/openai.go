package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProviderOpenAI selects the OpenAI-compatible chat completion backend.
const ProviderOpenAI = "openai"

// DefaultOpenAIModel is used when no model is configured for the openai provider.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig defines configuration options for the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  zerolog.Logger
}

// OpenAIClient implements Generator against an OpenAI-compatible chat completion API.
// Top-k and safety settings have no chat-completion equivalent and are dropped.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIClient builds a new client using the provided configuration.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	config.HTTPClient = sharedHTTPClient

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/speakup-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_client").Str("model", cfg.Model).Logger(),
	}, nil
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.cfg.Model
}

// Generate maps the request onto a single chat completion call.
func (c *OpenAIClient) Generate(parent context.Context, request GenerationRequest) (GenerationResponse, error) {
	ctx, span := c.tracer.Start(parent, "openai.generate", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, c.chatRequest(request))
	generateDuration.WithLabelValues(ProviderOpenAI, c.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		err = classifyOpenAIError(err)
		generateFailures.WithLabelValues(ProviderOpenAI, c.cfg.Model, ErrorKind(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug().Err(err).Str("kind", ErrorKind(err)).Msg("generate failed")
		return GenerationResponse{}, fmt.Errorf("openai generate: %w", err)
	}

	response := GenerationResponse{
		Candidates: make([]Candidate, 0, len(resp.Choices)),
		UsageMetadata: &UsageMetadata{
			PromptTokenCount:     resp.Usage.PromptTokens,
			CandidatesTokenCount: resp.Usage.CompletionTokens,
			TotalTokenCount:      resp.Usage.TotalTokens,
		},
	}
	for _, choice := range resp.Choices {
		response.Candidates = append(response.Candidates, Candidate{
			Content: Content{
				Role:  "model",
				Parts: []Part{{Text: choice.Message.Content}},
			},
			FinishReason: string(choice.FinishReason),
			Index:        choice.Index,
		})
	}

	recordUsage(ProviderOpenAI, c.cfg.Model, response.UsageMetadata)
	span.SetAttributes(attribute.Int("candidates", len(response.Candidates)))
	return response, nil
}

func (c *OpenAIClient) chatRequest(request GenerationRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(request.Contents))
	for _, content := range request.Contents {
		role := openai.ChatMessageRoleUser
		if content.Role == "model" {
			role = openai.ChatMessageRoleAssistant
		}

		var builder strings.Builder
		for _, part := range content.Parts {
			builder.WriteString(part.Text)
		}

		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: builder.String(),
		})
	}

	return openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: request.GenerationConfig.Temperature,
		TopP:        request.GenerationConfig.TopP,
		MaxTokens:   request.GenerationConfig.MaxOutputTokens,
	}
}

// The SDK reports HTTP failures as APIError/RequestError and body failures as
// plain errors; map them onto the package error kinds.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &StatusError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}

	if strings.Contains(err.Error(), "unmarshal") || strings.Contains(err.Error(), "invalid character") {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}
