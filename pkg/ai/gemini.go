package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultGeminiBaseURL is the public generateContent model root.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	// DefaultGeminiModel is used when no model is configured.
	DefaultGeminiModel = "gemini-1.5-pro"

	// ProviderGemini selects the Gemini generateContent backend.
	ProviderGemini = "gemini"
)

// sharedHTTPClient is reused by every client so connections are pooled. It has no
// timeout; a hung upstream call blocks until the connection fails.
var sharedHTTPClient = &http.Client{}

// GeminiConfig defines configuration options for the Gemini client.
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// GeminiClient implements Generator against the Gemini generateContent REST API.
type GeminiClient struct {
	httpClient *http.Client
	cfg        GeminiConfig
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewGeminiClient builds a new client using the provided configuration.
func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = sharedHTTPClient
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &GeminiClient{
		httpClient: httpClient,
		cfg:        cfg,
		tracer:     otel.Tracer("github.com/noah-isme/speakup-api/pkg/ai/gemini"),
		logger:     logger.With().Str("component", "gemini_client").Str("model", cfg.Model).Logger(),
	}, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.cfg.Model
}

func (c *GeminiClient) endpoint() string {
	return fmt.Sprintf("%s/%s:generateContent?key=%s", c.cfg.BaseURL, c.cfg.Model, url.QueryEscape(c.cfg.APIKey))
}

// Generate issues a single generateContent call. There is no retry.
func (c *GeminiClient) Generate(parent context.Context, request GenerationRequest) (GenerationResponse, error) {
	ctx, span := c.tracer.Start(parent, "gemini.generate", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	response, err := c.do(ctx, request)
	generateDuration.WithLabelValues(ProviderGemini, c.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		generateFailures.WithLabelValues(ProviderGemini, c.cfg.Model, ErrorKind(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug().Err(err).Str("kind", ErrorKind(err)).Msg("generate failed")
		return GenerationResponse{}, fmt.Errorf("gemini generate: %w", err)
	}

	recordUsage(ProviderGemini, c.cfg.Model, response.UsageMetadata)
	span.SetAttributes(attribute.Int("candidates", len(response.Candidates)))
	return response, nil
}

func (c *GeminiClient) do(ctx context.Context, request GenerationRequest) (GenerationResponse, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return GenerationResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return GenerationResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error carries the full URL, including the key.
		return GenerationResponse{}, fmt.Errorf("%w: %s", ErrTransport, redactKey(err.Error(), c.cfg.APIKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return GenerationResponse{}, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return GenerationResponse{}, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return decodeGenerationResponse(body)
}

func decodeGenerationResponse(body []byte) (GenerationResponse, error) {
	var response GenerationResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return GenerationResponse{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	// An absent or null candidates field does not match the schema; [] does.
	if response.Candidates == nil {
		return GenerationResponse{}, fmt.Errorf("%w: missing candidates", ErrDecode)
	}
	return response, nil
}

// Text returns the text of the first candidate.
func Text(response GenerationResponse) (string, error) {
	if len(response.Candidates) == 0 {
		return "", ErrNoCandidates
	}

	parts := response.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: first candidate has no parts", ErrNoCandidates)
	}

	var builder strings.Builder
	for _, part := range parts {
		builder.WriteString(part.Text)
	}
	return builder.String(), nil
}

func redactKey(message, key string) string {
	if key == "" {
		return message
	}
	message = strings.ReplaceAll(message, url.QueryEscape(key), "REDACTED")
	return strings.ReplaceAll(message, key, "REDACTED")
}
