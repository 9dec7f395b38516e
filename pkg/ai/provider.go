package ai

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Settings selects and configures a generation backend. It is immutable once
// passed to NewGenerator; reconfiguration builds a new Generator.
type Settings struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// WithAPIKey returns a copy of s using the given key.
func (s Settings) WithAPIKey(apiKey string) Settings {
	s.APIKey = apiKey
	return s
}

// ProviderName returns the normalized provider, defaulting to gemini.
func (s Settings) ProviderName() string {
	provider := strings.ToLower(strings.TrimSpace(s.Provider))
	if provider == "" {
		return ProviderGemini
	}
	return provider
}

// NewGenerator builds the Generator selected by settings.
func NewGenerator(settings Settings, logger zerolog.Logger) (Generator, error) {
	switch settings.ProviderName() {
	case ProviderGemini:
		return NewGeminiClient(GeminiConfig{
			APIKey:  settings.APIKey,
			Model:   settings.Model,
			BaseURL: settings.BaseURL,
			Logger:  logger,
		})
	case ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  settings.APIKey,
			Model:   settings.Model,
			BaseURL: settings.BaseURL,
			Logger:  logger,
		})
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", settings.Provider)
	}
}
