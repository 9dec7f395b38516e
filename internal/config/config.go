package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/speakup-api/pkg/ai"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	AIProvider      string
	GeminiBaseURL   string
	GeminiModel     string
	GeminiAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	RedisURL        string
	EnhanceCacheTTL time.Duration
	NATSURL         string
	NATSChannel     string
	TutorRateLimit  int
	TutorRateWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// AISettings returns the generator settings for the configured provider. The API
// key is empty unless one was configured for pre-initialization.
func (c Config) AISettings() ai.Settings {
	settings := ai.Settings{
		Provider: c.AIProvider,
		APIKey:   c.GeminiAPIKey,
		Model:    c.GeminiModel,
		BaseURL:  c.GeminiBaseURL,
	}
	if settings.ProviderName() == ai.ProviderOpenAI {
		settings.Model = c.OpenAIModel
		settings.BaseURL = c.OpenAIBaseURL
	}
	return settings
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SPEAKUP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SpeakUp API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("ai.provider", ai.ProviderGemini)
	v.SetDefault("gemini.base_url", ai.DefaultGeminiBaseURL)
	v.SetDefault("gemini.model", ai.DefaultGeminiModel)
	v.SetDefault("openai.model", ai.DefaultOpenAIModel)
	v.SetDefault("enhance.cache_ttl", "24h")
	v.SetDefault("nats.channel", "speakup")
	v.SetDefault("tutor.rate_limit", 30)
	v.SetDefault("tutor.rate_window", "1m")

	ttlString := v.GetString("enhance.cache_ttl")
	if ttlString == "" {
		ttlString = "24h"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid enhance cache ttl: %w", err)
	}

	window, err := time.ParseDuration(v.GetString("tutor.rate_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid tutor rate window: %w", err)
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		AIProvider:      strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
		GeminiBaseURL:   v.GetString("gemini.base_url"),
		GeminiModel:     v.GetString("gemini.model"),
		GeminiAPIKey:    strings.TrimSpace(v.GetString("gemini.api_key")),
		OpenAIBaseURL:   v.GetString("openai.base_url"),
		OpenAIModel:     v.GetString("openai.model"),
		RedisURL:        v.GetString("redis.url"),
		EnhanceCacheTTL: ttl,
		NATSURL:         v.GetString("nats.url"),
		NATSChannel:     v.GetString("nats.channel"),
		TutorRateLimit:  v.GetInt("tutor.rate_limit"),
		TutorRateWindow: window,
	}

	switch cfg.AIProvider {
	case ai.ProviderGemini, ai.ProviderOpenAI:
	default:
		return Config{}, fmt.Errorf("unsupported ai provider %q", cfg.AIProvider)
	}

	return cfg, nil
}
