package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/speakup-api/internal/dto"
	"github.com/noah-isme/speakup-api/pkg/ai"
)

const (
	connectionTestPreviewRunes = 50
	enhanceLanguage            = "en"
)

// TutorService exposes the AI tutoring operations.
type TutorService interface {
	Initialize(ctx context.Context, payload dto.ServiceKeyRequest) error
	TestConnection(ctx context.Context, payload dto.ServiceKeyRequest) (string, error)
	TutorFeedback(ctx context.Context, payload dto.TutorFeedbackRequest) (FeedbackResult, error)
	PracticeContent(ctx context.Context, payload dto.PracticeContentRequest) (ContentResult, error)
	EnhanceSpeech(ctx context.Context, payload dto.SpeechEnhanceRequest) (string, error)
	Configured() bool
}

// FeedbackResult is tutoring feedback tagged with its origin.
type FeedbackResult struct {
	Feedback ai.TutorFeedback
	Source   Source
	Outcome  ai.DecodeOutcome
	Cause    error
}

// ContentResult is practice text tagged with its origin.
type ContentResult struct {
	Content string
	Source  Source
	Cause   error
}

// GeneratorFactory builds a generator from settings.
type GeneratorFactory func(settings ai.Settings, logger zerolog.Logger) (ai.Generator, error)

// TutorDependencies groups the collaborators of the tutor service. Only Settings
// is required.
type TutorDependencies struct {
	Settings  ai.Settings
	Factory   GeneratorFactory
	Cache     EnhancementCache
	Publisher FeedbackPublisher
}

// generatorHolder guards the active generator. The lock covers reading or
// swapping the reference only, never a network call.
type generatorHolder struct {
	mu        sync.RWMutex
	generator ai.Generator
	settings  ai.Settings
}

func (h *generatorHolder) load() (ai.Generator, ai.Settings) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.generator, h.settings
}

func (h *generatorHolder) store(generator ai.Generator, settings ai.Settings) {
	h.mu.Lock()
	h.generator = generator
	h.settings = settings
	h.mu.Unlock()
}

type tutorService struct {
	holder     generatorHolder
	base       ai.Settings
	factory    GeneratorFactory
	cache      EnhancementCache
	publisher  FeedbackPublisher
	validator  *validator.Validate
	logger     zerolog.Logger
	baseLogger zerolog.Logger // passed to generators, which add their own component
	now        func() time.Time
}

// NewTutorService constructs the tutor service. When the settings already carry an
// API key the service starts initialized.
func NewTutorService(deps TutorDependencies, validate *validator.Validate, logger zerolog.Logger) TutorService {
	factory := deps.Factory
	if factory == nil {
		factory = ai.NewGenerator
	}

	s := &tutorService{
		base:       deps.Settings.WithAPIKey(""),
		factory:    factory,
		cache:      deps.Cache,
		publisher:  deps.Publisher,
		validator:  validate,
		logger:     logger.With().Str("component", "tutor_service").Logger(),
		baseLogger: logger,
		now:        time.Now,
	}

	if strings.TrimSpace(deps.Settings.APIKey) != "" {
		generator, err := factory(deps.Settings, logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to pre-initialize generator from configuration")
		} else {
			s.holder.store(generator, deps.Settings)
		}
	}

	return s
}

func (s *tutorService) Configured() bool {
	generator, _ := s.holder.load()
	return generator != nil
}

func (s *tutorService) Initialize(ctx context.Context, payload dto.ServiceKeyRequest) error {
	settings, err := s.settingsFor(payload)
	if err != nil {
		return err
	}

	generator, err := s.factory(settings, s.baseLogger)
	if err != nil {
		return fmt.Errorf("build generator: %w", err)
	}

	s.holder.store(generator, settings)
	s.logger.Info().Str("provider", settings.ProviderName()).Str("model", settings.Model).Msg("tutor service initialized")
	return nil
}

func (s *tutorService) TestConnection(ctx context.Context, payload dto.ServiceKeyRequest) (string, error) {
	settings, err := s.settingsFor(payload)
	if err != nil {
		return "", err
	}

	generator, err := s.factory(settings, s.baseLogger)
	if err != nil {
		return "", fmt.Errorf("build generator: %w", err)
	}

	content, err := generateText(ctx, generator, ai.PracticeContentRequest("daily", "beginner", []string{"測試"}))
	if err != nil {
		s.logger.Warn().Err(err).Str("kind", ai.ErrorKind(err)).Str("decision", Policy(OperationTestConnection, err).String()).Msg("connection test failed")
		return "", fmt.Errorf("連接測試失敗：%w", err)
	}

	s.holder.store(generator, settings)
	return "連接測試成功！生成的測試內容：" + truncateRunes(strings.TrimSpace(content), connectionTestPreviewRunes), nil
}

func (s *tutorService) TutorFeedback(ctx context.Context, payload dto.TutorFeedbackRequest) (FeedbackResult, error) {
	if err := s.validator.Struct(payload); err != nil {
		return FeedbackResult{}, err
	}

	generator, _ := s.holder.load()
	if generator == nil {
		return FeedbackResult{}, ErrServiceUninitialized
	}

	metrics := ai.MetricsFromValues(payload.PerformanceMetrics)
	result, err := s.feedback(ctx, generator, metrics, payload.Context)
	if err != nil {
		if Policy(OperationFeedback, err) == Surface {
			return FeedbackResult{}, err
		}
		s.logger.Warn().Err(err).Str("kind", ai.ErrorKind(err)).Msg("feedback generation failed, using fallback")
		result = FeedbackResult{
			Feedback: ai.FallbackFeedback(metrics),
			Source:   SourceFallback,
			Cause:    err,
		}
	}

	s.publishFeedback(ctx, metrics, result)
	return result, nil
}

// feedback is the strict inner operation: any failure is returned as-is.
func (s *tutorService) feedback(ctx context.Context, generator ai.Generator, metrics ai.PerformanceMetrics, practiceContext string) (FeedbackResult, error) {
	text, err := generateText(ctx, generator, ai.TutorFeedbackRequest(metrics, practiceContext))
	if err != nil {
		return FeedbackResult{}, err
	}

	feedback, outcome := ai.DecodeTutorFeedback(text)
	ai.RecordDecodeOutcome(outcome)
	if outcome == ai.OutcomeNoJSON || outcome == ai.OutcomeInvalidJSON {
		s.logger.Info().Str("outcome", string(outcome)).Msg("feedback reply was not usable JSON, using canned feedback")
	}

	return FeedbackResult{
		Feedback: feedback,
		Source:   SourceModel,
		Outcome:  outcome,
	}, nil
}

func (s *tutorService) PracticeContent(ctx context.Context, payload dto.PracticeContentRequest) (ContentResult, error) {
	if err := s.validator.Struct(payload); err != nil {
		return ContentResult{}, err
	}

	generator, _ := s.holder.load()
	if generator == nil {
		return ContentResult{}, ErrServiceUninitialized
	}

	text, err := generateText(ctx, generator, ai.PracticeContentRequest(payload.Topic, payload.Difficulty, payload.Interests))
	if err != nil {
		if Policy(OperationPracticeContent, err) == Surface {
			return ContentResult{}, err
		}
		s.logger.Warn().Err(err).Str("kind", ai.ErrorKind(err)).Str("topic", payload.Topic).Msg("practice generation failed, using fallback")
		return ContentResult{
			Content: ai.FallbackPracticeContent(payload.Topic, payload.Difficulty),
			Source:  SourceFallback,
			Cause:   err,
		}, nil
	}

	return ContentResult{Content: strings.TrimSpace(text), Source: SourceModel}, nil
}

func (s *tutorService) EnhanceSpeech(ctx context.Context, payload dto.SpeechEnhanceRequest) (string, error) {
	if err := s.validator.Struct(payload); err != nil {
		return "", err
	}

	generator, settings := s.holder.load()
	if generator == nil {
		return "", ErrServiceUninitialized
	}

	cacheKey := EnhancementCacheKey(payload.Text, payload.Voice, enhanceLanguage, settings.ProviderName(), settings.Model)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, cacheKey)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Msg("failed to read enhancement cache")
		case ok:
			s.logger.Debug().Str("source", string(SourceCache)).Msg("enhancement cache hit")
			return cached, nil
		}
	}

	text, err := generateText(ctx, generator, ai.SpeechEnhanceRequest(payload.Text))
	if err != nil {
		s.logger.Warn().Err(err).Str("kind", ai.ErrorKind(err)).Str("decision", Policy(OperationSpeechEnhance, err).String()).Msg("speech enhancement failed")
		return "", fmt.Errorf("Gemini語音合成失敗: %w", err)
	}

	encoded, err := json.Marshal(dto.SpeechEnhancement{
		EnhancedText: strings.TrimSpace(text),
		OriginalText: payload.Text,
	})
	if err != nil {
		return "", fmt.Errorf("encode enhancement: %w", err)
	}
	result := string(encoded)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result); err != nil {
			s.logger.Warn().Err(err).Msg("failed to store enhancement cache")
		}
	}

	return result, nil
}

func (s *tutorService) settingsFor(payload dto.ServiceKeyRequest) (ai.Settings, error) {
	apiKey := strings.TrimSpace(payload.APIKey)
	if apiKey == "" {
		return ai.Settings{}, ErrAPIKeyRequired
	}
	return s.base.WithAPIKey(apiKey), nil
}

func (s *tutorService) publishFeedback(ctx context.Context, metrics ai.PerformanceMetrics, result FeedbackResult) {
	if s.publisher == nil {
		return
	}

	event := dto.FeedbackEvent{
		Source:      string(result.Source),
		Outcome:     string(result.Outcome),
		Metrics:     metrics,
		Feedback:    dto.NewTutorFeedbackResponse(result.Feedback),
		GeneratedAt: s.now().UTC(),
	}
	if err := s.publisher.PublishFeedback(ctx, event); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish feedback event")
	}
}

func generateText(ctx context.Context, generator ai.Generator, request ai.GenerationRequest) (string, error) {
	response, err := generator.Generate(ctx, request)
	if err != nil {
		return "", err
	}
	return ai.Text(response)
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
