package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/speakup-api/internal/dto"
	"github.com/noah-isme/speakup-api/pkg/ai"
)

type stubGenerator struct {
	mu       sync.Mutex
	text     string
	err      error
	empty    bool
	requests []ai.GenerationRequest
}

func (g *stubGenerator) Generate(ctx context.Context, req ai.GenerationRequest) (ai.GenerationResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return ai.GenerationResponse{}, g.err
	}
	if g.empty {
		return ai.GenerationResponse{Candidates: []ai.Candidate{}}, nil
	}
	return ai.GenerationResponse{Candidates: []ai.Candidate{{
		Content: ai.Content{Parts: []ai.Part{{Text: g.text}}},
	}}}, nil
}

func (g *stubGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

type stubPublisher struct {
	events []dto.FeedbackEvent
	err    error
}

func (p *stubPublisher) PublishFeedback(_ context.Context, event dto.FeedbackEvent) error {
	p.events = append(p.events, event)
	return p.err
}

type factoryRecorder struct {
	generator ai.Generator
	err       error
	settings  []ai.Settings
}

func (f *factoryRecorder) build(settings ai.Settings, _ zerolog.Logger) (ai.Generator, error) {
	f.settings = append(f.settings, settings)
	if f.err != nil {
		return nil, f.err
	}
	return f.generator, nil
}

func newTestTutorService(t *testing.T, deps TutorDependencies) TutorService {
	t.Helper()
	return NewTutorService(deps, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
}

func initializedService(t *testing.T, gen ai.Generator, deps TutorDependencies) TutorService {
	t.Helper()
	factory := &factoryRecorder{generator: gen}
	deps.Factory = factory.build
	svc := newTestTutorService(t, deps)
	require.NoError(t, svc.Initialize(context.Background(), dto.ServiceKeyRequest{APIKey: "key"}))
	return svc
}

func TestTutorServiceRequiresInitialization(t *testing.T) {
	svc := newTestTutorService(t, TutorDependencies{Factory: (&factoryRecorder{generator: &stubGenerator{}}).build})
	ctx := context.Background()

	require.False(t, svc.Configured())

	_, err := svc.TutorFeedback(ctx, dto.TutorFeedbackRequest{Context: "hello"})
	require.ErrorIs(t, err, ErrServiceUninitialized)

	_, err = svc.PracticeContent(ctx, dto.PracticeContentRequest{Topic: "daily", Difficulty: "beginner"})
	require.ErrorIs(t, err, ErrServiceUninitialized)

	_, err = svc.EnhanceSpeech(ctx, dto.SpeechEnhanceRequest{Text: "hello"})
	require.ErrorIs(t, err, ErrServiceUninitialized)
	require.Contains(t, err.Error(), "Please set up your API key first")
}

func TestTutorServiceInitializeUsesConfiguredProvider(t *testing.T) {
	factory := &factoryRecorder{generator: &stubGenerator{}}
	svc := newTestTutorService(t, TutorDependencies{
		Settings: ai.Settings{Provider: "gemini", Model: "gemini-test", BaseURL: "http://upstream"},
		Factory:  factory.build,
	})

	require.ErrorIs(t, svc.Initialize(context.Background(), dto.ServiceKeyRequest{APIKey: "   "}), ErrAPIKeyRequired)
	require.NoError(t, svc.Initialize(context.Background(), dto.ServiceKeyRequest{APIKey: " abc "}))

	require.True(t, svc.Configured())
	require.Equal(t, []ai.Settings{{Provider: "gemini", Model: "gemini-test", BaseURL: "http://upstream", APIKey: "abc"}}, factory.settings)
}

func TestTutorServicePreInitializedFromSettings(t *testing.T) {
	factory := &factoryRecorder{generator: &stubGenerator{}}
	svc := newTestTutorService(t, TutorDependencies{
		Settings: ai.Settings{APIKey: "from-env"},
		Factory:  factory.build,
	})

	require.True(t, svc.Configured())
	require.Len(t, factory.settings, 1)
}

func TestTutorServiceFeedbackFromModel(t *testing.T) {
	gen := &stubGenerator{text: `Sure! {"encouragement":"Great job!","specific_feedback":"Good pace.","improvement_tips":["Slow down"],"next_challenge":"Try longer text","motivation_level":"high","difficulty_adjustment":"maintain"}`}
	publisher := &stubPublisher{}
	svc := initializedService(t, gen, TutorDependencies{Publisher: publisher})

	result, err := svc.TutorFeedback(context.Background(), dto.TutorFeedbackRequest{
		PerformanceMetrics: map[string]interface{}{"overall": 82.0, "fluency": 77.5},
		Context:            "Ordering coffee",
	})
	require.NoError(t, err)
	require.Equal(t, SourceModel, result.Source)
	require.Equal(t, ai.OutcomeComplete, result.Outcome)
	require.Equal(t, "Great job!", result.Feedback.Encouragement)
	require.Equal(t, []string{"Slow down"}, result.Feedback.ImprovementTips)

	require.Len(t, gen.requests, 1)
	prompt := gen.requests[0].Contents[0].Parts[0].Text
	require.Contains(t, prompt, "Ordering coffee")
	require.Contains(t, prompt, "總體得分：82.0分")
	require.Contains(t, prompt, "流利度：77.5分")

	require.Len(t, publisher.events, 1)
	require.Equal(t, "model", publisher.events[0].Source)
	require.Equal(t, "complete", publisher.events[0].Outcome)
	require.Equal(t, "Great job!", publisher.events[0].Feedback.Encouragement)
}

func TestTutorServiceFeedbackCannedWhenReplyIsNotJSON(t *testing.T) {
	svc := initializedService(t, &stubGenerator{text: "I cannot produce JSON today."}, TutorDependencies{})

	result, err := svc.TutorFeedback(context.Background(), dto.TutorFeedbackRequest{})
	require.NoError(t, err)
	require.Equal(t, SourceModel, result.Source)
	require.Equal(t, ai.OutcomeNoJSON, result.Outcome)
	require.Equal(t, ai.NoJSONFeedback(), result.Feedback)
}

func TestTutorServiceFeedbackFallbackOnTransportFailure(t *testing.T) {
	transportErr := fmt.Errorf("gemini generate: %w: connection refused", ai.ErrTransport)
	publisher := &stubPublisher{err: errors.New("nats down")}
	svc := initializedService(t, &stubGenerator{err: transportErr}, TutorDependencies{Publisher: publisher})

	cases := map[float64]string{85: "high", 65: "medium", 30: "high"}
	for overall, motivation := range cases {
		result, err := svc.TutorFeedback(context.Background(), dto.TutorFeedbackRequest{
			PerformanceMetrics: map[string]interface{}{"overall": overall},
		})
		require.NoError(t, err)
		require.Equal(t, SourceFallback, result.Source)
		require.ErrorIs(t, result.Cause, ai.ErrTransport)
		require.Equal(t, ai.FallbackFeedback(ai.PerformanceMetrics{"overall": overall}), result.Feedback)
		require.Equal(t, motivation, result.Feedback.MotivationLevel)
	}
	require.Len(t, publisher.events, 3)
	require.Equal(t, "fallback", publisher.events[0].Source)
}

func TestTutorServiceFeedbackFallbackOnNoCandidates(t *testing.T) {
	svc := initializedService(t, &stubGenerator{empty: true}, TutorDependencies{})

	result, err := svc.TutorFeedback(context.Background(), dto.TutorFeedbackRequest{})
	require.NoError(t, err)
	require.Equal(t, SourceFallback, result.Source)
	require.ErrorIs(t, result.Cause, ai.ErrNoCandidates)
}

func TestTutorServicePracticeContent(t *testing.T) {
	gen := &stubGenerator{text: "\n  Let's plan a weekend hike.  \n"}
	svc := initializedService(t, gen, TutorDependencies{})

	result, err := svc.PracticeContent(context.Background(), dto.PracticeContentRequest{
		Topic: "daily", Difficulty: "beginner", Interests: []string{"hiking", "food"},
	})
	require.NoError(t, err)
	require.Equal(t, SourceModel, result.Source)
	require.Equal(t, "Let's plan a weekend hike.", result.Content)
	require.Contains(t, gen.requests[0].Contents[0].Parts[0].Text, "hiking、food")
}

func TestTutorServicePracticeContentFallback(t *testing.T) {
	svc := initializedService(t, &stubGenerator{err: fmt.Errorf("%w: bad body", ai.ErrDecode)}, TutorDependencies{})

	result, err := svc.PracticeContent(context.Background(), dto.PracticeContentRequest{Topic: "business", Difficulty: "beginner"})
	require.NoError(t, err)
	require.Equal(t, SourceFallback, result.Source)
	require.Equal(t, ai.FallbackPracticeContent("business", "beginner"), result.Content)

	result, err = svc.PracticeContent(context.Background(), dto.PracticeContentRequest{})
	require.NoError(t, err)
	require.Equal(t, SourceFallback, result.Source)
	require.Equal(t, ai.FallbackPracticeContent("", ""), result.Content)
}

func TestTutorServiceSpeechRequiresText(t *testing.T) {
	svc := initializedService(t, &stubGenerator{text: "ok"}, TutorDependencies{})

	_, err := svc.EnhanceSpeech(context.Background(), dto.SpeechEnhanceRequest{Voice: "Kore"})
	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))
}

func TestTutorServiceEnhanceSpeechEncodesResult(t *testing.T) {
	svc := initializedService(t, &stubGenerator{text: " I'd ↗like a \"latte\", please. "}, TutorDependencies{})

	original := `I'd like a "latte", please.`
	raw, err := svc.EnhanceSpeech(context.Background(), dto.SpeechEnhanceRequest{Text: original})
	require.NoError(t, err)

	var decoded dto.SpeechEnhancement
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	require.Equal(t, `I'd ↗like a "latte", please.`, decoded.EnhancedText)
	require.Equal(t, original, decoded.OriginalText)
}

func TestTutorServiceEnhanceSpeechSurfacesErrors(t *testing.T) {
	svc := initializedService(t, &stubGenerator{empty: true}, TutorDependencies{})

	_, err := svc.EnhanceSpeech(context.Background(), dto.SpeechEnhanceRequest{Text: "hello"})
	require.ErrorIs(t, err, ai.ErrNoCandidates)
	require.True(t, strings.HasPrefix(err.Error(), "Gemini語音合成失敗: "))
}

func TestTutorServiceEnhanceSpeechUsesCache(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	cache := NewRedisEnhancementCache(redisClient, time.Minute)
	gen := &stubGenerator{text: "Hel-LO!"}
	svc := initializedService(t, gen, TutorDependencies{Cache: cache})

	ctx := context.Background()
	first, err := svc.EnhanceSpeech(ctx, dto.SpeechEnhanceRequest{Text: "hello   there", Voice: "Kore"})
	require.NoError(t, err)
	second, err := svc.EnhanceSpeech(ctx, dto.SpeechEnhanceRequest{Text: " hello there ", Voice: "Kore"})
	require.NoError(t, err)

	require.Equal(t, 1, gen.calls())
	require.Equal(t, first, second)

	_, err = svc.EnhanceSpeech(ctx, dto.SpeechEnhanceRequest{Text: "hello there", Voice: "Puck"})
	require.NoError(t, err)
	require.Equal(t, 2, gen.calls())

	key := EnhancementCacheKey("hello there", "Kore", "en", "gemini", "")
	require.True(t, mini.Exists(key))
	require.Equal(t, time.Minute, mini.TTL(key))
}

func TestTutorServiceEnhanceSpeechIgnoresCacheFailure(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	mini.Close()

	gen := &stubGenerator{text: "ok"}
	svc := initializedService(t, gen, TutorDependencies{Cache: NewRedisEnhancementCache(redisClient, time.Minute)})

	_, err = svc.EnhanceSpeech(context.Background(), dto.SpeechEnhanceRequest{Text: "hello"})
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls())
}

func TestTutorServiceTestConnection(t *testing.T) {
	long := strings.Repeat("語", 60)
	factory := &factoryRecorder{generator: &stubGenerator{text: long}}
	svc := newTestTutorService(t, TutorDependencies{Factory: factory.build})

	message, err := svc.TestConnection(context.Background(), dto.ServiceKeyRequest{APIKey: "key"})
	require.NoError(t, err)
	require.Equal(t, "連接測試成功！生成的測試內容："+strings.Repeat("語", 50), message)
	require.True(t, svc.Configured())

	req := factory.generator.(*stubGenerator).requests[0]
	require.Contains(t, req.Contents[0].Parts[0].Text, "主題：daily")
	require.Contains(t, req.Contents[0].Parts[0].Text, "學生興趣：測試")
}

func TestTutorServiceTestConnectionFailureKeepsState(t *testing.T) {
	factory := &factoryRecorder{generator: &stubGenerator{err: &ai.StatusError{StatusCode: 403, Body: "API key not valid"}}}
	svc := newTestTutorService(t, TutorDependencies{Factory: factory.build})

	_, err := svc.TestConnection(context.Background(), dto.ServiceKeyRequest{APIKey: "bad"})
	require.ErrorIs(t, err, ai.ErrTransport)
	require.True(t, strings.HasPrefix(err.Error(), "連接測試失敗："))
	require.False(t, svc.Configured())
}

func TestTutorServiceConcurrentReconfigure(t *testing.T) {
	gen := &stubGenerator{text: `{"encouragement":"ok"}`}
	var factoryMu sync.Mutex
	factory := func(ai.Settings, zerolog.Logger) (ai.Generator, error) {
		factoryMu.Lock()
		defer factoryMu.Unlock()
		return gen, nil
	}
	svc := newTestTutorService(t, TutorDependencies{Factory: factory})
	require.NoError(t, svc.Initialize(context.Background(), dto.ServiceKeyRequest{APIKey: "k0"}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, svc.Initialize(context.Background(), dto.ServiceKeyRequest{APIKey: fmt.Sprintf("k%d", i)}))
		}(i)
		go func() {
			defer wg.Done()
			result, err := svc.TutorFeedback(context.Background(), dto.TutorFeedbackRequest{})
			assert.NoError(t, err)
			assert.Equal(t, "ok", result.Feedback.Encouragement)
		}()
	}
	wg.Wait()
	require.Equal(t, 20, gen.calls())
}

type blockingGenerator struct {
	started chan struct{}
	release chan struct{}
}

func (g *blockingGenerator) Generate(ctx context.Context, _ ai.GenerationRequest) (ai.GenerationResponse, error) {
	close(g.started)
	select {
	case <-g.release:
	case <-ctx.Done():
		return ai.GenerationResponse{}, ctx.Err()
	}
	return ai.GenerationResponse{Candidates: []ai.Candidate{{
		Content: ai.Content{Parts: []ai.Part{{Text: `{"encouragement":"ok"}`}}},
	}}}, nil
}

func TestTutorServiceInitializeDoesNotWaitForInFlightGeneration(t *testing.T) {
	gen := &blockingGenerator{started: make(chan struct{}), release: make(chan struct{})}
	svc := initializedService(t, gen, TutorDependencies{})

	feedbackDone := make(chan error, 1)
	go func() {
		_, err := svc.TutorFeedback(context.Background(), dto.TutorFeedbackRequest{})
		feedbackDone <- err
	}()

	select {
	case <-gen.started:
	case <-time.After(2 * time.Second):
		t.Fatal("generation never started")
	}

	initDone := make(chan error, 1)
	go func() {
		initDone <- svc.Initialize(context.Background(), dto.ServiceKeyRequest{APIKey: "rotated"})
	}()

	select {
	case err := <-initDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(gen.release)
		t.Fatal("Initialize waited for an in-flight generation")
	}

	close(gen.release)
	require.NoError(t, <-feedbackDone)
}

func TestTutorServicePassesUntaggedLoggerToGenerators(t *testing.T) {
	var buf bytes.Buffer
	var generatorLogger zerolog.Logger
	factory := func(_ ai.Settings, logger zerolog.Logger) (ai.Generator, error) {
		generatorLogger = logger
		return &stubGenerator{}, nil
	}
	svc := NewTutorService(TutorDependencies{Factory: factory}, validator.New(), zerolog.New(&buf))

	require.NoError(t, svc.Initialize(context.Background(), dto.ServiceKeyRequest{APIKey: "key"}))
	buf.Reset()

	generatorLogger.Info().Msg("from generator")
	require.Contains(t, buf.String(), "from generator")
	require.NotContains(t, buf.String(), "tutor_service")
}

type recordingConn struct {
	subject string
	data    []byte
	err     error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	c.subject = subject
	c.data = data
	return c.err
}

func TestFeedbackPublisherSubjectAndPayload(t *testing.T) {
	conn := &recordingConn{}
	publisher := newFeedbackPublisher(conn, "speakup:events")
	require.NotNil(t, publisher)

	generatedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	event := dto.FeedbackEvent{
		Source:      "fallback",
		Outcome:     "",
		Metrics:     ai.PerformanceMetrics{"overall": 65},
		Feedback:    dto.NewTutorFeedbackResponse(ai.FallbackFeedback(ai.PerformanceMetrics{"overall": 65})),
		GeneratedAt: generatedAt,
	}
	require.NoError(t, publisher.PublishFeedback(context.Background(), event))
	require.Equal(t, "speakup.events.feedback", conn.subject)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(conn.data, &payload))
	require.Equal(t, "fallback", payload["source"])
	require.Equal(t, "2026-01-02T03:04:05Z", payload["generated_at"])
	require.Equal(t, float64(65), payload["metrics"].(map[string]interface{})["overall"])
	require.Equal(t, "medium", payload["feedback"].(map[string]interface{})["motivation_level"])

	conn.err = errors.New("nats: connection closed")
	require.Error(t, publisher.PublishFeedback(context.Background(), event))
}

func TestFeedbackPublisherRequiresConnectionAndChannel(t *testing.T) {
	require.Nil(t, NewNATSFeedbackPublisher(nil, "speakup"))
	require.Nil(t, newFeedbackPublisher(&recordingConn{}, "  "))
	require.Equal(t, "a.b.c.feedback", feedbackSubject("a:b.c"))
}

func TestPolicy(t *testing.T) {
	transport := fmt.Errorf("x: %w", ai.ErrTransport)

	require.Equal(t, Substitute, Policy(OperationFeedback, transport))
	require.Equal(t, Substitute, Policy(OperationPracticeContent, ai.ErrNoCandidates))
	require.Equal(t, Substitute, Policy(OperationFeedback, errors.New("unexpected")))
	require.Equal(t, Surface, Policy(OperationSpeechEnhance, transport))
	require.Equal(t, Surface, Policy(OperationTestConnection, ai.ErrDecode))
	require.Equal(t, Surface, Policy(OperationFeedback, ErrServiceUninitialized))
	require.Equal(t, Surface, Policy(OperationFeedback, nil))
}

func TestEnhancementCacheKey(t *testing.T) {
	base := EnhancementCacheKey("hello  world", "Kore", "en", "gemini", "gemini-1.5-pro")

	require.True(t, strings.HasPrefix(base, "speakup:enhance:"))
	require.Equal(t, base, EnhancementCacheKey("  hello world\n", "Kore", "en", "gemini", "gemini-1.5-pro"))
	require.NotEqual(t, base, EnhancementCacheKey("Hello world", "Kore", "en", "gemini", "gemini-1.5-pro"))
	require.NotEqual(t, base, EnhancementCacheKey("hello world", "Kore", "en", "openai", "gemini-1.5-pro"))
	require.NotEqual(t, base, EnhancementCacheKey("hello world", "Kore", "en", "gemini", "gemini-2.0"))
	require.Equal(t, EnhancementCacheKey("x", "", "", "", ""), EnhancementCacheKey("x", "", "", "unknown", "1"))
}
