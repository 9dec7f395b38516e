package ai

import "context"

// Metric names understood by the tutor prompt.
const (
	MetricOverall       = "overall"
	MetricPronunciation = "pronunciation"
	MetricFluency       = "fluency"
	MetricCompleteness  = "completeness"
)

// PerformanceMetrics maps a metric name to a score in [0,100].
type PerformanceMetrics map[string]float64

// Score returns the named score, or 0 when absent.
func (m PerformanceMetrics) Score(name string) float64 {
	if m == nil {
		return 0
	}
	return m[name]
}

// MetricsFromValues converts a loosely typed JSON map into PerformanceMetrics.
// Values that are not numbers read as 0.
func MetricsFromValues(values map[string]interface{}) PerformanceMetrics {
	metrics := make(PerformanceMetrics, len(values))
	for key, value := range values {
		switch v := value.(type) {
		case float64:
			metrics[key] = v
		case float32:
			metrics[key] = float64(v)
		case int:
			metrics[key] = float64(v)
		case int64:
			metrics[key] = float64(v)
		default:
			metrics[key] = 0
		}
	}
	return metrics
}

// TutorFeedback is the structured feedback shown after a practice attempt.
type TutorFeedback struct {
	Encouragement        string   `json:"encouragement"`
	SpecificFeedback     string   `json:"specific_feedback"`
	ImprovementTips      []string `json:"improvement_tips"`
	NextChallenge        string   `json:"next_challenge"`
	MotivationLevel      string   `json:"motivation_level"`
	DifficultyAdjustment string   `json:"difficulty_adjustment"`
}

// GenerationRequest is the body of a generateContent call.
type GenerationRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
	SafetySettings   []SafetySetting  `json:"safetySettings"`
}

// Content is a single conversational turn.
type Content struct {
	Parts []Part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

// Part is one text fragment of a Content.
type Part struct {
	Text string `json:"text"`
}

// GenerationConfig carries the sampling parameters.
type GenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float32 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// SafetySetting sets a block threshold for one harm category.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// GenerationResponse is the reply of a generateContent call.
type GenerationResponse struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}

// Candidate is one generated completion.
type Candidate struct {
	Content       Content        `json:"content"`
	FinishReason  string         `json:"finishReason,omitempty"`
	Index         int            `json:"index"`
	SafetyRatings []SafetyRating `json:"safetyRatings,omitempty"`
}

// SafetyRating reports the probability of one harm category.
type SafetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
}

// UsageMetadata is the token accounting of a call.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Generator sends a GenerationRequest to a text-generation backend.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResponse, error)
}
