package dto

import (
	"time"

	"github.com/noah-isme/speakup-api/pkg/ai"
)

// ServiceKeyRequest carries the API key for initialize and test-connection.
type ServiceKeyRequest struct {
	APIKey string `json:"api_key" validate:"required"`
}

// TutorFeedbackRequest is the payload for tutoring feedback. Metric values are
// loosely typed because the UI sends whatever its scorer produced.
type TutorFeedbackRequest struct {
	PerformanceMetrics map[string]interface{} `json:"performance_metrics"`
	Context            string                 `json:"context"`
}

// TutorFeedbackResponse mirrors ai.TutorFeedback for API consumers.
type TutorFeedbackResponse struct {
	Encouragement        string   `json:"encouragement"`
	SpecificFeedback     string   `json:"specific_feedback"`
	ImprovementTips      []string `json:"improvement_tips"`
	NextChallenge        string   `json:"next_challenge"`
	MotivationLevel      string   `json:"motivation_level"`
	DifficultyAdjustment string   `json:"difficulty_adjustment"`
}

// NewTutorFeedbackResponse converts a feedback record into its response DTO.
func NewTutorFeedbackResponse(feedback ai.TutorFeedback) TutorFeedbackResponse {
	tips := feedback.ImprovementTips
	if tips == nil {
		tips = []string{}
	}
	return TutorFeedbackResponse{
		Encouragement:        feedback.Encouragement,
		SpecificFeedback:     feedback.SpecificFeedback,
		ImprovementTips:      tips,
		NextChallenge:        feedback.NextChallenge,
		MotivationLevel:      feedback.MotivationLevel,
		DifficultyAdjustment: feedback.DifficultyAdjustment,
	}
}

// PracticeContentRequest is the payload for practice-text generation. Unknown or
// empty topics are accepted and served by the generic fallback when needed.
type PracticeContentRequest struct {
	Topic      string   `json:"topic"`
	Difficulty string   `json:"difficulty"`
	Interests  []string `json:"interests"`
}

// PracticeContentResponse wraps generated practice text.
type PracticeContentResponse struct {
	Content string `json:"content"`
}

// SpeechEnhanceRequest is the payload for speech-annotated text.
type SpeechEnhanceRequest struct {
	Text  string `json:"text" validate:"required"`
	Voice string `json:"voice"`
}

// SpeechEnhancement is the JSON document returned as a string to the UI.
type SpeechEnhancement struct {
	EnhancedText string `json:"enhanced_text"`
	OriginalText string `json:"original_text"`
}

// SpeechEnhanceResponse wraps the serialized SpeechEnhancement.
type SpeechEnhanceResponse struct {
	Result string `json:"result"`
}

// FeedbackEvent is published after each feedback request.
type FeedbackEvent struct {
	Source      string                `json:"source"`
	Outcome     string                `json:"outcome"`
	Metrics     ai.PerformanceMetrics `json:"metrics"`
	Feedback    TutorFeedbackResponse `json:"feedback"`
	GeneratedAt time.Time             `json:"generated_at"`
}
