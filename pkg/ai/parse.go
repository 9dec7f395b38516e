package ai

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DecodeOutcome classifies how much of a reply could be decoded.
type DecodeOutcome string

const (
	// OutcomeComplete means the embedded object carried all six fields with valid types.
	OutcomeComplete DecodeOutcome = "complete"
	// OutcomePartial means the object parsed but some fields fell back to defaults.
	OutcomePartial DecodeOutcome = "partial"
	// OutcomeInvalidJSON means a {...} span was found but did not parse.
	OutcomeInvalidJSON DecodeOutcome = "invalid_json"
	// OutcomeNoJSON means the text had no {...} span.
	OutcomeNoJSON DecodeOutcome = "no_json"
)

const (
	defaultEncouragement        = "很好的嘗試！繼續加油！"
	defaultSpecificFeedback     = "您的發音整體不錯，繼續練習會更好。"
	defaultNextChallenge        = "嘗試更複雜的句子練習"
	defaultMotivationLevel      = "medium"
	defaultDifficultyAdjustment = "maintain"
)

func defaultImprovementTips() []string {
	return []string{"多聽多練", "注意語調"}
}

// InvalidJSONFeedback is returned when a {...} span exists but fails to parse.
func InvalidJSONFeedback() TutorFeedback {
	return TutorFeedback{
		Encouragement:    "很好的練習！您正在進步中。",
		SpecificFeedback: "繼續保持練習的節奏，您會看到明顯的改善。",
		ImprovementTips: []string{
			"每天堅持練習15分鐘",
			"注意單詞的重音位置",
			"模仿母語者的語調",
		},
		NextChallenge:        "嘗試朗讀一段新聞文章",
		MotivationLevel:      "medium",
		DifficultyAdjustment: "maintain",
	}
}

// NoJSONFeedback is returned when the reply has no {...} span at all.
func NoJSONFeedback() TutorFeedback {
	return TutorFeedback{
		Encouragement:    "很棒的嘗試！每一次練習都是進步。",
		SpecificFeedback: "您的努力很值得讚賞，繼續保持這種學習態度。",
		ImprovementTips: []string{
			"保持每日練習的習慣",
			"錄音後多聽幾遍自己的發音",
		},
		NextChallenge:        "挑戰更長的對話練習",
		MotivationLevel:      "high",
		DifficultyAdjustment: "maintain",
	}
}

const feedbackSchemaJSON = `{
  "type": "object",
  "required": ["encouragement", "specific_feedback", "improvement_tips", "next_challenge", "motivation_level", "difficulty_adjustment"],
  "properties": {
    "encouragement": {"type": "string"},
    "specific_feedback": {"type": "string"},
    "improvement_tips": {"type": "array", "items": {"type": "string"}},
    "next_challenge": {"type": "string"},
    "motivation_level": {"type": "string"},
    "difficulty_adjustment": {"type": "string"}
  }
}`

var feedbackSchema = jsonschema.MustCompileString("tutor_feedback.json", feedbackSchemaJSON)

// ExtractJSONObject returns the span from the first '{' to the last '}' inclusive.
// Nested or multiple objects in free text may yield a span that does not parse.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseTutorFeedback decodes feedback from free text. It never fails: missing or
// mistyped fields take defaults, and unparseable text yields a canned record.
func ParseTutorFeedback(text string) TutorFeedback {
	feedback, _ := DecodeTutorFeedback(text)
	return feedback
}

// DecodeTutorFeedback is ParseTutorFeedback that also reports the outcome.
func DecodeTutorFeedback(text string) (TutorFeedback, DecodeOutcome) {
	span, ok := ExtractJSONObject(text)
	if !ok {
		return NoJSONFeedback(), OutcomeNoJSON
	}

	var value interface{}
	if err := json.Unmarshal([]byte(span), &value); err != nil {
		return InvalidJSONFeedback(), OutcomeInvalidJSON
	}

	object, _ := value.(map[string]interface{})
	feedback := TutorFeedback{
		Encouragement:        stringField(object, "encouragement", defaultEncouragement),
		SpecificFeedback:     stringField(object, "specific_feedback", defaultSpecificFeedback),
		ImprovementTips:      stringListField(object, "improvement_tips"),
		NextChallenge:        stringField(object, "next_challenge", defaultNextChallenge),
		MotivationLevel:      stringField(object, "motivation_level", defaultMotivationLevel),
		DifficultyAdjustment: stringField(object, "difficulty_adjustment", defaultDifficultyAdjustment),
	}

	if err := feedbackSchema.Validate(value); err != nil {
		return feedback, OutcomePartial
	}
	return feedback, OutcomeComplete
}

func stringField(object map[string]interface{}, key, fallback string) string {
	if value, ok := object[key].(string); ok {
		return value
	}
	return fallback
}

// Non-string items are skipped; a non-array value takes the default list.
func stringListField(object map[string]interface{}, key string) []string {
	items, ok := object[key].([]interface{})
	if !ok {
		return defaultImprovementTips()
	}
	tips := make([]string, 0, len(items))
	for _, item := range items {
		if tip, ok := item.(string); ok {
			tips = append(tips, tip)
		}
	}
	return tips
}
