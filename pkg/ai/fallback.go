package ai

// FallbackFeedback builds offline feedback from the overall score.
func FallbackFeedback(metrics PerformanceMetrics) TutorFeedback {
	overall := metrics.Score(MetricOverall)

	encouragement, motivation := "每一次練習都是進步，不要氣餒，您一定會越來越好！", "high"
	switch {
	case overall >= 80:
		encouragement, motivation = "太棒了！您的發音非常標準，繼續保持這種優秀的表現！", "high"
	case overall >= 60:
		encouragement, motivation = "很好的進步！您正在穩步提升，繼續努力！", "medium"
	}

	return TutorFeedback{
		Encouragement:    encouragement,
		SpecificFeedback: "您的努力很值得讚賞，在發音準確度方面有不錯的表現。",
		ImprovementTips: []string{
			"每天堅持練習15-20分鐘",
			"注意單詞的重音和語調",
			"多聽母語者的發音並模仿",
		},
		NextChallenge:        "嘗試挑戰更複雜的句型練習",
		MotivationLevel:      motivation,
		DifficultyAdjustment: "maintain",
	}
}

type practiceKey struct {
	topic      string
	difficulty string
}

var fallbackPractice = map[practiceKey]string{
	{"daily", "beginner"}:        "Hello! How are you today? I hope you have a great day. What are your plans for this weekend?",
	{"daily", "intermediate"}:    "Good morning! I was wondering if you could help me with something. I'm looking for a good restaurant nearby. Do you have any recommendations?",
	{"business", "beginner"}:     "Good morning. I would like to schedule a meeting. When would be a good time for you? Thank you for your time.",
	{"business", "intermediate"}: "I'd like to discuss our quarterly results and explore new opportunities for growth. Could we arrange a conference call with the team next week?",
}

const defaultPracticeContent = "Practice makes perfect. The more you speak, the more confident you become. Keep up the great work and don't be afraid to make mistakes."

// FallbackPracticeContent returns canned practice text for a topic and difficulty.
func FallbackPracticeContent(topic, difficulty string) string {
	if content, ok := fallbackPractice[practiceKey{topic, difficulty}]; ok {
		return content
	}
	return defaultPracticeContent
}
