package ai

import (
	"fmt"
	"strings"
)

const (
	harmCategoryHarassment = "HARM_CATEGORY_HARASSMENT"
	harmCategoryHateSpeech = "HARM_CATEGORY_HATE_SPEECH"
	blockMediumAndAbove    = "BLOCK_MEDIUM_AND_ABOVE"
)

const tutorPromptTemplate = `你是一位專業的英語口語私人導師，具有豐富的教學經驗和激勵學生的能力。請根據學生的練習表現提供個性化的反饋和指導。

學生練習情況：
- 練習內容：%s
- 總體得分：%.1f分
- 發音準確度：%.1f分
- 流利度：%.1f分
- 完整度：%.1f分

請以JSON格式回應，包含以下字段：
{
  "encouragement": "鼓勵性話語，要具體且真誠",
  "specific_feedback": "針對具體表現的詳細反饋",
  "improvement_tips": ["改進建議1", "改進建議2", "改進建議3"],
  "next_challenge": "下一步挑戰或練習建議",
  "motivation_level": "根據表現判斷激勵程度：high/medium/low",
  "difficulty_adjustment": "難度調整建議：increase/maintain/decrease"
}

要求：
1. 鼓勵為主，建設性批評為輔
2. 提供具體可行的改進建議
3. 根據分數水平調整激勵策略
4. 像Duolingo一樣提供即時、積極的反饋
5. 使用繁體中文回應`

const practicePromptTemplate = `作為英語口語教學專家，請為學生生成個性化的練習內容。

要求：
- 主題：%s
- 難度等級：%s
- 學生興趣：%s

請生成一段適合的英語練習文本（50-100詞），要求：
1. 符合指定主題和難度
2. 融入學生的興趣點
3. 語言自然流暢
4. 適合口語練習
5. 包含常用詞彙和句型

只返回練習文本，不要其他說明。`

const speechPromptTemplate = `請將以下文本轉換為適合語音合成的格式，添加適當的語調標記和停頓：

原文：%s

要求：
1. 保持原意不變
2. 添加適當的語調變化
3. 標記重音位置
4. 適合英語學習者聽讀

只返回優化後的文本，不要其他說明。`

// BuildTutorPrompt renders the tutoring prompt. Absent metrics render as 0.0.
func BuildTutorPrompt(metrics PerformanceMetrics, practiceContext string) string {
	return fmt.Sprintf(tutorPromptTemplate,
		practiceContext,
		metrics.Score(MetricOverall),
		metrics.Score(MetricPronunciation),
		metrics.Score(MetricFluency),
		metrics.Score(MetricCompleteness),
	)
}

// BuildPracticePrompt renders the practice-content prompt.
func BuildPracticePrompt(topic, difficulty string, interests []string) string {
	return fmt.Sprintf(practicePromptTemplate, topic, difficulty, strings.Join(interests, "、"))
}

// BuildSpeechPrompt renders the speech-annotation prompt.
func BuildSpeechPrompt(text string) string {
	return fmt.Sprintf(speechPromptTemplate, text)
}

// TutorFeedbackRequest builds the request for tutoring feedback.
func TutorFeedbackRequest(metrics PerformanceMetrics, practiceContext string) GenerationRequest {
	return GenerationRequest{
		Contents: userContent(BuildTutorPrompt(metrics, practiceContext)),
		GenerationConfig: GenerationConfig{
			Temperature:     0.7,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		},
		SafetySettings: []SafetySetting{
			{Category: harmCategoryHarassment, Threshold: blockMediumAndAbove},
			{Category: harmCategoryHateSpeech, Threshold: blockMediumAndAbove},
		},
	}
}

// PracticeContentRequest builds the request for practice text.
func PracticeContentRequest(topic, difficulty string, interests []string) GenerationRequest {
	return GenerationRequest{
		Contents: userContent(BuildPracticePrompt(topic, difficulty, interests)),
		GenerationConfig: GenerationConfig{
			Temperature:     0.8,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 512,
		},
		SafetySettings: []SafetySetting{},
	}
}

// SpeechEnhanceRequest builds the request for speech-annotated text.
func SpeechEnhanceRequest(text string) GenerationRequest {
	return GenerationRequest{
		Contents: userContent(BuildSpeechPrompt(text)),
		GenerationConfig: GenerationConfig{
			Temperature:     0.3,
			TopK:            20,
			TopP:            0.8,
			MaxOutputTokens: 256,
		},
		SafetySettings: []SafetySetting{},
	}
}

func userContent(prompt string) []Content {
	return []Content{{
		Role:  "user",
		Parts: []Part{{Text: prompt}},
	}}
}
