package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "speakup",
		Subsystem: "ai",
		Name:      "generate_duration_seconds",
		Help:      "Duration of text generation requests",
	}, []string{"provider", "model"})

	generateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "speakup",
		Subsystem: "ai",
		Name:      "generate_failures_total",
		Help:      "Number of failed text generation requests",
	}, []string{"provider", "model", "kind"})

	generateTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "speakup",
		Subsystem: "ai",
		Name:      "generate_tokens_total",
		Help:      "Tokens reported by the generation backend",
	}, []string{"provider", "model", "direction"})

	feedbackDecodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "speakup",
		Subsystem: "ai",
		Name:      "feedback_decode_total",
		Help:      "Tutor feedback decode outcomes",
	}, []string{"outcome"})
)

// RecordDecodeOutcome counts a feedback decode outcome.
func RecordDecodeOutcome(outcome DecodeOutcome) {
	feedbackDecodes.WithLabelValues(string(outcome)).Inc()
}

func recordUsage(provider, model string, usage *UsageMetadata) {
	if usage == nil || usage.PromptTokenCount < 0 || usage.CandidatesTokenCount < 0 {
		return
	}
	generateTokens.WithLabelValues(provider, model, "prompt").Add(float64(usage.PromptTokenCount))
	generateTokens.WithLabelValues(provider, model, "candidates").Add(float64(usage.CandidatesTokenCount))
}
