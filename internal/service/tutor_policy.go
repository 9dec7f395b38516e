package service

import (
	"errors"
)

// ErrServiceUninitialized indicates an operation ran before an API key was configured.
var ErrServiceUninitialized = errors.New("Gemini service not initialized. Please set up your API key first.")

// ErrAPIKeyRequired indicates an empty API key was supplied.
var ErrAPIKeyRequired = errors.New("api key is required")

// Operation names a tutor operation for policy decisions and logs.
type Operation string

const (
	OperationFeedback        Operation = "feedback"
	OperationPracticeContent Operation = "practice_content"
	OperationSpeechEnhance   Operation = "speech_enhance"
	OperationTestConnection  Operation = "test_connection"
)

// Decision says what the boundary does with an inner error.
type Decision int

const (
	// Surface returns the error to the caller.
	Surface Decision = iota
	// Substitute replaces the error with fallback content.
	Substitute
)

func (d Decision) String() string {
	if d == Substitute {
		return "substitute"
	}
	return "surface"
}

// Source reports where a result came from.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
	SourceCache    Source = "cache"
)

// Policy maps an inner error to a decision for the given operation. Missing
// configuration is always surfaced. Feedback and practice content substitute
// every other failure; the remaining operations surface everything.
func Policy(op Operation, err error) Decision {
	if err == nil || errors.Is(err, ErrServiceUninitialized) {
		return Surface
	}

	switch op {
	case OperationFeedback, OperationPracticeContent:
		return Substitute
	default:
		return Surface
	}
}
