package ai

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport indicates the upstream call failed at the network or HTTP level.
	ErrTransport = errors.New("transport failure")
	// ErrDecode indicates the upstream body did not match the expected schema.
	ErrDecode = errors.New("decode failure")
	// ErrNoCandidates indicates a well-formed reply without any usable candidate.
	ErrNoCandidates = errors.New("no candidates returned")
)

const maxStatusBodyRunes = 256

// StatusError is returned for non-2xx upstream replies. It unwraps to ErrTransport.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if runes := []rune(body); len(runes) > maxStatusBodyRunes {
		body = string(runes[:maxStatusBodyRunes])
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, body)
}

func (e *StatusError) Unwrap() error {
	return ErrTransport
}

// ErrorKind names the failure class of err for logs and metric labels.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrNoCandidates):
		return "no_candidates"
	default:
		return "unknown"
	}
}
