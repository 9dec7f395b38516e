package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/noah-isme/speakup-api/internal/dto"
)

// FeedbackPublisher fans feedback events out to other consumers.
type FeedbackPublisher interface {
	PublishFeedback(ctx context.Context, event dto.FeedbackEvent) error
}

// subjectPublisher is the part of *nats.Conn the publisher needs.
type subjectPublisher interface {
	Publish(subject string, data []byte) error
}

type natsFeedbackPublisher struct {
	conn    subjectPublisher
	subject string
}

// NewNATSFeedbackPublisher publishes on "<channelBase>.feedback". It returns nil
// when there is no connection or channel.
func NewNATSFeedbackPublisher(conn *nats.Conn, channelBase string) FeedbackPublisher {
	if conn == nil {
		return nil
	}
	return newFeedbackPublisher(conn, channelBase)
}

func newFeedbackPublisher(conn subjectPublisher, channelBase string) FeedbackPublisher {
	if strings.TrimSpace(channelBase) == "" {
		return nil
	}
	return &natsFeedbackPublisher{
		conn:    conn,
		subject: feedbackSubject(channelBase),
	}
}

func feedbackSubject(channelBase string) string {
	return strings.ReplaceAll(strings.TrimSpace(channelBase), ":", ".") + ".feedback"
}

func (p *natsFeedbackPublisher) PublishFeedback(_ context.Context, event dto.FeedbackEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, payload)
}
