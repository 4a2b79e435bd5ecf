package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kilianp07/evsession/core/decisionlog"
	"github.com/kilianp07/evsession/core/model"
)

// Topic suffixes appended to the configured prefix.
const (
	TopicAskMissing = "ask_missing"
	TopicPrediction = "prediction"
)

// Client publishes raw payloads. PahoClient and MockPublisher implement it.
type Client interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// OutcomePublisher sends every decision record to the topic matching its
// outcome.
type OutcomePublisher struct {
	client Client
	prefix string
}

// NewOutcomePublisher publishes through c under prefix.
func NewOutcomePublisher(c Client, prefix string) *OutcomePublisher {
	return &OutcomePublisher{client: c, prefix: strings.TrimSuffix(prefix, "/")}
}

// Topic returns the topic of an outcome kind.
func (p *OutcomePublisher) Topic(kind model.OutcomeKind) string {
	suffix := TopicPrediction
	if kind == model.KindAskMissing {
		suffix = TopicAskMissing
	}
	if p.prefix == "" {
		return suffix
	}
	return p.prefix + "/" + suffix
}

// PublishRecord encodes rec as JSON and publishes it.
func (p *OutcomePublisher) PublishRecord(ctx context.Context, rec decisionlog.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	return p.client.Publish(ctx, p.Topic(rec.Outcome), payload)
}

// Message is a payload captured by MockPublisher.
type Message struct {
	Topic   string
	Payload []byte
}

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	mu         sync.Mutex
	Messages   []Message
	FailTopics map[string]bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailTopics: make(map[string]bool)}
}

// Publish records the message or returns an error if configured to fail.
func (m *MockPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTopics[topic] {
		return fmt.Errorf("publish failed")
	}
	m.Messages = append(m.Messages, Message{Topic: topic, Payload: append([]byte(nil), payload...)})
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *MockPublisher) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.Messages...)
}
