package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Message is a publication captured by MockPublisher.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// MockPublisher records publications in memory.
type MockPublisher struct {
	mu       sync.Mutex
	Messages []Message
	// FailTopics makes Publish fail for the listed topics.
	FailTopics map[string]bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailTopics: make(map[string]bool)}
}

// Publish records the encoded message or fails if configured to.
func (m *MockPublisher) Publish(topic string, v any, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTopics[topic] {
		return fmt.Errorf("publish to %s failed", topic)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.Messages = append(m.Messages, Message{Topic: topic, Payload: b, Retained: retained})
	return nil
}

// Disconnect is a no-op.
func (m *MockPublisher) Disconnect() {}

// Topics returns the topics published so far in order.
func (m *MockPublisher) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Messages))
	for i, msg := range m.Messages {
		out[i] = msg.Topic
	}
	return out
}
