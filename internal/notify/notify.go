// Package notify delivers reminder and escalation messages to people and
// shared channels. Delivery is fire-and-forget from the scheduler's point of
// view; a failed send is reported, never retried inline.
package notify

import (
	"context"
	"sync"
)

// Notifier is the outbound messaging port.
type Notifier interface {
	// SendDirect delivers text to a single user.
	SendDirect(ctx context.Context, userID int64, text string) error
	// SendChannel posts text to a shared channel.
	SendChannel(ctx context.Context, channelID int64, text string) error
}

// Message is one delivery recorded by the Memory notifier.
type Message struct {
	UserID    int64
	ChannelID int64
	Text      string
}

// Memory records deliveries instead of sending them. It backs unit tests and
// the no-broker development mode.
type Memory struct {
	mu      sync.Mutex
	direct  []Message
	channel []Message

	// FailDirect and FailChannel, when set, are returned instead of
	// recording. Tests use them to exercise delivery failure paths.
	FailDirect  error
	FailChannel error
}

// NewMemory returns an empty recording notifier.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SendDirect(_ context.Context, userID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDirect != nil {
		return m.FailDirect
	}
	m.direct = append(m.direct, Message{UserID: userID, Text: text})
	return nil
}

func (m *Memory) SendChannel(_ context.Context, channelID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailChannel != nil {
		return m.FailChannel
	}
	m.channel = append(m.channel, Message{ChannelID: channelID, Text: text})
	return nil
}

// Direct returns a copy of the recorded direct messages.
func (m *Memory) Direct() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.direct))
	copy(out, m.direct)
	return out
}

// Channel returns a copy of the recorded channel messages.
func (m *Memory) Channel() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.channel))
	copy(out, m.channel)
	return out
}

// Reset drops all recorded messages.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.direct = nil
	m.channel = nil
	m.FailDirect = nil
	m.FailChannel = nil
}
