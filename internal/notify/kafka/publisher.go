// Package kafka publishes notification events to Kafka topics. A downstream
// delivery worker owns the actual chat or email transport; this process only
// guarantees the event reaches the broker.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// directEvent is the payload for person-addressed notifications.
type directEvent struct {
	UserID int64     `json:"user_id"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// channelEvent is the payload for channel-addressed notifications.
type channelEvent struct {
	ChannelID int64     `json:"channel_id"`
	Text      string    `json:"text"`
	SentAt    time.Time `json:"sent_at"`
}

// Publisher implements the notifier port on top of a Kafka producer.
type Publisher struct {
	client       *kgo.Client
	directTopic  string
	channelTopic string
}

// NewPublisher connects to the given brokers and verifies the connection.
func NewPublisher(ctx context.Context, brokers []string, directTopic, channelTopic string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping kafka brokers: %w", err)
	}
	return &Publisher{client: client, directTopic: directTopic, channelTopic: channelTopic}, nil
}

// SendDirect publishes a person-addressed notification event. The record is
// keyed by user ID so one recipient's messages stay ordered.
func (p *Publisher) SendDirect(ctx context.Context, userID int64, text string) error {
	payload, err := json.Marshal(directEvent{UserID: userID, Text: text, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal direct event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.directTopic,
		Key:   []byte(strconv.FormatInt(userID, 10)),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce direct notification: %w", err)
	}
	return nil
}

// SendChannel publishes a channel-addressed notification event.
func (p *Publisher) SendChannel(ctx context.Context, channelID int64, text string) error {
	payload, err := json.Marshal(channelEvent{ChannelID: channelID, Text: text, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal channel event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.channelTopic,
		Key:   []byte(strconv.FormatInt(channelID, 10)),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce channel notification: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the producer.
func (p *Publisher) Close() {
	p.client.Close()
}
