//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"hiretrack/internal/notify/kafka"
	"hiretrack/pkg/testutil/containers"
)

func TestPublisherRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	broker := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const (
		directTopic  = "hiretrack.notify.direct"
		channelTopic = "hiretrack.notify.channel"
	)

	publisher, err := kafka.NewPublisher(ctx, []string{broker.Broker}, directTopic, channelTopic)
	require.NoError(t, err)
	defer publisher.Close()

	require.NoError(t, publisher.EnsureTopics(ctx, 1, 1))
	// Provisioning must be idempotent across restarts.
	require.NoError(t, publisher.EnsureTopics(ctx, 1, 1))

	require.NoError(t, publisher.SendDirect(ctx, 42, "your onboarding reminder"))
	require.NoError(t, publisher.SendChannel(ctx, -1001, "channel-wide escalation"))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(directTopic, channelTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	byTopic := map[string]*kgo.Record{}
	for len(byTopic) < 2 {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, fetches.Err())
		fetches.EachRecord(func(record *kgo.Record) {
			byTopic[record.Topic] = record
		})
	}

	direct := byTopic[directTopic]
	require.NotNil(t, direct)
	assert.Equal(t, "42", string(direct.Key))
	var directPayload struct {
		UserID int64  `json:"user_id"`
		Text   string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(direct.Value, &directPayload))
	assert.Equal(t, int64(42), directPayload.UserID)
	assert.Equal(t, "your onboarding reminder", directPayload.Text)

	channel := byTopic[channelTopic]
	require.NotNil(t, channel)
	var channelPayload struct {
		ChannelID int64  `json:"channel_id"`
		Text      string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(channel.Value, &channelPayload))
	assert.Equal(t, int64(-1001), channelPayload.ChannelID)
	assert.Equal(t, "channel-wide escalation", channelPayload.Text)
}
