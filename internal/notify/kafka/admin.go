package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
)

// EnsureTopics creates the notification topics if the broker does not have
// them yet. Already existing topics are fine; any other creation failure is
// reported so startup can abort before the scheduler begins publishing.
func (p *Publisher) EnsureTopics(ctx context.Context, partitions int32, replicationFactor int16) error {
	admin := kadm.NewClient(p.client)

	responses, err := admin.CreateTopics(ctx, partitions, replicationFactor, nil, p.directTopic, p.channelTopic)
	if err != nil {
		return fmt.Errorf("create notification topics: %w", err)
	}
	for _, response := range responses.Sorted() {
		if response.Err != nil && !errors.Is(response.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", response.Topic, response.Err)
		}
	}
	return nil
}
