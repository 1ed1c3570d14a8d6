package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apache/pulsar-client-go/pulsar"
)

// SyncRequest asks the engine to sync one entity. Other systems of record
// publish these to trigger provisioning without going through the HTTP API.
type SyncRequest struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
}

type SyncRequestConsumer struct {
	client   pulsar.Client
	consumer pulsar.Consumer
}

// NewSyncRequestConsumer initializes the Pulsar client and consumer.
func NewSyncRequestConsumer(pulsarURL, topic, subscription string) (*SyncRequestConsumer, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{URL: pulsarURL})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	consumer, err := client.Subscribe(pulsar.ConsumerOptions{
		Topic:            topic,
		SubscriptionName: subscription,
		Type:             pulsar.Shared,
		DLQ: &pulsar.DLQPolicy{
			MaxDeliveries:   3,
			DeadLetterTopic: topic + "-dlq",
		},
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create Pulsar consumer: %w", err)
	}

	return &SyncRequestConsumer{client: client, consumer: consumer}, nil
}

// Receive blocks for the next sync request. The raw message is returned
// alongside so the caller can ack or nack it once handled.
func (c *SyncRequestConsumer) Receive(ctx context.Context) (*SyncRequest, pulsar.Message, error) {
	msg, err := c.consumer.Receive(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to receive message: %w", err)
	}

	var req SyncRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		return nil, msg, fmt.Errorf("malformed sync request: %w", err)
	}
	return &req, msg, nil
}

// Ack acknowledges a message.
func (c *SyncRequestConsumer) Ack(msg pulsar.Message) {
	c.consumer.Ack(msg)
}

// Nack negatively acknowledges a message.
func (c *SyncRequestConsumer) Nack(msg pulsar.Message) {
	c.consumer.Nack(msg)
}

// Close cleans up the Pulsar consumer and client.
func (c *SyncRequestConsumer) Close() {
	c.consumer.Close()
	c.client.Close()
}
