package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/dirsync/scim-provisioner/models"
	"github.com/rs/zerolog"
)

// EventPublisher publishes sync events to Pulsar. It is constructed
// explicitly and injected; there is no global instance.
type EventPublisher struct {
	client   pulsar.Client
	producer pulsar.Producer
	log      *zerolog.Logger
}

// NewEventPublisher initializes the Pulsar client and producer.
func NewEventPublisher(pulsarURL, topic string, log *zerolog.Logger) (*EventPublisher, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: pulsarURL,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: topic,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create Pulsar producer: %w", err)
	}

	log.Info().Str("topic", topic).Msg("Pulsar client and producer initialized")
	return &EventPublisher{
		client:   client,
		producer: producer,
		log:      log,
	}, nil
}

// Notify publishes a sync event. Publishing is asynchronous: a sync pass must
// never block or fail on the audit stream, so delivery errors are only logged.
func (p *EventPublisher) Notify(event models.SyncEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Msg("could not serialize sync event")
		return
	}

	p.producer.SendAsync(context.Background(), &pulsar.ProducerMessage{Payload: message},
		func(_ pulsar.MessageID, _ *pulsar.ProducerMessage, err error) {
			if err != nil {
				p.log.Error().Err(err).Str("entity", event.EntityID).Msg("could not send sync event to Pulsar")
			}
		})
}

// Close closes the Pulsar client and producer.
func (p *EventPublisher) Close() {
	p.producer.Close()
	p.client.Close()
	p.log.Info().Msg("Pulsar client and producer closed")
}
