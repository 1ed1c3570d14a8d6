package cmd

import (
	"context"
	"time"

	"github.com/dirsync/scim-provisioner/internal/events"
	"github.com/dirsync/scim-provisioner/internal/syncer"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Run the Pulsar consumer to process sync requests from the sync-requests topic",
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config, initialize the database and set up logging
		commonSetUp()
		defer syncDB.Close()

		logger := log.Logger

		publisher, err := events.NewEventPublisher(appCfg.Pulsar.URL, appCfg.Pulsar.TopicProducer, &logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event publisher")
		}
		defer publisher.Close()

		consumer, err := events.NewSyncRequestConsumer(appCfg.Pulsar.URL, appCfg.Pulsar.TopicConsumer, appCfg.Pulsar.Subscription)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize sync request consumer")
		}
		defer consumer.Close()

		scimClient, err := initializeSCIMClient()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize SCIM client")
		}

		engine := syncer.New(syncDB, scimClient, publisher, syncer.Config{
			MaxRetries: appCfg.Sync.MaxRetries,
			RetryDelay: time.Duration(appCfg.Sync.RetryDelaySeconds) * time.Second,
		}, &logger)

		ctx := context.Background()

		// Consume messages
		for {
			request, msg, err := consumer.Receive(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Error receiving message")
				if msg != nil {
					// Malformed requests go to the dead letter topic
					consumer.Nack(msg)
				}
				continue
			}

			log.Info().
				Str("entityType", request.EntityType).
				Str("entityID", request.EntityID).
				Msg("Processing sync request")

			switch request.EntityType {
			case "user":
				_, err = engine.SyncUser(ctx, request.EntityID)
			case "group":
				_, err = engine.SyncGroup(ctx, request.EntityID)
			default:
				log.Warn().Str("entityType", request.EntityType).Msg("Unknown entity type in sync request")
				consumer.Ack(msg)
				continue
			}

			if err != nil {
				// Credential failures and the like are worth a redelivery
				log.Error().Err(err).Str("entityID", request.EntityID).Msg("Sync request failed")
				consumer.Nack(msg)
				continue
			}

			consumer.Ack(msg)
		}
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}
