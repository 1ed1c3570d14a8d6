package cmd

import (
	"context"
	"time"

	"github.com/dirsync/scim-provisioner/internal/events"
	"github.com/dirsync/scim-provisioner/internal/syncer"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Sync every pending user and group into the remote directory",
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

		scimClient, err := initializeSCIMClient()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize SCIM client")
		}

		engine := syncer.New(syncDB, scimClient, publisher, syncer.Config{
			MaxRetries: appCfg.Sync.MaxRetries,
			RetryDelay: time.Duration(appCfg.Sync.RetryDelaySeconds) * time.Second,
		}, &logger)

		ctx := context.Background()

		log.Info().Msg("Starting reconciliation pass...")

		// Users first so group membership can reference their remote ids
		userResult, err := engine.BulkSyncPendingUsers(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("User reconciliation aborted")
		}
		log.Info().
			Int("synced", userResult.SyncedCount).
			Int("failed", userResult.FailedCount).
			Msg("User reconciliation complete")

		groupResult, err := engine.BulkSyncPendingGroups(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Group reconciliation aborted")
		}
		log.Info().
			Int("synced", groupResult.SyncedCount).
			Int("failed", groupResult.FailedCount).
			Msg("Group reconciliation complete")

		for _, msg := range userResult.Errors {
			log.Warn().Str("kind", "user").Msg(msg)
		}
		for _, msg := range groupResult.Errors {
			log.Warn().Str("kind", "group").Msg(msg)
		}
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
