package cmd

import (
	"os"

	"github.com/dirsync/scim-provisioner/db"
	"github.com/dirsync/scim-provisioner/internal/appconfig"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "init-db-migrate",
	Short: "Initialize tables and run database migrations",
	Long:  `This job ensures the sync tables exist and then runs goose migrations.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Set the log level
		setLogging(logLevel)

		// Load the config file
		var err error
		appCfg, err = appconfig.LoadConfig(configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}

		if err := os.Setenv("DATABASE_URL", appCfg.Database.Source); err != nil {
			log.Fatal().Err(err).Msg("failed to set DATABASE_URL")
		}

		logger := log.Logger
		syncDB, err = db.NewSyncDB(&logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize SyncDB")
		}
		defer syncDB.Close()

		// Run the migrations
		log.Info().Msgf("Running migrations...")
		if err := syncDB.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}

		log.Info().Msg("Migrations complete")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
