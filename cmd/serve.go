package cmd

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/dirsync/scim-provisioner/api/handlers"
	"github.com/dirsync/scim-provisioner/api/middleware"
	"github.com/dirsync/scim-provisioner/api/services"
	docs "github.com/dirsync/scim-provisioner/docs"
	awsclient "github.com/dirsync/scim-provisioner/internal/aws"
	"github.com/dirsync/scim-provisioner/internal/events"
	"github.com/dirsync/scim-provisioner/internal/scim"
	"github.com/dirsync/scim-provisioner/internal/syncer"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Directory Synchronization Engine API
// @version v1
// @description API for provisioning users, groups and roles into a remote SCIM 2.0 directory.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server for handling API requests",
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config, initialize the database and set up logging
		commonSetUp()
		defer syncDB.Close()

		logger := log.Logger

		// Initialize event publisher for the sync audit stream
		publisher, err := events.NewEventPublisher(appCfg.Pulsar.URL, appCfg.Pulsar.TopicProducer, &logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event publisher")
		}
		defer publisher.Close()

		// Initialize the SCIM client with a token from Secrets Manager
		scimClient, err := initializeSCIMClient()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize SCIM client")
		}

		// Initialize SES client for failure notifications
		sesClient, err := initializeSESClient(appCfg.AWS.Region)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize SES client")
		}

		engine := syncer.New(syncDB, scimClient, publisher, syncer.Config{
			MaxRetries: appCfg.Sync.MaxRetries,
			RetryDelay: time.Duration(appCfg.Sync.RetryDelaySeconds) * time.Second,
		}, &logger)

		service := &services.Service{
			Config:      appCfg,
			DB:          syncDB,
			Engine:      engine,
			EmailClient: sesClient,
		}

		// Create routes
		r := mux.NewRouter()

		// Register the routes
		api := r.PathPrefix(appCfg.BasePath).Subrouter()

		// Apply the middleware to the API routes
		api.Use(middleware.WithLogger)
		api.Use(middleware.JWTMiddleware)

		// User routes
		api.HandleFunc("/users", handlers.CreateUser(service)).Methods(http.MethodPost)
		api.HandleFunc("/users", handlers.GetUsers(service)).Methods(http.MethodGet)
		api.Handle("/users/bulk-sync", middleware.AdminOnly(handlers.BulkSyncUsers(service))).Methods(http.MethodPost)
		api.HandleFunc("/users/{user-id}", handlers.GetUser(service)).Methods(http.MethodGet)
		api.HandleFunc("/users/{user-id}", handlers.UpdateUser(service)).Methods(http.MethodPut)
		api.HandleFunc("/users/{user-id}", handlers.DeleteUser(service)).Methods(http.MethodDelete)
		api.HandleFunc("/users/{user-id}/sync", handlers.SyncUser(service)).Methods(http.MethodPost)
		api.HandleFunc("/users/{user-id}/deactivate", handlers.DeactivateUser(service)).Methods(http.MethodPost)
		api.Handle("/users/{user-id}/sync-deactivate", middleware.AdminOnly(handlers.SyncDeactivateUser(service))).Methods(http.MethodPost)

		// Group routes
		api.HandleFunc("/groups", handlers.CreateGroup(service)).Methods(http.MethodPost)
		api.HandleFunc("/groups", handlers.GetGroups(service)).Methods(http.MethodGet)
		api.Handle("/groups/bulk-sync", middleware.AdminOnly(handlers.BulkSyncGroups(service))).Methods(http.MethodPost)
		api.HandleFunc("/groups/{group-id}", handlers.GetGroup(service)).Methods(http.MethodGet)
		api.HandleFunc("/groups/{group-id}", handlers.UpdateGroup(service)).Methods(http.MethodPut)
		api.HandleFunc("/groups/{group-id}", handlers.DeleteGroup(service)).Methods(http.MethodDelete)
		api.HandleFunc("/groups/{group-id}/sync", handlers.SyncGroup(service)).Methods(http.MethodPost)
		api.HandleFunc("/groups/{group-id}/members/{user-id}", handlers.AddGroupMember(service)).Methods(http.MethodPut)
		api.HandleFunc("/groups/{group-id}/members/{user-id}", handlers.RemoveGroupMember(service)).Methods(http.MethodDelete)

		// Role routes
		api.HandleFunc("/roles", handlers.CreateRole(service)).Methods(http.MethodPost)
		api.HandleFunc("/roles", handlers.GetRoles(service)).Methods(http.MethodGet)
		api.HandleFunc("/roles/{role-id}", handlers.GetRole(service)).Methods(http.MethodGet)
		api.HandleFunc("/roles/{role-id}", handlers.UpdateRole(service)).Methods(http.MethodPut)
		api.HandleFunc("/roles/{role-id}", handlers.DeleteRole(service)).Methods(http.MethodDelete)
		api.HandleFunc("/roles/{role-id}/assign/{user-id}", handlers.AssignRole(service)).Methods(http.MethodPut)
		api.HandleFunc("/roles/{role-id}/assign/{user-id}", handlers.UnassignRole(service)).Methods(http.MethodDelete)

		// Docs
		docs.SwaggerInfo.Host = appCfg.Host
		docs.SwaggerInfo.BasePath = appCfg.BasePath
		r.PathPrefix(appCfg.DocsPath).Handler(httpSwagger.Handler(
			httpSwagger.URL(path.Join(appCfg.DocsPath, "/doc.json")),
			httpSwagger.DeepLinking(true),
			httpSwagger.DocExpansion("none"),
			httpSwagger.DomID("swagger-ui"),
		)).Methods(http.MethodGet)

		log.Info().Msg(fmt.Sprintf("Server started at %s:%d", host, port))

		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", host, port),
			r); err != nil {

			log.Error().Err(err).Msg("could not start server")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&host, "host", "0.0.0.0", "host to run the server on")
	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run the server on")

}

// initializeSCIMClient builds the remote directory client. The bearer token
// comes from Secrets Manager when a secret name is configured, otherwise from
// the config file directly.
func initializeSCIMClient() (*scim.Client, error) {
	logger := log.Logger

	token := appCfg.SCIM.Token
	if appCfg.SCIM.TokenSecretName != "" {
		awsCfg, err := awsclient.LoadAWSConfig(appCfg.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("unable to load SDK config, %v", err)
		}
		secretsClient := awsclient.NewSecretsManagerClient(awsCfg)
		token, err = awsclient.GetSecret(context.TODO(), secretsClient, appCfg.SCIM.TokenSecretName)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch SCIM token: %v", err)
		}
	}

	timeout := time.Duration(appCfg.Sync.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := scim.NewClient(appCfg.SCIM.URL, token, timeout, &logger)
	if appCfg.Sync.SearchPageSize > 0 {
		client.SearchPageSize = appCfg.Sync.SearchPageSize
	}
	return client, nil
}

// initializeSESClient initializes the AWS SES client.
func initializeSESClient(region string) (*sesv2.Client, error) {
	awsCfg, err := awsclient.LoadAWSConfig(region)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %v", err)
	}
	return awsclient.NewSESClient(awsCfg), nil
}
