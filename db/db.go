package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrations embed.FS

type SyncDB struct {
	DB  *sql.DB
	Log *zerolog.Logger
}

// NewSyncDB is a constructor that initializes SyncDB with DB and Log
func NewSyncDB(log *zerolog.Logger) (*SyncDB, error) {
	// Get the database connection string from the environment
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Error().Msg("DATABASE_URL environment variable is not set")
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	// Open the database connection
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open database connection")
		return nil, err
	}

	// Check we are actually connected
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Database connection failed during ping")
		return nil, err
	}

	return &SyncDB{
		DB:  db,
		Log: log,
	}, nil
}

func (d *SyncDB) Close() error {
	if err := d.DB.Close(); err != nil {
		return err
	}
	d.Log.Info().Msg("database connection closed")
	return nil
}

// Migrate runs the embedded goose migrations.
func (d *SyncDB) Migrate() error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(d.DB, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// execQuery runs a statement inside a transaction and rolls back on failure.
func (d *SyncDB) execQuery(tx *sql.Tx, query string, args ...interface{}) error {
	if _, err := tx.Exec(query, args...); err != nil {
		tx.Rollback()
		return err
	}
	return nil
}
