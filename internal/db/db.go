package db

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

var (
	DB *sqlx.DB
)

const (
	connectAttempts = 10
	connectBackoff  = 2 * time.Second
)

// Init opens the PostgreSQL pool, retrying while the database comes up.
func Init(databaseURL string) error {
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		DB, err = sqlx.Connect("postgres", databaseURL)
		if err == nil {
			DB.SetMaxOpenConns(20)
			DB.SetMaxIdleConns(5)
			DB.SetConnMaxIdleTime(5 * time.Minute)
			log.Info().Int("attempt", attempt).Msg("connected to database")
			return nil
		}

		log.Error().Err(err).
			Int("attempt", attempt).
			Dur("backoff", connectBackoff).
			Msg("database not reachable")
		time.Sleep(connectBackoff)
	}
	return fmt.Errorf("could not connect to database after %d attempts: %w", connectAttempts, err)
}

// RunMigrations applies every "*.up.sql" in dir that has not been applied yet,
// in name order, each in its own transaction. Applied versions are recorded in
// schema_migrations.
func RunMigrations(dir string) error {
	if _, err := DB.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
	    version    TEXT PRIMARY KEY,
	    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)

	applied := map[string]bool{}
	var versions []string
	if err := DB.Select(&versions, `SELECT version FROM schema_migrations;`); err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	for _, v := range versions {
		applied[v] = true
	}

	for _, file := range files {
		version := strings.TrimSuffix(filepath.Base(file), ".up.sql")
		if applied[version] {
			continue
		}
		if err := applyMigration(file, version); err != nil {
			return err
		}
		log.Info().Str("version", version).Msg("applied migration")
	}
	return nil
}

func applyMigration(file, version string) error {
	body, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read migration %q: %w", file, err)
	}

	tx, err := DB.Beginx()
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", version, err)
	}
	defer tx.Rollback()

	if strings.TrimSpace(string(body)) != "" {
		if _, err := tx.Exec(string(body)); err != nil {
			return fmt.Errorf("migration %s: %w", version, err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1);`, version); err != nil {
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	return tx.Commit()
}
