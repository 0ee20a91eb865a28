package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=portfolio sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// EnsureSchema creates the tables the daemon needs if they do not
// exist yet. Decimal columns are stored as TEXT and parsed with
// shopspring/decimal so no precision is lost in transit.
func (db *DB) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS assets (
			id              BIGSERIAL PRIMARY KEY,
			symbol          TEXT NOT NULL,
			asset_type      TEXT NOT NULL,
			source_ref      TEXT NOT NULL DEFAULT '',
			native_currency TEXT NOT NULL DEFAULT '',
			UNIQUE (symbol)
		)`,
		`CREATE TABLE IF NOT EXISTS holdings (
			id            UUID PRIMARY KEY,
			asset_id      BIGINT NOT NULL REFERENCES assets(id),
			account       TEXT NOT NULL DEFAULT '',
			quantity      TEXT NOT NULL,
			avg_cost      TEXT NOT NULL DEFAULT '0',
			cost_currency TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS latest_prices (
			asset_id BIGINT NOT NULL REFERENCES assets(id),
			currency TEXT NOT NULL,
			id       UUID NOT NULL,
			value    TEXT NOT NULL,
			as_of    TIMESTAMPTZ NOT NULL,
			source   TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (asset_id, currency)
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id       UUID PRIMARY KEY,
			asset_id BIGINT NOT NULL REFERENCES assets(id),
			currency TEXT NOT NULL,
			value    TEXT NOT NULL,
			as_of    TIMESTAMPTZ NOT NULL,
			source   TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS price_history_asset_as_of
			ON price_history (asset_id, as_of DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
