package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// ConnectPostgres opens the PostgreSQL pool backing identity accounts and
// makes sure its tables exist.
func ConnectPostgres(ctx context.Context, postgresURI string) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	if err = initPostgresTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// initPostgresTables creates all necessary tables if they don't exist
func initPostgresTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		// Identity accounts: credential-bearing half of a user. The profile
		// half lives in the document store under the same uid.
		`CREATE TABLE IF NOT EXISTS identity_accounts (
			uid UUID PRIMARY KEY,
			email VARCHAR(320) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			disabled BOOLEAN NOT NULL DEFAULT FALSE,
			tokens_valid_after TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_identity_accounts_email ON identity_accounts(email)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
