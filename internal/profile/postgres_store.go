package profile

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const profileFieldsSchema = `
CREATE TABLE IF NOT EXISTS user_profile_fields (
	user_id    TEXT        NOT NULL,
	field      TEXT        NOT NULL,
	value      TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, field)
)`

// PostgresStore keeps profile fields as one row per (user, field).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the profile table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, profileFieldsSchema); err != nil {
		return fmt.Errorf("failed to create profile schema: %w", err)
	}
	return nil
}

// Get returns all fields stored for the user
func (s *PostgresStore) Get(ctx context.Context, userID string) (Metadata, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT field, value FROM user_profile_fields WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	defer rows.Close()

	fields := make(Metadata)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("failed to scan profile field: %w", err)
		}
		fields[field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return fields, nil
}

// Update upserts every field inside one transaction
func (s *PostgresStore) Update(ctx context.Context, userID string, fields Metadata) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin profile update: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for field, value := range fields {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_profile_fields (user_id, field, value, updated_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (user_id, field) DO UPDATE SET
				value = EXCLUDED.value,
				updated_at = EXCLUDED.updated_at`,
			userID, field, value, now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert profile field %s: %w", field, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile update: %w", err)
	}
	return nil
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
