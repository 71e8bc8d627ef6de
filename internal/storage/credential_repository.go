package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CredentialRepository persists the single saved API credential.
type CredentialRepository interface {
	Get(ctx context.Context) (string, error)
	Put(ctx context.Context, value string) error
}

type sqliteCredentialRepository struct {
	db *sqlx.DB
}

// NewCredentialRepository creates a new SQLite-backed CredentialRepository.
func NewCredentialRepository(db *sqlx.DB) CredentialRepository {
	return &sqliteCredentialRepository{db: db}
}

func (r *sqliteCredentialRepository) Get(ctx context.Context) (string, error) {
	var value string
	err := r.db.GetContext(ctx, &value, "SELECT value FROM credentials WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting credential: %w", err)
	}
	return value, nil
}

func (r *sqliteCredentialRepository) Put(ctx context.Context, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (id, value) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, value)
	if err != nil {
		return fmt.Errorf("putting credential: %w", err)
	}
	return nil
}
