package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/omerdahan/angle-studio/internal/model"
)

// ErrNotFound is returned when a requested row doesn't exist.
// Go uses sentinel errors (predefined error values) instead of exception types.
// Callers check with errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("record not found")

// UsageRepository persists the single daily usage record.
// Go interfaces are implicit — any struct that has these methods satisfies it.
// This makes testing easy: you can create a mock that implements this interface
// without importing anything from the real implementation.
type UsageRepository interface {
	Get(ctx context.Context) (*model.UsageRecord, error)
	Put(ctx context.Context, rec *model.UsageRecord) error
}

// sqliteUsageRepository is the SQLite implementation of UsageRepository.
// The struct is unexported (lowercase first letter) — only the interface is public.
type sqliteUsageRepository struct {
	db *sqlx.DB
}

// NewUsageRepository creates a new SQLite-backed UsageRepository.
func NewUsageRepository(db *sqlx.DB) UsageRepository {
	return &sqliteUsageRepository{db: db}
}

func (r *sqliteUsageRepository) Get(ctx context.Context) (*model.UsageRecord, error) {
	var rec model.UsageRecord
	err := r.db.GetContext(ctx, &rec, "SELECT count, date FROM usage_records WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting usage record: %w", err)
	}
	return &rec, nil
}

func (r *sqliteUsageRepository) Put(ctx context.Context, rec *model.UsageRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_records (id, count, date) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET count = excluded.count, date = excluded.date
	`, rec.Count, rec.Date)
	if err != nil {
		return fmt.Errorf("putting usage record: %w", err)
	}
	return nil
}
