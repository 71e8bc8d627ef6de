package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/omerdahan/angle-studio/internal/model"
)

// CallRepository handles persistence of remote API call tracking.
type CallRepository interface {
	Create(ctx context.Context, call *model.ApiCall) error
	Count(ctx context.Context) (int64, error)
	CountByKind(ctx context.Context, kind model.CallKind) (int64, error)
	CountFailed(ctx context.Context) (int64, error)
}

type sqliteCallRepository struct {
	db *sqlx.DB
}

// NewCallRepository creates a new SQLite-backed CallRepository.
func NewCallRepository(db *sqlx.DB) CallRepository {
	return &sqliteCallRepository{db: db}
}

func (r *sqliteCallRepository) Create(ctx context.Context, call *model.ApiCall) error {
	// NamedExecContext uses the struct's `db:` tags to map fields to :named placeholders.
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO api_calls (kind, angle, provider, model, success, error_message, duration_ms)
		VALUES (:kind, :angle, :provider, :model, :success, :error_message, :duration_ms)
	`, call)
	if err != nil {
		return fmt.Errorf("creating api call record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	call.ID = id
	return nil
}

func (r *sqliteCallRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM api_calls")
	return count, err
}

func (r *sqliteCallRepository) CountByKind(ctx context.Context, kind model.CallKind) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM api_calls WHERE kind = ?", kind)
	return count, err
}

func (r *sqliteCallRepository) CountFailed(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM api_calls WHERE success = 0")
	return count, err
}
