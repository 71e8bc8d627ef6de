// Go testing basics:
// - Test files must end with _test.go (they're excluded from production builds)
// - Test functions must start with Test and take *testing.T
// - Run with: go test ./internal/storage/ -v
// - t.Fatal stops the test immediately; t.Error continues to find more failures
package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/omerdahan/angle-studio/internal/model"
)

// setupTestDB creates a temporary SQLite database for testing.
// Go's testing.T has a TempDir() method that creates a temp directory
// automatically cleaned up after the test — no manual teardown needed.
func setupTestDB(t *testing.T) *testDeps {
	t.Helper() // marks this as a helper so error line numbers point to the caller

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("creating test database: %v", err)
	}

	// t.Cleanup registers a function to run when the test finishes.
	// Similar to defer, but scoped to the test lifecycle.
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})

	return &testDeps{
		usageRepo: NewUsageRepository(db),
		credRepo:  NewCredentialRepository(db),
		callRepo:  NewCallRepository(db),
	}
}

type testDeps struct {
	usageRepo UsageRepository
	credRepo  CredentialRepository
	callRepo  CallRepository
}

func TestUsageRepository_GetEmpty(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	_, err := deps.usageRepo.Get(ctx)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty table, got %v", err)
	}
}

func TestUsageRepository_PutAndGet(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	rec := &model.UsageRecord{Count: 7, Date: "2026-08-29"}
	if err := deps.usageRepo.Put(ctx, rec); err != nil {
		t.Fatalf("putting usage record: %v", err)
	}

	got, err := deps.usageRepo.Get(ctx)
	if err != nil {
		t.Fatalf("getting usage record: %v", err)
	}
	if got.Count != 7 || got.Date != "2026-08-29" {
		t.Errorf("expected {7 2026-08-29}, got %+v", got)
	}
}

func TestUsageRepository_PutOverwrites(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	// The table is single-row: a second put must replace, not append.
	if err := deps.usageRepo.Put(ctx, &model.UsageRecord{Count: 3, Date: "2026-08-28"}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := deps.usageRepo.Put(ctx, &model.UsageRecord{Count: 0, Date: "2026-08-29"}); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := deps.usageRepo.Get(ctx)
	if err != nil {
		t.Fatalf("getting usage record: %v", err)
	}
	if got.Count != 0 || got.Date != "2026-08-29" {
		t.Errorf("expected the rollover record, got %+v", got)
	}
}

func TestCredentialRepository_GetEmpty(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	_, err := deps.credRepo.Get(ctx)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty table, got %v", err)
	}
}

func TestCredentialRepository_PutAndGet(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	if err := deps.credRepo.Put(ctx, "first-key"); err != nil {
		t.Fatalf("putting credential: %v", err)
	}
	if err := deps.credRepo.Put(ctx, "second-key"); err != nil {
		t.Fatalf("replacing credential: %v", err)
	}

	got, err := deps.credRepo.Get(ctx)
	if err != nil {
		t.Fatalf("getting credential: %v", err)
	}
	if got != "second-key" {
		t.Errorf("expected the replacement to win, got %q", got)
	}
}

func TestCallRepository_CreateAndCount(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	duration := int64(1500)
	errMsg := "remote service unavailable"

	calls := []*model.ApiCall{
		{Kind: model.CallGenerate, Angle: "front", Provider: "gemini", Model: "gemini-2.5-flash-image", Success: true, DurationMs: &duration},
		{Kind: model.CallGenerate, Angle: "back", Provider: "gemini", Model: "gemini-2.5-flash-image", Success: false, ErrorMessage: &errMsg},
		{Kind: model.CallUpscale, Angle: "front", Provider: "gemini", Model: "gemini-2.5-flash-image", Success: true, DurationMs: &duration},
	}
	for _, call := range calls {
		if err := deps.callRepo.Create(ctx, call); err != nil {
			t.Fatalf("creating api call: %v", err)
		}
		if call.ID == 0 {
			t.Error("expected api call ID to be set after create")
		}
	}

	total, err := deps.callRepo.Count(ctx)
	if err != nil {
		t.Fatalf("counting api calls: %v", err)
	}
	if total != 3 {
		t.Errorf("expected 3 calls, got %d", total)
	}

	generates, err := deps.callRepo.CountByKind(ctx, model.CallGenerate)
	if err != nil {
		t.Fatalf("counting generate calls: %v", err)
	}
	if generates != 2 {
		t.Errorf("expected 2 generate calls, got %d", generates)
	}

	failed, err := deps.callRepo.CountFailed(ctx)
	if err != nil {
		t.Fatalf("counting failed calls: %v", err)
	}
	if failed != 1 {
		t.Errorf("expected 1 failed call, got %d", failed)
	}
}
