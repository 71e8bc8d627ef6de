// Package quota tracks how many remote image calls were made today.
// The daily budget is global — generation and every post-processing action
// draw from the same counter, matching the hosted API's per-key limit.
package quota

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/omerdahan/angle-studio/internal/model"
	"github.com/omerdahan/angle-studio/internal/storage"
)

// Ledger is the process-wide counter of remote calls made today, backed by a
// persisted UsageRecord. The day-rollover check runs once at construction,
// not per call — a run that spans midnight keeps counting against the day it
// started on.
type Ledger struct {
	mu     sync.Mutex
	repo   storage.UsageRepository
	limit  int
	count  int
	now    func() time.Time
	logger *zap.Logger
}

// NewLedger loads the persisted record and performs the rollover check: a
// stored date other than today means the record is stale, so a fresh
// {0, today} is persisted immediately and adopted.
//
// A persistence read failure is never fatal — the ledger starts at zero and
// logs the problem, per the "swallow, treat as absent" rule.
func NewLedger(ctx context.Context, repo storage.UsageRepository, limit int, logger *zap.Logger) *Ledger {
	return newLedger(ctx, repo, limit, time.Now, logger)
}

// newLedger exists so tests can pin the clock.
func newLedger(ctx context.Context, repo storage.UsageRepository, limit int, now func() time.Time, logger *zap.Logger) *Ledger {
	l := &Ledger{
		repo:   repo,
		limit:  limit,
		now:    now,
		logger: logger,
	}

	today := now().Format(model.DateLayout)

	rec, err := repo.Get(ctx)
	switch {
	case err != nil:
		if err != storage.ErrNotFound {
			logger.Warn("usage record unreadable, starting at zero", zap.Error(err))
		}
		l.persist(ctx, 0, today)
	case rec.Date != today:
		// New day: reset and persist right away so the stale check doesn't
		// retrigger on the next start.
		l.persist(ctx, 0, today)
	default:
		l.count = rec.Count
	}

	return l
}

// CurrentCount returns the number of calls made so far today.
func (l *Ledger) CurrentCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Increment records one successful remote call and returns the new count.
// The date is recomputed at call time, so an increment after midnight starts
// writing under the new day without losing the in-memory count.
func (l *Ledger) Increment(ctx context.Context) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	l.persist(ctx, l.count, l.now().Format(model.DateLayout))
	return l.count
}

// Remaining returns how many calls are left in today's budget.
func (l *Ledger) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit - l.count
}

// Limit returns the fixed daily maximum.
func (l *Ledger) Limit() int {
	return l.limit
}

func (l *Ledger) persist(ctx context.Context, count int, date string) {
	l.count = count
	if err := l.repo.Put(ctx, &model.UsageRecord{Count: count, Date: date}); err != nil {
		// Persistence problems are logged, never surfaced to the caller.
		l.logger.Warn("persisting usage record", zap.Error(err))
	}
}
