package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cogniquest/cogniquest-engine/internal/domain/progress"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
	"github.com/cogniquest/cogniquest-engine/pkg/circuitbreaker"
	"github.com/cogniquest/cogniquest-engine/pkg/logger"
	"github.com/cogniquest/cogniquest-engine/pkg/retry"
	"github.com/cogniquest/cogniquest-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// WRITE-BEHIND PROGRESS STORE
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotCache is the optional Redis-backed snapshot cache.
type SnapshotCache interface {
	Get(ctx context.Context, userID shared.UserID) (progress.Snapshot, error)
	Set(ctx context.Context, userID shared.UserID, snap progress.Snapshot) error
	Invalidate(ctx context.Context, userID shared.UserID) error
}

// DefaultFlushDebounce is how long a ledger stays dirty in memory before
// the store persists it. Progress updates arrive in bursts at session
// end, so a short debounce batches them into one write.
const DefaultFlushDebounce = 5 * time.Second

// ProgressStore is a write-behind store for progress ledgers. Reads are
// served from in-memory ledgers (hydrated cache-first, then from the
// repository); writes mutate the ledger synchronously and are persisted
// asynchronously after a debounce window. Persistence failures are
// logged and retried on the next flush, never surfaced to gameplay.
type ProgressStore struct {
	mu      sync.Mutex
	ledgers map[shared.UserID]*ledgerEntry

	repo    progress.Repository
	cache   SnapshotCache
	clock   timeutil.Clock
	log     *logger.Logger
	events  shared.EventPublisher
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker

	debounce   time.Duration
	flushTimer timeutil.Timer
	closed     bool
}

type ledgerEntry struct {
	ledger *progress.Ledger
	dirty  bool
}

// StoreConfig configures a ProgressStore.
type StoreConfig struct {
	Repository progress.Repository
	Cache      SnapshotCache // optional
	Clock      timeutil.Clock
	Logger     *logger.Logger
	Events     shared.EventPublisher // optional
	Debounce   time.Duration         // zero means DefaultFlushDebounce
}

// NewProgressStore creates a new ProgressStore.
func NewProgressStore(cfg StoreConfig) *ProgressStore {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.NewRealClock()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultFlushDebounce
	}

	s := &ProgressStore{
		ledgers:  make(map[shared.UserID]*ledgerEntry),
		repo:     cfg.Repository,
		cache:    cfg.Cache,
		clock:    cfg.Clock,
		log:      cfg.Logger,
		events:   cfg.Events,
		retrier:  retry.DatabaseRetrier(),
		debounce: cfg.Debounce,
	}
	s.breaker = circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
		s.log.Warn("cache circuit breaker state changed",
			logger.Component("progress_store"),
			logger.F("breaker", name),
			logger.F("from", from.String()),
			logger.F("to", to.String()),
		)
	})
	return s
}

// ──────────────────────────────────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────────────────────────────────

// Snapshot returns the user's current progress snapshot, hydrating the
// ledger if needed. New users get default state.
func (s *ProgressStore) Snapshot(ctx context.Context, userID shared.UserID) (progress.Snapshot, error) {
	entry, err := s.entryFor(ctx, userID)
	if err != nil {
		return progress.Snapshot{}, err
	}
	return entry.ledger.Snapshot(), nil
}

// entryFor returns the in-memory entry for a user, loading it on first
// access. Callers must not hold s.mu.
func (s *ProgressStore) entryFor(ctx context.Context, userID shared.UserID) (*ledgerEntry, error) {
	s.mu.Lock()
	if entry, ok := s.ledgers[userID]; ok {
		s.mu.Unlock()
		return entry, nil
	}
	s.mu.Unlock()

	ledger, err := s.hydrate(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another goroutine may have hydrated concurrently; keep the first.
	if entry, ok := s.ledgers[userID]; ok {
		return entry, nil
	}
	entry := &ledgerEntry{ledger: ledger}
	s.ledgers[userID] = entry
	return entry, nil
}

// hydrate loads a ledger cache-first, then from the repository.
func (s *ProgressStore) hydrate(ctx context.Context, userID shared.UserID) (*progress.Ledger, error) {
	if s.cache != nil {
		var (
			snap progress.Snapshot
			miss bool
		)
		err := s.breaker.Execute(ctx, func(ctx context.Context) error {
			var getErr error
			snap, getErr = s.cache.Get(ctx, userID)
			if errors.Is(getErr, shared.ErrStateNotFound) {
				// A miss is not a cache failure.
				miss = true
				return nil
			}
			return getErr
		})
		switch {
		case err == nil && !miss:
			return progress.NewLedgerFromSnapshot(userID, snap), nil
		case err != nil:
			s.log.Warn("progress cache read failed, falling back to repository",
				logger.UserID(userID.String()),
				logger.Err(err),
			)
		}
	}

	snap, err := s.repo.Load(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrStateNotFound) {
			return progress.NewLedger(userID), nil
		}
		return nil, err
	}
	return progress.NewLedgerFromSnapshot(userID, snap), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Writes
// ──────────────────────────────────────────────────────────────────────────────

// UpdateProgress applies a completed session to the user's ledger and
// schedules an asynchronous flush.
func (s *ProgressStore) UpdateProgress(ctx context.Context, userID shared.UserID, categoryID shared.CategoryID, level int, score shared.Score, timeSpentSec int) (progress.UpdateResult, error) {
	entry, err := s.entryFor(ctx, userID)
	if err != nil {
		return progress.UpdateResult{}, err
	}

	result, err := entry.ledger.UpdateProgress(categoryID, level, score, timeSpentSec, s.clock.Now())
	if err != nil {
		return progress.UpdateResult{}, err
	}

	s.markDirty(entry)
	return result, nil
}

// Reset destructively wipes the user's progress, in memory and in
// durable storage. Unlike session writes, a reset is synchronous:
// the user asked for it and must see it stick.
func (s *ProgressStore) Reset(ctx context.Context, userID shared.UserID) error {
	entry, err := s.entryFor(ctx, userID)
	if err != nil {
		return err
	}
	entry.ledger.ResetProgress()

	s.mu.Lock()
	entry.dirty = false
	s.mu.Unlock()

	// A reset hard-deletes the stored rows instead of saving zeroed
	// ones: the user starts over as if never seen, and the next flush
	// recreates the rows from the fresh ledger.
	err = s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, userID)
	})
	if err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			s.log.Warn("failed to invalidate progress cache after reset",
				logger.UserID(userID.String()),
				logger.Err(err),
			)
		}
	}
	return nil
}

func (s *ProgressStore) markDirty(entry *ledgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.dirty = true
	if s.closed || s.flushTimer != nil {
		return
	}
	s.flushTimer = s.clock.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		s.flushTimer = nil
		s.mu.Unlock()
		s.Flush(context.Background())
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Flushing
// ──────────────────────────────────────────────────────────────────────────────

// Flush persists every dirty ledger. Failed ledgers stay dirty and are
// retried on the next flush. Returns how many ledgers were persisted.
func (s *ProgressStore) Flush(ctx context.Context) int {
	s.mu.Lock()
	pending := make(map[shared.UserID]*ledgerEntry)
	for userID, entry := range s.ledgers {
		if entry.dirty {
			entry.dirty = false
			pending[userID] = entry
		}
	}
	s.mu.Unlock()

	if len(pending) == 0 {
		return 0
	}

	flushed, failed := 0, 0
	for userID, entry := range pending {
		snap := entry.ledger.Snapshot()
		if err := s.persist(ctx, userID, snap); err != nil {
			failed++
			s.mu.Lock()
			entry.dirty = true
			s.mu.Unlock()
			s.log.Error("failed to persist progress, will retry on next flush",
				logger.UserID(userID.String()),
				logger.Err(err),
			)
			continue
		}
		flushed++
		s.refreshCache(ctx, userID, snap)
	}

	s.log.Debug("progress flush complete",
		logger.Component("progress_store"),
		logger.F("flushed", flushed),
		logger.F("failed", failed),
	)
	if s.events != nil {
		if err := s.events.Publish(shared.NewStateFlushedEvent(flushed, failed)); err != nil {
			s.log.Warn("failed to publish flush event", logger.Err(err))
		}
	}
	return flushed
}

// persist writes one snapshot through the database retrier.
func (s *ProgressStore) persist(ctx context.Context, userID shared.UserID, snap progress.Snapshot) error {
	return s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.repo.Save(ctx, userID, snap)
	})
}

// refreshCache updates the snapshot cache after a successful persist.
// Cache failures are logged and ignored.
func (s *ProgressStore) refreshCache(ctx context.Context, userID shared.UserID, snap progress.Snapshot) {
	if s.cache == nil {
		return
	}
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.cache.Set(ctx, userID, snap)
	})
	if err != nil {
		s.log.Warn("failed to refresh progress cache",
			logger.UserID(userID.String()),
			logger.Err(err),
		)
	}
}

// Close flushes all dirty state and stops the debounce timer.
func (s *ProgressStore) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
	s.mu.Unlock()

	s.Flush(ctx)
	return nil
}

// DirtyCount reports how many ledgers await persistence. Used by tests
// and health reporting.
func (s *ProgressStore) DirtyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, entry := range s.ledgers {
		if entry.dirty {
			n++
		}
	}
	return n
}
