package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrRateLimited is returned when the ingest API rate limit is exceeded.
var ErrRateLimited = errors.New("rate limit exceeded")

// SyncResult contains the result of an ingest run.
type SyncResult struct {
	DataSetsAdded   int       `json:"datasets_added"`
	DataSetsFailed  int       `json:"datasets_failed"`
	DataSetsRemoved int       `json:"datasets_removed"`
	DataSetsTotal   int       `json:"datasets_total"`
	SyncedAt        time.Time `json:"synced_at"`
	NextScheduledAt time.Time `json:"next_scheduled_at,omitempty"`
}

// IngestScheduler runs the ingest service periodically and on demand.
type IngestScheduler struct {
	ingest   *IngestService
	interval time.Duration
	cooldown time.Duration
	logger   *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup

	// Rate limiting for API triggers
	lastAPISync time.Time
	apiMutex    sync.Mutex

	// Batches are strictly sequential.
	syncOpMutex sync.Mutex

	nextSync time.Time
	syncMu   sync.RWMutex
}

// NewIngestScheduler creates a new scheduler. API triggers are limited to
// one per cooldown.
func NewIngestScheduler(ingest *IngestService, interval, cooldown time.Duration, logger *slog.Logger) *IngestScheduler {
	return &IngestScheduler{
		ingest:      ingest,
		interval:    interval,
		cooldown:    cooldown,
		logger:      logger,
		stopCh:      make(chan struct{}),
		lastAPISync: time.Now().Add(-cooldown - time.Second),
	}
}

// Start begins the periodic ingest loop.
func (s *IngestScheduler) Start(ctx context.Context) {
	s.logger.Info("starting ingest scheduler", "interval", s.interval)

	s.wg.Add(1)
	go s.run(ctx)
}

func (s *IngestScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.setNextSync(time.Now().Add(s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ingest scheduler stopped: context canceled")
			return
		case <-s.stopCh:
			s.logger.Info("ingest scheduler stopped")
			return
		case <-ticker.C:
			s.logger.Debug("scheduled ingest triggered")
			if _, err := s.runOnce(ctx); err != nil {
				s.logger.Error("ingest failed", "error", err)
			}
			s.setNextSync(time.Now().Add(s.interval))
		}
	}
}

// Stop gracefully stops the scheduler.
func (s *IngestScheduler) Stop() {
	s.logger.Info("stopping ingest scheduler")
	close(s.stopCh)
	s.wg.Wait()
}

// TriggerSync runs an ingest now. Returns ErrRateLimited when called again
// within the cooldown.
func (s *IngestScheduler) TriggerSync(ctx context.Context) (SyncResult, error) {
	s.apiMutex.Lock()
	defer s.apiMutex.Unlock()

	if time.Since(s.lastAPISync) < s.cooldown {
		return SyncResult{}, ErrRateLimited
	}
	s.lastAPISync = time.Now()

	return s.runOnce(ctx)
}

// HandleFile uploads a file reported by the directory watcher, serialized
// with scheduled runs.
func (s *IngestScheduler) HandleFile(ctx context.Context, path string) error {
	s.syncOpMutex.Lock()
	defer s.syncOpMutex.Unlock()
	return s.ingest.HandleFile(ctx, path)
}

func (s *IngestScheduler) runOnce(ctx context.Context) (SyncResult, error) {
	s.syncOpMutex.Lock()
	defer s.syncOpMutex.Unlock()

	stats, err := s.ingest.Sync(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	return SyncResult{
		DataSetsAdded:   stats.Added,
		DataSetsFailed:  stats.Failed,
		DataSetsRemoved: stats.Removed,
		DataSetsTotal:   s.ingest.DataSetCount(),
		SyncedAt:        time.Now(),
		NextScheduledAt: s.getNextSync(),
	}, nil
}

func (s *IngestScheduler) setNextSync(t time.Time) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	s.nextSync = t
}

func (s *IngestScheduler) getNextSync() time.Time {
	s.syncMu.RLock()
	defer s.syncMu.RUnlock()
	return s.nextSync
}

// Interval returns the ingest interval.
func (s *IngestScheduler) Interval() time.Duration {
	return s.interval
}
