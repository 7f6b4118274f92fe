package application

import (
	"context"
	"errors"
	"time"

	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

type syncTrigger interface {
	TriggerSync(ctx context.Context, tenantID string, storeID string, syncType domain.SyncType) (*domain.SyncRun, error)
}

// SyncScheduler periodically starts incremental runs for stores whose
// sync frequency has elapsed
type SyncScheduler struct {
	stores   ports.StoreRepository
	syncs    syncTrigger
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSyncScheduler creates a scheduler that checks stores every interval.
// An interval of 0 disables it.
func NewSyncScheduler(stores ports.StoreRepository, syncs syncTrigger, interval time.Duration, logger zerolog.Logger) *SyncScheduler {
	return &SyncScheduler{
		stores:   stores,
		syncs:    syncs,
		interval: interval,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run checks stores on every tick until ctx is cancelled
func (s *SyncScheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info().Msg("Sync scheduler disabled")
		return
	}

	s.logger.Info().Dur("interval", s.interval).Msg("Sync scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Sync scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick triggers every due store once and returns how many runs were started
func (s *SyncScheduler) Tick(ctx context.Context) int {
	stores, err := s.stores.ListConnected(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list stores for scheduled sync")
		return 0
	}

	now := s.now()
	started := 0
	for _, store := range stores {
		if !store.SyncDue(now) {
			continue
		}
		_, err := s.syncs.TriggerSync(ctx, store.TenantID, store.ID, domain.SyncTypeIncremental)
		switch {
		case err == nil:
			started++
		case errors.Is(err, domain.ErrSyncInProgress):
			s.logger.Debug().Str("storeId", store.ID).Msg("Sync already running, skipping scheduled sync")
		default:
			s.logger.Warn().Err(err).Str("storeId", store.ID).Msg("Failed to start scheduled sync")
		}
	}
	if started > 0 {
		s.logger.Info().Int("started", started).Msg("Scheduled syncs started")
	}
	return started
}
