package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"commerce-sync-core/internal/application/transform"
	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

var errSyncCancelled = errors.New("sync cancelled")

// statusRunWindow is how many recent runs GetSyncStatus inspects per store
const statusRunWindow = 5

// SyncService drives full and incremental sync runs. At most one run per
// store is active; the store's run-in-progress flag is the lock.
type SyncService struct {
	stores   ports.StoreRepository
	records  ports.RecordRepository
	runs     ports.SyncRunRepository
	clients  ports.RemoteClientFactory
	events   ports.SyncEventPublisher
	metrics  ports.SyncMetrics
	logger   zerolog.Logger
	pageSize int
	now      func() time.Time

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncService creates a new sync service. events and metrics may be nil.
func NewSyncService(
	stores ports.StoreRepository,
	records ports.RecordRepository,
	runs ports.SyncRunRepository,
	clients ports.RemoteClientFactory,
	events ports.SyncEventPublisher,
	metrics ports.SyncMetrics,
	pageSize int,
	logger zerolog.Logger,
) *SyncService {
	if pageSize <= 0 || pageSize > ports.DefaultPageSize {
		pageSize = ports.DefaultPageSize
	}
	if events == nil {
		events = noopPublisher{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &SyncService{
		stores:   stores,
		records:  records,
		runs:     runs,
		clients:  clients,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		pageSize: pageSize,
		now:      func() time.Time { return time.Now().UTC() },
		active:   make(map[string]context.CancelFunc),
	}
}

// SyncStatus summarizes the sync state of every store of a tenant
type SyncStatus struct {
	TenantID string            `json:"tenant_id"`
	Stores   []StoreSyncStatus `json:"stores"`
}

// StoreSyncStatus is one store with its running and last finished run
type StoreSyncStatus struct {
	Store      *domain.Store   `json:"store"`
	Syncing    bool            `json:"syncing"`
	CurrentRun *domain.SyncRun `json:"current_run,omitempty"`
	LastRun    *domain.SyncRun `json:"last_run,omitempty"`
}

// RunSync executes a run and returns when it has finished. A failed run is
// reported through the run's state, not the error; the error is only set
// when the run could not be started.
func (s *SyncService) RunSync(ctx context.Context, tenantID string, storeID string, syncType domain.SyncType) (*domain.SyncRun, error) {
	store, run, err := s.start(ctx, tenantID, storeID, syncType)
	if err != nil {
		return nil, err
	}
	runCtx, done := s.track(ctx, store)
	defer done()
	s.execute(runCtx, store, run)
	return run, nil
}

// TriggerSync starts a run in the background and returns its pending descriptor
func (s *SyncService) TriggerSync(ctx context.Context, tenantID string, storeID string, syncType domain.SyncType) (*domain.SyncRun, error) {
	store, run, err := s.start(ctx, tenantID, storeID, syncType)
	if err != nil {
		return nil, err
	}
	runCtx, done := s.track(context.WithoutCancel(ctx), store)
	descriptor := run.Clone()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer done()
		s.execute(runCtx, store, run)
	}()
	return descriptor, nil
}

// CancelSync asks the store's active run to stop at its next page boundary
func (s *SyncService) CancelSync(tenantID string, storeID string) error {
	s.mu.Lock()
	cancel, ok := s.active[syncKey(tenantID, storeID)]
	s.mu.Unlock()
	if !ok {
		return domain.ErrNoActiveSync
	}
	cancel()
	s.logger.Info().Str("tenantId", tenantID).Str("storeId", storeID).Msg("Sync cancellation requested")
	return nil
}

// Wait blocks until every background run has finished
func (s *SyncService) Wait() {
	s.wg.Wait()
}

// Shutdown cancels every active run and waits for them to record their outcome
func (s *SyncService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, cancel := range s.active {
		cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for sync runs: %w", ctx.Err())
	}
}

// RecoverInterrupted fails runs left unfinished by a previous process and
// releases their stores' run-in-progress flags, including flags taken by a
// process that died before recording its run. It must be called before any
// run is started.
func (s *SyncService) RecoverInterrupted(ctx context.Context) (int, error) {
	runs, err := s.runs.ListUnfinished(ctx)
	if err != nil {
		return 0, err
	}
	for _, run := range runs {
		run.Fail("interrupted by restart", s.now())
		if err := s.runs.Update(ctx, run); err != nil {
			return 0, err
		}
		if err := s.stores.ReleaseSyncLock(ctx, run.TenantID, run.StoreID); err != nil {
			return 0, err
		}
		s.logger.Warn().
			Str("tenantId", run.TenantID).
			Str("storeId", run.StoreID).
			Str("runId", run.ID).
			Msg("Marked interrupted sync run as failed")
	}

	released, err := s.stores.ReleaseOrphanedSyncLocks(ctx)
	if err != nil {
		return 0, err
	}
	if released > 0 {
		s.logger.Warn().Int64("stores", released).Msg("Released sync locks without a sync run")
	}
	return len(runs), nil
}

// GetSyncStatus returns every store of the tenant with its current and last run
func (s *SyncService) GetSyncStatus(ctx context.Context, tenantID string) (*SyncStatus, error) {
	stores, err := s.stores.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}

	status := &SyncStatus{
		TenantID: tenantID,
		Stores:   make([]StoreSyncStatus, 0, len(stores)),
	}
	for _, store := range stores {
		runs, err := s.runs.ListByStore(ctx, tenantID, store.ID, statusRunWindow)
		if err != nil {
			return nil, fmt.Errorf("failed to list sync runs: %w", err)
		}
		entry := StoreSyncStatus{Store: store, Syncing: store.SyncInProgress}
		for i, run := range runs {
			if !run.State.IsTerminal() {
				if i == 0 {
					entry.CurrentRun = run
				}
				continue
			}
			entry.LastRun = run
			break
		}
		status.Stores = append(status.Stores, entry)
	}
	return status, nil
}

// GetRun retrieves a single run of the tenant
func (s *SyncService) GetRun(ctx context.Context, tenantID string, runID string) (*domain.SyncRun, error) {
	run, err := s.runs.GetByID(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, domain.ErrSyncRunNotFound
	}
	return run, nil
}

// ListRuns returns a store's run history, newest first
func (s *SyncService) ListRuns(ctx context.Context, tenantID string, storeID string, limit int) ([]*domain.SyncRun, error) {
	store, err := s.stores.GetByID(ctx, tenantID, storeID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, domain.ErrStoreNotFound
	}
	return s.runs.ListByStore(ctx, tenantID, storeID, limit)
}

// start checks the store, takes its sync lock and records a pending run
func (s *SyncService) start(ctx context.Context, tenantID string, storeID string, syncType domain.SyncType) (*domain.Store, *domain.SyncRun, error) {
	if syncType != domain.SyncTypeFull && syncType != domain.SyncTypeIncremental {
		return nil, nil, domain.NewValidationError("type", fmt.Sprintf("unknown sync type %q", syncType))
	}

	store, err := s.stores.GetByID(ctx, tenantID, storeID)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, domain.ErrStoreNotFound
	}
	if !store.IsConnected() {
		return nil, nil, domain.ErrStoreNotConnected
	}

	acquired, err := s.stores.AcquireSyncLock(ctx, tenantID, storeID)
	if err != nil {
		return nil, nil, err
	}
	if !acquired {
		return nil, nil, domain.ErrSyncInProgress
	}

	run := domain.NewSyncRun(tenantID, storeID, syncType, s.now())
	run.WatermarkBefore = store.SyncWatermark
	if err := s.runs.Create(ctx, run); err != nil {
		if releaseErr := s.stores.ReleaseSyncLock(context.WithoutCancel(ctx), tenantID, storeID); releaseErr != nil {
			s.logger.Error().Err(releaseErr).Str("storeId", storeID).Msg("Failed to release sync lock")
		}
		return nil, nil, err
	}

	s.metrics.RunStarted(syncType)
	s.publish(run, "sync started")
	return store, run, nil
}

// track registers a cancel func for the store's run; done unregisters it
func (s *SyncService) track(parent context.Context, store *domain.Store) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	key := syncKey(store.TenantID, store.ID)

	s.mu.Lock()
	s.active[key] = cancel
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		delete(s.active, key)
		s.mu.Unlock()
		cancel()
	}
}

// execute walks every resource and finishes or fails the run. It never
// returns an error: the outcome is recorded on the run.
func (s *SyncService) execute(ctx context.Context, store *domain.Store, run *domain.SyncRun) {
	bookkeeping := context.WithoutCancel(ctx)
	started := time.Now()
	logger := s.logger.With().
		Str("tenantId", run.TenantID).
		Str("storeId", run.StoreID).
		Str("runId", run.ID).
		Str("type", string(run.Type)).
		Logger()

	defer func() {
		if err := s.stores.ReleaseSyncLock(bookkeeping, run.TenantID, run.StoreID); err != nil {
			logger.Error().Err(err).Msg("Failed to release sync lock")
		}
		s.metrics.RunFinished(run.Type, run.State, time.Since(started))
	}()
	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, run, fmt.Errorf("panic during sync: %v", r), logger)
		}
	}()

	logger.Info().Str("shop", store.ShopDomain).Msg("Sync run started")

	if err := s.walk(ctx, store, run); err != nil {
		s.fail(ctx, run, err, logger)
		return
	}
	if err := s.finish(bookkeeping, store, run); err != nil {
		s.fail(ctx, run, err, logger)
		return
	}

	logger.Info().
		Int("processed", run.Processed).
		Dur("duration", time.Since(started)).
		Msg("Sync run completed")
}

func (s *SyncService) walk(ctx context.Context, store *domain.Store, run *domain.SyncRun) error {
	client, err := s.clients.NewClient(store.ShopDomain, store.AccessToken)
	if err != nil {
		return err
	}

	var since *time.Time
	if run.Type == domain.SyncTypeIncremental {
		since = store.IncrementalSince()
	}

	for _, resource := range domain.SyncResources {
		if err := s.syncResource(ctx, client, run, resource, since); err != nil {
			return fmt.Errorf("failed to sync %s: %w", resource, err)
		}
	}
	return nil
}

// syncResource fetches and persists one resource page by page, in cursor
// order, until a short page comes back
func (s *SyncService) syncResource(ctx context.Context, client ports.RemoteClient, run *domain.SyncRun, resource domain.ResourceType, since *time.Time) error {
	bookkeeping := context.WithoutCancel(ctx)
	opts := ports.ListOptions{Limit: s.pageSize, UpdatedAtMin: since}

	for {
		if ctx.Err() != nil {
			return errSyncCancelled
		}

		if err := run.TransitionTo(domain.SyncStateFetching); err != nil {
			return err
		}
		fetchStarted := time.Now()
		page, err := client.List(ctx, resource, opts)
		s.metrics.PageFetched(resource, time.Since(fetchStarted))
		if err != nil {
			return err
		}

		if err := run.TransitionTo(domain.SyncStateTransforming); err != nil {
			return err
		}
		batch := transformPage(resource, page.Records, run.TenantID, run.StoreID)

		if err := run.TransitionTo(domain.SyncStatePersisting); err != nil {
			return err
		}
		// a page that was fetched is persisted even if the run is cancelled meanwhile
		written, err := s.persist(bookkeeping, resource, batch)
		if err != nil {
			return err
		}
		s.metrics.RecordsPersisted(resource, written)

		last := len(page.Records) < opts.Limit
		run.RecordPage(resource, page.LastID, batch.size(), batch.skipped, batch.latest)
		run.ProgressFor(resource).Done = last
		if err := s.runs.Update(bookkeeping, run); err != nil {
			return err
		}
		s.publish(run, "")

		if last {
			return nil
		}
		if page.LastID <= opts.SinceID {
			return &domain.RemoteError{Message: fmt.Sprintf("%s pagination did not advance past id %d", resource, opts.SinceID)}
		}
		opts.SinceID = page.LastID
	}
}

func (s *SyncService) persist(ctx context.Context, resource domain.ResourceType, batch *pageBatch) (int, error) {
	if batch.size() == 0 {
		return 0, nil
	}
	switch resource {
	case domain.ResourceOrders:
		return s.records.UpsertOrders(ctx, batch.orders)
	case domain.ResourceCustomers:
		return s.records.UpsertCustomers(ctx, batch.customers)
	case domain.ResourceProducts:
		return s.records.UpsertProducts(ctx, batch.products)
	}
	return 0, domain.NewValidationError("resource", fmt.Sprintf("unknown resource %q", resource))
}

// finish advances the store watermark; it is the last write of a run
func (s *SyncService) finish(ctx context.Context, store *domain.Store, run *domain.SyncRun) error {
	watermark := run.Watermark(store, s.now())
	if err := s.stores.AdvanceWatermark(ctx, run.TenantID, run.StoreID, watermark); err != nil {
		return err
	}
	run.WatermarkAfter = watermark.UpdatedAt
	if err := run.Complete(s.now()); err != nil {
		return err
	}
	if err := s.runs.Update(ctx, run); err != nil {
		s.logger.Error().Err(err).Str("runId", run.ID).Msg("Failed to save completed sync run")
	}
	s.publish(run, "sync completed")
	return nil
}

func (s *SyncService) fail(ctx context.Context, run *domain.SyncRun, err error, logger zerolog.Logger) {
	bookkeeping := context.WithoutCancel(ctx)

	reason := err.Error()
	if errors.Is(err, errSyncCancelled) || errors.Is(err, context.Canceled) {
		reason = errSyncCancelled.Error()
	}

	if domain.IsAuthError(err) {
		if markErr := s.stores.MarkFailed(bookkeeping, run.TenantID, run.StoreID); markErr != nil {
			logger.Error().Err(markErr).Msg("Failed to mark store as failed")
		}
	}

	run.Fail(reason, s.now())
	if updateErr := s.runs.Update(bookkeeping, run); updateErr != nil {
		logger.Error().Err(updateErr).Msg("Failed to save failed sync run")
	}
	s.publish(run, reason)

	logger.Error().
		Err(err).
		Int("processed", run.Processed).
		Msg("Sync run failed")
}

func (s *SyncService) publish(run *domain.SyncRun, message string) {
	s.events.Publish(&domain.SyncEvent{
		Kind:      domain.SyncEventRun,
		TenantID:  run.TenantID,
		StoreID:   run.StoreID,
		RunID:     run.ID,
		State:     run.State,
		Processed: run.Processed,
		Message:   message,
		At:        s.now(),
	})
}

func syncKey(tenantID string, storeID string) string {
	return tenantID + "/" + storeID
}

// pageBatch is a transformed page ready to persist
type pageBatch struct {
	orders    []*domain.Order
	customers []*domain.Customer
	products  []*domain.Product
	skipped   int
	latest    *time.Time
}

func (b *pageBatch) size() int {
	return len(b.orders) + len(b.customers) + len(b.products)
}

// observe folds a record into the batch watermark: its remote updated_at,
// or created_at when the record was never updated
func (b *pageBatch) observe(created, updated *time.Time) {
	stamp := updated
	if stamp == nil {
		stamp = created
	}
	if stamp != nil && (b.latest == nil || stamp.After(*b.latest)) {
		b.latest = stamp
	}
}

// transformPage maps raw records; records without a remote id are skipped
func transformPage(resource domain.ResourceType, records []json.RawMessage, tenantID string, storeID string) *pageBatch {
	batch := &pageBatch{}
	for _, raw := range records {
		switch resource {
		case domain.ResourceOrders:
			order := transform.Order(raw, tenantID, storeID)
			if order.RemoteID == 0 {
				batch.skipped++
				continue
			}
			batch.orders = append(batch.orders, order)
			batch.observe(order.RemoteCreatedAt, order.RemoteUpdatedAt)
		case domain.ResourceCustomers:
			customer := transform.Customer(raw, tenantID, storeID)
			if customer.RemoteID == 0 {
				batch.skipped++
				continue
			}
			batch.customers = append(batch.customers, customer)
			batch.observe(customer.RemoteCreatedAt, customer.RemoteUpdatedAt)
		case domain.ResourceProducts:
			product := transform.Product(raw, tenantID, storeID)
			if product.RemoteID == 0 {
				batch.skipped++
				continue
			}
			batch.products = append(batch.products, product)
			batch.observe(product.RemoteCreatedAt, product.RemoteUpdatedAt)
		}
	}
	return batch
}
