package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"commerce-sync-core/internal/application/transform"
	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/infrastructure/repository"
	"commerce-sync-core/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

var baseTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// fakeRemote serves records the way the remote platform paginates them:
// ascending remote id, strictly after SinceID, at most Limit per page
type fakeRemote struct {
	mu          sync.Mutex
	records     map[domain.ResourceType][]json.RawMessage
	calls       map[domain.ResourceType]int
	queries     []ports.ListOptions
	listErr     map[domain.ResourceType]error
	failOnCall  map[domain.ResourceType]int
	verifyErr   error
	counts      map[domain.ResourceType]int
	webhooks    []domain.WebhookDescriptor
	registerErr map[domain.WebhookTopic]error

	// hook runs before a List call is served, outside the lock
	hook func(resource domain.ResourceType, call int)
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		records:     map[domain.ResourceType][]json.RawMessage{},
		calls:       map[domain.ResourceType]int{},
		listErr:     map[domain.ResourceType]error{},
		failOnCall:  map[domain.ResourceType]int{},
		counts:      map[domain.ResourceType]int{},
		registerErr: map[domain.WebhookTopic]error{},
	}
}

func (f *fakeRemote) Verify(ctx context.Context) (*domain.ShopInfo, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &domain.ShopInfo{RemoteID: 548380009, Name: "Shop One", Email: "owner@shop1.test", Currency: "USD", Timezone: "America/New_York", PlanName: "basic"}, nil
}

func (f *fakeRemote) List(ctx context.Context, resource domain.ResourceType, opts ports.ListOptions) (*ports.Page, error) {
	f.mu.Lock()
	f.calls[resource]++
	call := f.calls[resource]
	f.queries = append(f.queries, opts)
	hook := f.hook
	err := f.listErr[resource]
	if n, ok := f.failOnCall[resource]; ok && n == call {
		err = &domain.RemoteError{Status: 503, Message: "service unavailable"}
	}
	records := f.records[resource]
	f.mu.Unlock()

	if hook != nil {
		hook(resource, call)
	}
	if err != nil {
		return nil, err
	}

	page := &ports.Page{Records: []json.RawMessage{}, LastID: opts.SinceID}
	for _, raw := range records {
		if len(page.Records) == opts.Limit {
			break
		}
		id := transform.RemoteID(raw)
		if id <= opts.SinceID || !updatedSince(raw, opts.UpdatedAtMin) {
			continue
		}
		page.Records = append(page.Records, raw)
		page.LastID = id
	}
	return page, nil
}

func updatedSince(raw json.RawMessage, since *time.Time) bool {
	if since == nil {
		return true
	}
	var stamps struct {
		CreatedAt *time.Time `json:"created_at"`
		UpdatedAt *time.Time `json:"updated_at"`
	}
	if err := json.Unmarshal(raw, &stamps); err != nil {
		return true
	}
	stamp := stamps.UpdatedAt
	if stamp == nil {
		stamp = stamps.CreatedAt
	}
	return stamp == nil || !stamp.Before(*since)
}

func (f *fakeRemote) Count(ctx context.Context, resource domain.ResourceType) (int, error) {
	return f.counts[resource], nil
}

func (f *fakeRemote) RegisterWebhook(ctx context.Context, topic domain.WebhookTopic, callbackURL string) (*domain.WebhookDescriptor, error) {
	if err := f.registerErr[topic]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	descriptor := domain.WebhookDescriptor{RemoteID: int64(len(f.webhooks) + 1), Topic: topic.String(), Address: callbackURL, Format: "json"}
	f.webhooks = append(f.webhooks, descriptor)
	return &descriptor, nil
}

func (f *fakeRemote) ListWebhooks(ctx context.Context) ([]domain.WebhookDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.WebhookDescriptor{}, f.webhooks...), nil
}

func (f *fakeRemote) listCalls(resource domain.ResourceType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[resource]
}

func (f *fakeRemote) lastQuery() ports.ListOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

type fakeClientFactory struct {
	remote *fakeRemote
}

func (f *fakeClientFactory) NewClient(shopDomain string, accessToken string) (ports.RemoteClient, error) {
	if accessToken == "" {
		return nil, domain.NewValidationError("access_token", "is required")
	}
	return f.remote, nil
}

// failingRecords fails the nth UpsertOrders call
type failingRecords struct {
	ports.RecordRepository
	failOn int
	calls  int
}

func (r *failingRecords) UpsertOrders(ctx context.Context, orders []*domain.Order) (int, error) {
	r.calls++
	if r.calls == r.failOn {
		return 0, domain.NewPersistenceError("upsert orders", fmt.Errorf("database is locked"))
	}
	return r.RecordRepository.UpsertOrders(ctx, orders)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.SyncEvent
}

func (p *recordingPublisher) Publish(event *domain.SyncEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		if e.Message != "" {
			out = append(out, e.Message)
		}
	}
	return out
}

type recordingWebhookLog struct {
	mu     sync.Mutex
	events []*domain.WebhookEvent
}

func (l *recordingWebhookLog) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

type recordingMetrics struct {
	noopMetrics
	mu       sync.Mutex
	webhooks map[string]int
}

func (m *recordingMetrics) WebhookProcessed(topic string, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.webhooks == nil {
		m.webhooks = map[string]int{}
	}
	m.webhooks[topic+" "+outcome]++
}

type testEnv struct {
	stores  *repository.GormStoreRepository
	records *repository.GormRecordRepository
	runs    *repository.GormSyncRunRepository
	remote  *fakeRemote
	clients *fakeClientFactory
	events  *recordingPublisher
	store   *domain.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", uuid.NewString())
	database, err := repository.OpenDatabase(dsn, gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate())
	t.Cleanup(func() { _ = database.Close() })

	remote := newFakeRemote()
	env := &testEnv{
		stores:  repository.NewGormStoreRepository(database.DB),
		records: repository.NewGormRecordRepository(database.DB),
		runs:    repository.NewGormSyncRunRepository(database.DB),
		remote:  remote,
		clients: &fakeClientFactory{remote: remote},
		events:  &recordingPublisher{},
		store: &domain.Store{
			TenantID:      "tenant-1",
			ShopDomain:    "shop1.myshopify.com",
			AccessToken:   "shpat_valid",
			Status:        domain.StoreStatusConnected,
			SyncFrequency: domain.SyncFrequencyHourly,
		},
	}
	require.NoError(t, env.stores.Create(context.Background(), env.store))
	return env
}

func (e *testEnv) syncService(pageSize int, records ports.RecordRepository) *SyncService {
	if records == nil {
		records = e.records
	}
	return NewSyncService(e.stores, records, e.runs, e.clients, e.events, nil, pageSize, zerolog.Nop())
}

func (e *testEnv) reloadStore(t *testing.T) *domain.Store {
	t.Helper()
	store, err := e.stores.GetByID(context.Background(), e.store.TenantID, e.store.ID)
	require.NoError(t, err)
	require.NotNil(t, store)
	return store
}

func (e *testEnv) count(t *testing.T, resource domain.ResourceType) int64 {
	t.Helper()
	n, err := e.records.Count(context.Background(), resource, e.store.TenantID, e.store.ID)
	require.NoError(t, err)
	return n
}

// orderRecords builds n raw orders with ascending ids and created_at one
// minute apart; they carry no updated_at
func orderRecords(n int, firstID int64, start time.Time) []json.RawMessage {
	records := make([]json.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		created := start.Add(time.Duration(i) * time.Minute).Format(time.RFC3339)
		records = append(records, json.RawMessage(fmt.Sprintf(
			`{"id":%d,"order_number":%d,"email":"buyer%d@example.com","total_price":"%d.50","created_at":"%s","line_items":[{"id":%d,"title":"Mug","quantity":1,"price":"%d.50"}]}`,
			firstID+int64(i), 1001+i, i, 10+i, created, 9000+int64(i), 10+i)))
	}
	return records
}

func customerRecord(id int64, email string, updated time.Time) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"id":%d,"email":"%s","total_spent":"12.00","created_at":"%s","updated_at":"%s"}`,
		id, email, baseTime.Format(time.RFC3339), updated.Format(time.RFC3339)))
}

func productRecord(id int64, title string, updated time.Time) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"id":%d,"title":"%s","variants":[{"id":%d,"price":"5.00"}],"created_at":"%s","updated_at":"%s"}`,
		id, title, id*10, baseTime.Format(time.RFC3339), updated.Format(time.RFC3339)))
}
