package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"commerce-sync-core/internal/application"
	"commerce-sync-core/internal/application/webhook_handlers"
	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/infrastructure/pubsub"
	"commerce-sync-core/internal/infrastructure/repository"
	"commerce-sync-core/internal/infrastructure/shopify"
	"commerce-sync-core/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

const testWebhookSecret = "webhook-secret"

// stubRemote serves a fixed list of orders in one page. When gate is set,
// List blocks until it is closed.
type stubRemote struct {
	mu        sync.Mutex
	orders    []json.RawMessage
	verifyErr error
	gate      chan struct{}
	webhooks  []domain.WebhookDescriptor
}

func (s *stubRemote) Verify(ctx context.Context) (*domain.ShopInfo, error) {
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return &domain.ShopInfo{RemoteID: 1, Name: "Test Shop", Currency: "EUR"}, nil
}

func (s *stubRemote) List(ctx context.Context, resource domain.ResourceType, opts ports.ListOptions) (*ports.Page, error) {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	page := &ports.Page{Records: []json.RawMessage{}, LastID: opts.SinceID}
	if resource != domain.ResourceOrders || opts.SinceID > 0 {
		return page, nil
	}
	for i, raw := range s.orders {
		page.Records = append(page.Records, raw)
		page.LastID = int64(1001 + i)
	}
	return page, nil
}

func (s *stubRemote) Count(ctx context.Context, resource domain.ResourceType) (int, error) {
	if resource == domain.ResourceOrders {
		return len(s.orders), nil
	}
	return 0, nil
}

func (s *stubRemote) RegisterWebhook(ctx context.Context, topic domain.WebhookTopic, callbackURL string) (*domain.WebhookDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	descriptor := domain.WebhookDescriptor{RemoteID: int64(len(s.webhooks) + 1), Topic: topic.String(), Address: callbackURL, Format: "json"}
	s.webhooks = append(s.webhooks, descriptor)
	return &descriptor, nil
}

func (s *stubRemote) ListWebhooks(ctx context.Context) ([]domain.WebhookDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.WebhookDescriptor(nil), s.webhooks...), nil
}

type stubClientFactory struct {
	remote *stubRemote
}

func (f *stubClientFactory) NewClient(shopDomain string, accessToken string) (ports.RemoteClient, error) {
	return f.remote, nil
}

type testServer struct {
	handler http.Handler
	remote  *stubRemote
	records *repository.GormRecordRepository
	syncs   *application.SyncService
	events  *pubsub.SyncPubSub
}

type serverOption func(*RouterConfig)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	dsn := fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", uuid.NewString())
	database, err := repository.OpenDatabase(dsn, gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate())

	logger := zerolog.Nop()
	stores := repository.NewGormStoreRepository(database.DB)
	records := repository.NewGormRecordRepository(database.DB)
	runs := repository.NewGormSyncRunRepository(database.DB)
	remote := &stubRemote{}
	clients := &stubClientFactory{remote: remote}
	events := pubsub.NewSyncPubSub(logger)

	syncs := application.NewSyncService(stores, records, runs, clients, events, nil, 50, logger)
	t.Cleanup(func() {
		syncs.Wait()
		_ = database.Close()
	})

	ingestor := application.NewWebhookIngestor(stores, nil, events, nil, logger)
	ingestor.RegisterHandler(webhook_handlers.NewOrderHandler(records, logger))
	ingestor.RegisterHandler(webhook_handlers.NewCustomerHandler(records, logger))
	ingestor.RegisterHandler(webhook_handlers.NewProductHandler(records, logger))
	ingestor.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(stores, syncs, logger))
	require.NoError(t, ingestor.Validate())

	cfg := RouterConfig{
		Stores: application.NewStoreService(stores, clients, syncs, func(storeID string) string {
			return "https://sync.example.com/webhooks/shopify/" + storeID
		}, logger),
		Syncs:           syncs,
		Webhooks:        ingestor,
		Events:          events,
		Verifier:        shopify.NewWebhookVerifier(testWebhookSecret),
		DefaultTenantID: domain.DefaultTenantID,
		Logger:          logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testServer{
		handler: NewRouter(cfg),
		remote:  remote,
		records: records,
		syncs:   syncs,
		events:  events,
	}
}

func (s *testServer) do(t *testing.T, method, path, tenant string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// connect creates a store for tenant through the API and returns its id
func (s *testServer) connect(t *testing.T, tenant, shop string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/stores", tenant, map[string]string{
		"shop_domain":  shop,
		"access_token": "shpat_test",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data domain.Store `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.ID)
	return resp.Data.ID
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	envelope := struct {
		Data interface{} `json:"data"`
	}{Data: v}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}
