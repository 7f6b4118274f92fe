package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// StoreService connects, configures and disconnects tenant stores
type StoreService struct {
	stores      ports.StoreRepository
	clients     ports.RemoteClientFactory
	syncs       *SyncService
	callbackURL func(storeID string) string
	logger      zerolog.Logger
	now         func() time.Time
}

// NewStoreService creates a new store service. callbackURL builds the
// webhook address of a store; syncs may be nil.
func NewStoreService(
	stores ports.StoreRepository,
	clients ports.RemoteClientFactory,
	syncs *SyncService,
	callbackURL func(storeID string) string,
	logger zerolog.Logger,
) *StoreService {
	return &StoreService{
		stores:      stores,
		clients:     clients,
		syncs:       syncs,
		callbackURL: callbackURL,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ConnectInput represents input for connecting a store
type ConnectInput struct {
	ShopDomain    string               `json:"shop_domain"`
	AccessToken   string               `json:"access_token"`
	SyncFrequency domain.SyncFrequency `json:"sync_frequency"`
}

// UpdateSettingsInput represents a partial settings update; nil fields are kept
type UpdateSettingsInput struct {
	SyncFrequency *domain.SyncFrequency `json:"sync_frequency"`
	Settings      map[string]string     `json:"settings"`
}

// ConnectionTest is the result of re-verifying a store's credential
type ConnectionTest struct {
	Shop   *domain.ShopInfo            `json:"shop"`
	Counts map[domain.ResourceType]int `json:"counts"`
}

// WebhookSetupResult lists the topics that were and were not registered
type WebhookSetupResult struct {
	CallbackURL string                     `json:"callback_url"`
	Registered  []domain.WebhookDescriptor `json:"registered"`
	Failed      map[string]string          `json:"failed"`
}

// Connect verifies the credential with the remote platform and saves the
// store. A previously disconnected store of the tenant is reconnected in place.
func (s *StoreService) Connect(ctx context.Context, tenantID string, input ConnectInput) (*domain.Store, error) {
	shopDomain := domain.NormalizeShopDomain(input.ShopDomain)
	if shopDomain == "" {
		return nil, domain.NewValidationError("shop_domain", "is required")
	}
	accessToken := strings.TrimSpace(input.AccessToken)
	if accessToken == "" {
		return nil, domain.NewValidationError("access_token", "is required")
	}
	frequency := input.SyncFrequency
	if frequency == "" {
		frequency = domain.SyncFrequencyDaily
	}
	if !frequency.IsValid() {
		return nil, domain.NewValidationError("sync_frequency", fmt.Sprintf("unknown sync frequency %q", frequency))
	}

	existing, err := s.stores.GetByDomain(ctx, tenantID, shopDomain)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == domain.StoreStatusConnected {
		return nil, domain.ErrStoreAlreadyConnected
	}

	client, err := s.clients.NewClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	info, err := client.Verify(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", shopDomain).Msg("Store verification failed")
		return nil, err
	}

	now := s.now()
	if existing != nil {
		existing.AccessToken = accessToken
		existing.Status = domain.StoreStatusConnected
		existing.SyncFrequency = frequency
		existing.DisconnectedAt = nil
		existing.UpdatedAt = now
		existing.ApplyShopInfo(info)
		if err := s.stores.Update(ctx, existing); err != nil {
			return nil, err
		}
		s.logger.Info().Str("tenantId", tenantID).Str("storeId", existing.ID).Str("shop", shopDomain).Msg("Store reconnected")
		return existing, nil
	}

	store := &domain.Store{
		TenantID:      tenantID,
		ShopDomain:    shopDomain,
		AccessToken:   accessToken,
		Status:        domain.StoreStatusConnected,
		SyncFrequency: frequency,
		Settings:      map[string]string{},
		SyncCursors:   map[domain.ResourceType]time.Time{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	store.ApplyShopInfo(info)
	if err := s.stores.Create(ctx, store); err != nil {
		return nil, err
	}

	s.logger.Info().Str("tenantId", tenantID).Str("storeId", store.ID).Str("shop", shopDomain).Msg("Store connected")
	return store, nil
}

// List returns every store of the tenant
func (s *StoreService) List(ctx context.Context, tenantID string) ([]*domain.Store, error) {
	return s.stores.ListByTenant(ctx, tenantID)
}

// Get returns a store of the tenant or ErrStoreNotFound
func (s *StoreService) Get(ctx context.Context, tenantID string, storeID string) (*domain.Store, error) {
	store, err := s.stores.GetByID(ctx, tenantID, storeID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, domain.ErrStoreNotFound
	}
	return store, nil
}

// UpdateSettings changes the sync frequency and merges free-form settings
func (s *StoreService) UpdateSettings(ctx context.Context, tenantID string, storeID string, input UpdateSettingsInput) (*domain.Store, error) {
	store, err := s.Get(ctx, tenantID, storeID)
	if err != nil {
		return nil, err
	}

	if input.SyncFrequency != nil {
		if !input.SyncFrequency.IsValid() {
			return nil, domain.NewValidationError("sync_frequency", fmt.Sprintf("unknown sync frequency %q", *input.SyncFrequency))
		}
		store.SyncFrequency = *input.SyncFrequency
	}
	if store.Settings == nil {
		store.Settings = map[string]string{}
	}
	for key, value := range input.Settings {
		if value == "" {
			delete(store.Settings, key)
			continue
		}
		store.Settings[key] = value
	}
	store.UpdatedAt = s.now()

	if err := s.stores.Update(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

// Disconnect soft-deletes the store: the row and its synced records stay,
// the credential is cleared and any running sync is cancelled
func (s *StoreService) Disconnect(ctx context.Context, tenantID string, storeID string) (*domain.Store, error) {
	store, err := s.Get(ctx, tenantID, storeID)
	if err != nil {
		return nil, err
	}
	if store.Status == domain.StoreStatusDisconnected {
		return store, nil
	}

	if s.syncs != nil {
		if err := s.syncs.CancelSync(tenantID, storeID); err != nil && !errors.Is(err, domain.ErrNoActiveSync) {
			return nil, err
		}
	}

	store.Disconnect(s.now())
	if err := s.stores.Update(ctx, store); err != nil {
		return nil, err
	}
	s.logger.Info().Str("tenantId", tenantID).Str("storeId", storeID).Msg("Store disconnected")
	return store, nil
}

// TestConnection re-verifies the credential and counts remote records. A
// rejected credential marks the store as failed.
func (s *StoreService) TestConnection(ctx context.Context, tenantID string, storeID string) (*ConnectionTest, error) {
	store, client, err := s.connectedClient(ctx, tenantID, storeID)
	if err != nil {
		return nil, err
	}

	info, err := client.Verify(ctx)
	if err != nil {
		if domain.IsAuthError(err) {
			if markErr := s.stores.MarkFailed(ctx, tenantID, store.ID); markErr != nil {
				s.logger.Error().Err(markErr).Str("storeId", store.ID).Msg("Failed to mark store as failed")
			}
		}
		return nil, err
	}

	result := &ConnectionTest{Shop: info, Counts: make(map[domain.ResourceType]int, len(domain.SyncResources))}
	for _, resource := range domain.SyncResources {
		count, err := client.Count(ctx, resource)
		if err != nil {
			return nil, err
		}
		result.Counts[resource] = count
	}
	return result, nil
}

// SetupWebhooks subscribes the store's callback URL to every webhook topic.
// Topics that fail are reported in the result, not as an error.
func (s *StoreService) SetupWebhooks(ctx context.Context, tenantID string, storeID string) (*WebhookSetupResult, error) {
	store, client, err := s.connectedClient(ctx, tenantID, storeID)
	if err != nil {
		return nil, err
	}
	callbackURL := s.callbackURL(store.ID)
	if !strings.HasPrefix(callbackURL, "http") {
		return nil, domain.NewValidationError("app_url", "APP_URL must be configured to register webhooks")
	}

	result := &WebhookSetupResult{
		CallbackURL: callbackURL,
		Registered:  []domain.WebhookDescriptor{},
		Failed:      map[string]string{},
	}
	for _, topic := range domain.AllWebhookTopics() {
		descriptor, err := client.RegisterWebhook(ctx, topic, callbackURL)
		if err != nil {
			s.logger.Warn().Err(err).Str("storeId", store.ID).Str("topic", topic.String()).Msg("Failed to register webhook")
			result.Failed[topic.String()] = err.Error()
			continue
		}
		result.Registered = append(result.Registered, *descriptor)
	}

	s.logger.Info().
		Str("storeId", store.ID).
		Int("registered", len(result.Registered)).
		Int("failed", len(result.Failed)).
		Msg("Webhook setup finished")
	return result, nil
}

// WebhookStatus lists the store's webhook subscriptions on the remote platform
func (s *StoreService) WebhookStatus(ctx context.Context, tenantID string, storeID string) ([]domain.WebhookDescriptor, error) {
	_, client, err := s.connectedClient(ctx, tenantID, storeID)
	if err != nil {
		return nil, err
	}
	return client.ListWebhooks(ctx)
}

func (s *StoreService) connectedClient(ctx context.Context, tenantID string, storeID string) (*domain.Store, ports.RemoteClient, error) {
	store, err := s.Get(ctx, tenantID, storeID)
	if err != nil {
		return nil, nil, err
	}
	if !store.IsConnected() {
		return nil, nil, domain.ErrStoreNotConnected
	}
	client, err := s.clients.NewClient(store.ShopDomain, store.AccessToken)
	if err != nil {
		return nil, nil, err
	}
	return store, client, nil
}
