package webhook_handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// SyncCanceller stops a store's active sync run
type SyncCanceller interface {
	CancelSync(tenantID string, storeID string) error
}

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	stores ports.StoreRepository
	syncs  SyncCanceller
	logger zerolog.Logger
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler.
// syncs may be nil.
func NewAppUninstalledHandler(stores ports.StoreRepository, syncs SyncCanceller, logger zerolog.Logger) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		stores: stores,
		syncs:  syncs,
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic domain.WebhookTopic) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle disconnects the store: its credential is revoked remotely, so it
// is cleared locally and any running sync is cancelled
func (h *AppUninstalledHandler) Handle(ctx context.Context, store *domain.Store, topic domain.WebhookTopic, payload []byte) error {
	if topic.Action() != domain.WebhookActionUninstall {
		return unsupported("app uninstalled handler", topic)
	}

	if store.Status == domain.StoreStatusDisconnected {
		h.logger.Info().Str("storeId", store.ID).Msg("Store already disconnected")
		return nil
	}

	if h.syncs != nil {
		if err := h.syncs.CancelSync(store.TenantID, store.ID); err != nil && !errors.Is(err, domain.ErrNoActiveSync) {
			h.logger.Warn().Err(err).Str("storeId", store.ID).Msg("Failed to cancel sync of uninstalled store")
		}
	}

	store.Disconnect(time.Now().UTC())
	if err := h.stores.Update(ctx, store); err != nil {
		return fmt.Errorf("failed to disconnect store: %w", err)
	}

	h.logger.Info().
		Str("tenantId", store.TenantID).
		Str("storeId", store.ID).
		Str("shop", store.ShopDomain).
		Msg("App uninstalled - store disconnected")
	return nil
}
