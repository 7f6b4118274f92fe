package webhook_handlers

import (
	"context"
	"fmt"

	"commerce-sync-core/internal/application/transform"
	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// ProductHandler handles product webhook events
type ProductHandler struct {
	records ports.RecordRepository
	logger  zerolog.Logger
}

// NewProductHandler creates a new product webhook handler
func NewProductHandler(records ports.RecordRepository, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		records: records,
		logger:  logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ProductHandler) CanHandle(topic domain.WebhookTopic) bool {
	return topic.Resource() == domain.ResourceProducts
}

// Handle upserts or deletes the product in the payload
func (h *ProductHandler) Handle(ctx context.Context, store *domain.Store, topic domain.WebhookTopic, payload []byte) error {
	switch topic.Action() {
	case domain.WebhookActionCreate, domain.WebhookActionUpdate:
		product := transform.Product(payload, store.TenantID, store.ID)
		if product.RemoteID == 0 {
			return missingID(topic)
		}
		written, err := h.records.UpsertProducts(ctx, []*domain.Product{product})
		if err != nil {
			return fmt.Errorf("failed to upsert product %d: %w", product.RemoteID, err)
		}
		logUpsert(h.logger, store, topic, product.RemoteID, written)
		return nil
	case domain.WebhookActionDelete:
		return deleteRecord(ctx, h.records, store, topic, payload, h.logger)
	}
	return unsupported("product handler", topic)
}
