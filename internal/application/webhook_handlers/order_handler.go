package webhook_handlers

import (
	"context"
	"fmt"

	"commerce-sync-core/internal/application/transform"
	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// OrderHandler handles order webhook events
type OrderHandler struct {
	records ports.RecordRepository
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order webhook handler
func NewOrderHandler(records ports.RecordRepository, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		records: records,
		logger:  logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *OrderHandler) CanHandle(topic domain.WebhookTopic) bool {
	return topic.Resource() == domain.ResourceOrders
}

// Handle upserts or deletes the order in the payload
func (h *OrderHandler) Handle(ctx context.Context, store *domain.Store, topic domain.WebhookTopic, payload []byte) error {
	switch topic.Action() {
	case domain.WebhookActionCreate, domain.WebhookActionUpdate:
		order := transform.Order(payload, store.TenantID, store.ID)
		if order.RemoteID == 0 {
			return missingID(topic)
		}
		written, err := h.records.UpsertOrders(ctx, []*domain.Order{order})
		if err != nil {
			return fmt.Errorf("failed to upsert order %d: %w", order.RemoteID, err)
		}
		logUpsert(h.logger, store, topic, order.RemoteID, written)
		return nil
	case domain.WebhookActionDelete:
		return deleteRecord(ctx, h.records, store, topic, payload, h.logger)
	}
	return unsupported("order handler", topic)
}
