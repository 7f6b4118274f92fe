package webhook_handlers

import (
	"context"
	"fmt"

	"commerce-sync-core/internal/application/transform"
	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// CustomerHandler handles customer webhook events
type CustomerHandler struct {
	records ports.RecordRepository
	logger  zerolog.Logger
}

// NewCustomerHandler creates a new customer webhook handler
func NewCustomerHandler(records ports.RecordRepository, logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{
		records: records,
		logger:  logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *CustomerHandler) CanHandle(topic domain.WebhookTopic) bool {
	return topic.Resource() == domain.ResourceCustomers
}

// Handle upserts or deletes the customer in the payload
func (h *CustomerHandler) Handle(ctx context.Context, store *domain.Store, topic domain.WebhookTopic, payload []byte) error {
	switch topic.Action() {
	case domain.WebhookActionCreate, domain.WebhookActionUpdate:
		customer := transform.Customer(payload, store.TenantID, store.ID)
		if customer.RemoteID == 0 {
			return missingID(topic)
		}
		written, err := h.records.UpsertCustomers(ctx, []*domain.Customer{customer})
		if err != nil {
			return fmt.Errorf("failed to upsert customer %d: %w", customer.RemoteID, err)
		}
		logUpsert(h.logger, store, topic, customer.RemoteID, written)
		return nil
	case domain.WebhookActionDelete:
		return deleteRecord(ctx, h.records, store, topic, payload, h.logger)
	}
	return unsupported("customer handler", topic)
}
