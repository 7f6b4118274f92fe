package ports

import (
	"context"

	"commerce-sync-core/internal/domain"
)

// WebhookLog keeps an audit trail of received webhook deliveries
type WebhookLog interface {
	LogWebhook(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDeduplicator remembers delivery ids already seen
type WebhookDeduplicator interface {
	// FirstDelivery records deliveryID and reports whether it was new
	FirstDelivery(ctx context.Context, deliveryID string) (bool, error)
}

// SyncEventPublisher fans sync activity out to live subscribers
type SyncEventPublisher interface {
	Publish(event *domain.SyncEvent)
}

// WebhookHandler applies one kind of webhook to local storage
type WebhookHandler interface {
	CanHandle(topic domain.WebhookTopic) bool
	Handle(ctx context.Context, store *domain.Store, topic domain.WebhookTopic, payload []byte) error
}
