package application

import (
	"context"
	"fmt"
	"time"

	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookDelivery is one inbound webhook as received by the transport
type WebhookDelivery struct {
	StoreID    string
	Topic      string
	DeliveryID string
	Shop       string
	Payload    []byte
	Verified   bool
}

// WebhookIngestor applies webhook deliveries as single-record mutations,
// independently of sync runs
type WebhookIngestor struct {
	stores   ports.StoreRepository
	handlers []ports.WebhookHandler
	audit    ports.WebhookLog
	events   ports.SyncEventPublisher
	metrics  ports.SyncMetrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewWebhookIngestor creates a new webhook ingestor. audit, events and
// metrics may be nil.
func NewWebhookIngestor(
	stores ports.StoreRepository,
	audit ports.WebhookLog,
	events ports.SyncEventPublisher,
	metrics ports.SyncMetrics,
	logger zerolog.Logger,
) *WebhookIngestor {
	if events == nil {
		events = noopPublisher{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &WebhookIngestor{
		stores:  stores,
		audit:   audit,
		events:  events,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RegisterHandler adds a webhook handler
func (i *WebhookIngestor) RegisterHandler(handler ports.WebhookHandler) {
	i.handlers = append(i.handlers, handler)
}

// Validate checks that every topic is claimed by exactly one handler
func (i *WebhookIngestor) Validate() error {
	for _, topic := range domain.AllWebhookTopics() {
		claimed := 0
		for _, handler := range i.handlers {
			if handler.CanHandle(topic) {
				claimed++
			}
		}
		if claimed != 1 {
			return fmt.Errorf("webhook topic %s has %d handlers, want 1", topic, claimed)
		}
	}
	return nil
}

// Ingest applies a single webhook and reports any failure
func (i *WebhookIngestor) Ingest(ctx context.Context, storeID string, topic string, payload []byte) error {
	_, err := i.ingest(ctx, storeID, topic, payload)
	return err
}

// HandleWebhook applies a webhook and never fails: processing errors are
// logged and recorded, and the delivery is always acknowledged
func (i *WebhookIngestor) HandleWebhook(ctx context.Context, storeID string, topic string, payload []byte) {
	i.HandleDelivery(ctx, WebhookDelivery{StoreID: storeID, Topic: topic, Payload: payload, Verified: true})
}

// HandleDelivery is HandleWebhook with the transport metadata of the delivery
func (i *WebhookIngestor) HandleDelivery(ctx context.Context, delivery WebhookDelivery) {
	event := &domain.WebhookEvent{
		DeliveryID: delivery.DeliveryID,
		StoreID:    delivery.StoreID,
		Topic:      delivery.Topic,
		Shop:       delivery.Shop,
		Payload:    delivery.Payload,
		Verified:   delivery.Verified,
		Outcome:    domain.WebhookOutcomeProcessed,
		ReceivedAt: i.now(),
	}

	store, err := i.ingest(ctx, delivery.StoreID, delivery.Topic, delivery.Payload)
	if store != nil {
		event.TenantID = store.TenantID
	}
	if err != nil {
		event.Outcome = domain.WebhookOutcomeFailed
		event.Error = err.Error()
		i.logger.Error().
			Err(err).
			Str("storeId", delivery.StoreID).
			Str("topic", delivery.Topic).
			Str("deliveryId", delivery.DeliveryID).
			Msg("Failed to process webhook")
	} else {
		i.logger.Info().
			Str("storeId", delivery.StoreID).
			Str("topic", delivery.Topic).
			Bool("verified", delivery.Verified).
			Msg("Webhook processed")
	}

	i.record(ctx, event)
}

// RecordDuplicate accounts for a delivery that was acknowledged without processing
func (i *WebhookIngestor) RecordDuplicate(ctx context.Context, delivery WebhookDelivery) {
	i.logger.Info().
		Str("storeId", delivery.StoreID).
		Str("topic", delivery.Topic).
		Str("deliveryId", delivery.DeliveryID).
		Msg("Skipped duplicate webhook delivery")
	i.record(ctx, &domain.WebhookEvent{
		DeliveryID: delivery.DeliveryID,
		StoreID:    delivery.StoreID,
		Topic:      delivery.Topic,
		Shop:       delivery.Shop,
		Payload:    delivery.Payload,
		Verified:   delivery.Verified,
		Outcome:    domain.WebhookOutcomeDuplicate,
		ReceivedAt: i.now(),
	})
}

func (i *WebhookIngestor) record(ctx context.Context, event *domain.WebhookEvent) {
	i.metrics.WebhookProcessed(event.Topic, event.Outcome)

	if i.audit != nil {
		if err := i.audit.LogWebhook(context.WithoutCancel(ctx), event); err != nil {
			i.logger.Warn().Err(err).Str("topic", event.Topic).Msg("Failed to log webhook")
		}
	}

	if event.TenantID != "" {
		i.events.Publish(&domain.SyncEvent{
			Kind:     domain.SyncEventWebhook,
			TenantID: event.TenantID,
			StoreID:  event.StoreID,
			Topic:    event.Topic,
			Message:  event.Outcome,
			At:       event.ReceivedAt,
		})
	}
}

func (i *WebhookIngestor) ingest(ctx context.Context, storeID string, rawTopic string, payload []byte) (*domain.Store, error) {
	topic, err := domain.ParseWebhookTopic(rawTopic)
	if err != nil {
		return nil, err
	}

	store, err := i.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, domain.ErrStoreNotFound
	}
	if store.IsDisconnected() && topic != domain.TopicAppUninstalled {
		return store, domain.ErrStoreNotConnected
	}

	for _, handler := range i.handlers {
		if handler.CanHandle(topic) {
			return store, dispatch(ctx, handler, store, topic, payload)
		}
	}
	return store, fmt.Errorf("no handler registered for webhook topic %s", topic)
}

// dispatch turns a handler panic into an error so that one bad delivery
// cannot take the process down
func dispatch(ctx context.Context, handler ports.WebhookHandler, store *domain.Store, topic domain.WebhookTopic, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling %s: %v", topic, r)
		}
	}()
	return handler.Handle(ctx, store, topic, payload)
}
