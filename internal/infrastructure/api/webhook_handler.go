package api

import (
	"io"
	"net/http"

	"commerce-sync-core/internal/application"
	"commerce-sync-core/internal/infrastructure/shopify"
	"commerce-sync-core/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Webhook delivery headers set by the platform
const (
	TopicHeader      = "X-Shopify-Topic"
	DeliveryIDHeader = "X-Shopify-Webhook-Id"
	ShopDomainHeader = "X-Shopify-Shop-Domain"
)

// maxWebhookBody bounds the payload read from a single delivery
const maxWebhookBody = 5 << 20

// WebhookHandler receives deliveries from the remote platform
type WebhookHandler struct {
	verifier     *shopify.WebhookVerifier
	deduplicator ports.WebhookDeduplicator
	ingestor     *application.WebhookIngestor
	logger       zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler. deduplicator may be nil,
// in which case every delivery is processed.
func NewWebhookHandler(
	verifier *shopify.WebhookVerifier,
	deduplicator ports.WebhookDeduplicator,
	ingestor *application.WebhookIngestor,
	logger zerolog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:     verifier,
		deduplicator: deduplicator,
		ingestor:     ingestor,
		logger:       logger,
	}
}

// Receive handles POST /webhooks/shopify/{storeID}. Once the signature is
// verified the delivery is always acknowledged, so the platform does not
// retry deliveries that failed on our side.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)

	if err := h.verifier.Verify(r); err != nil {
		h.logger.Warn().
			Err(err).
			Str("storeId", storeID).
			Str("topic", r.Header.Get(TopicHeader)).
			Msg("Rejected webhook with bad signature")
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	topic := r.Header.Get(TopicHeader)
	if topic == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: TopicHeader + " header is required"})
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error().Err(err).Str("storeId", storeID).Msg("Failed to read webhook body")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
		return
	}

	delivery := application.WebhookDelivery{
		StoreID:    storeID,
		Topic:      topic,
		DeliveryID: r.Header.Get(DeliveryIDHeader),
		Shop:       r.Header.Get(ShopDomainHeader),
		Payload:    payload,
		Verified:   true,
	}

	ctx := r.Context()
	if h.deduplicator != nil && delivery.DeliveryID != "" {
		first, err := h.deduplicator.FirstDelivery(ctx, delivery.DeliveryID)
		switch {
		case err != nil:
			// processing twice is safe; losing a delivery is not
			h.logger.Warn().Err(err).Str("deliveryId", delivery.DeliveryID).Msg("Failed to check webhook delivery id")
		case !first:
			h.ingestor.RecordDuplicate(ctx, delivery)
			writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
			return
		}
	}

	h.ingestor.HandleDelivery(ctx, delivery)
	writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
}
