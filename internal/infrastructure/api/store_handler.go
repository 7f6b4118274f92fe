package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"commerce-sync-core/internal/application"
	"commerce-sync-core/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	defaultDeliveryLimit = 50
	maxDeliveryLimit     = 500
)

// WebhookEventLister reads the audit trail of received webhook deliveries
type WebhookEventLister interface {
	ListByStore(ctx context.Context, tenantID string, storeID string, limit int64) ([]*domain.WebhookEvent, error)
}

// StoreHandler serves store connection and webhook setup endpoints
type StoreHandler struct {
	stores     *application.StoreService
	deliveries WebhookEventLister
	logger     zerolog.Logger
}

// NewStoreHandler creates a new store handler. deliveries may be nil when
// no webhook audit log is configured.
func NewStoreHandler(stores *application.StoreService, deliveries WebhookEventLister, logger zerolog.Logger) *StoreHandler {
	return &StoreHandler{
		stores:     stores,
		deliveries: deliveries,
		logger:     logger,
	}
}

// Connect handles POST /api/stores
func (h *StoreHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var input application.ConnectInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	store, err := h.stores.Connect(r.Context(), tenantID(r), input)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusCreated, store)
}

// List handles GET /api/stores
func (h *StoreHandler) List(w http.ResponseWriter, r *http.Request) {
	stores, err := h.stores.List(r.Context(), tenantID(r))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, stores)
}

// Get handles GET /api/stores/{storeID}
func (h *StoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	store, err := h.stores.Get(r.Context(), tenantID(r), chi.URLParam(r, "storeID"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, store)
}

// UpdateSettings handles PATCH /api/stores/{storeID}
func (h *StoreHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var input application.UpdateSettingsInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	store, err := h.stores.UpdateSettings(r.Context(), tenantID(r), chi.URLParam(r, "storeID"), input)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, store)
}

// Disconnect handles DELETE /api/stores/{storeID}
func (h *StoreHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	store, err := h.stores.Disconnect(r.Context(), tenantID(r), chi.URLParam(r, "storeID"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, store)
}

// TestConnection handles POST /api/stores/{storeID}/test
func (h *StoreHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	result, err := h.stores.TestConnection(r.Context(), tenantID(r), chi.URLParam(r, "storeID"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, result)
}

// SetupWebhooks handles POST /api/stores/{storeID}/webhooks
func (h *StoreHandler) SetupWebhooks(w http.ResponseWriter, r *http.Request) {
	result, err := h.stores.SetupWebhooks(r.Context(), tenantID(r), chi.URLParam(r, "storeID"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, result)
}

// WebhookStatus handles GET /api/stores/{storeID}/webhooks
func (h *StoreHandler) WebhookStatus(w http.ResponseWriter, r *http.Request) {
	webhooks, err := h.stores.WebhookStatus(r.Context(), tenantID(r), chi.URLParam(r, "storeID"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, webhooks)
}

// WebhookDeliveries handles GET /api/stores/{storeID}/webhooks/deliveries?limit=n
func (h *StoreHandler) WebhookDeliveries(w http.ResponseWriter, r *http.Request) {
	if h.deliveries == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "webhook audit log is not configured"})
		return
	}

	limit := defaultDeliveryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxDeliveryLimit {
			writeError(w, r, domain.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", maxDeliveryLimit)), h.logger)
			return
		}
		limit = parsed
	}

	store, err := h.stores.Get(r.Context(), tenantID(r), chi.URLParam(r, "storeID"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	events, err := h.deliveries.ListByStore(r.Context(), store.TenantID, store.ID, int64(limit))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, events)
}
