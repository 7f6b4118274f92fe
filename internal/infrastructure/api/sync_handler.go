package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"commerce-sync-core/internal/application"
	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/infrastructure/pubsub"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

// keepAliveInterval is how often an idle event stream sends a comment line
var keepAliveInterval = 25 * time.Second

// SyncHandler serves sync triggering, run history and the live event stream
type SyncHandler struct {
	syncs  *application.SyncService
	events *pubsub.SyncPubSub
	logger zerolog.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncs *application.SyncService, events *pubsub.SyncPubSub, logger zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		syncs:  syncs,
		events: events,
		logger: logger,
	}
}

type triggerSyncRequest struct {
	Type string `json:"type"`
}

// Trigger starts a run in the background and returns it as accepted.
// An empty body starts an incremental run.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req triggerSyncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	syncType, err := domain.ParseSyncType(req.Type)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	run, err := h.syncs.TriggerSync(r.Context(), tenantID(r), chi.URLParam(r, "storeID"), syncType)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusAccepted, run)
}

// Cancel handles POST /api/stores/{storeID}/sync/cancel
func (h *SyncHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.syncs.CancelSync(tenantID(r), chi.URLParam(r, "storeID")); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

// ListRuns handles GET /api/stores/{storeID}/sync/runs?limit=n
func (h *SyncHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxRunLimit {
			writeError(w, r, domain.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", maxRunLimit)), h.logger)
			return
		}
		limit = parsed
	}

	runs, err := h.syncs.ListRuns(r.Context(), tenantID(r), chi.URLParam(r, "storeID"), limit)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, runs)
}

// GetRun handles GET /api/sync/runs/{runID}
func (h *SyncHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.syncs.GetRun(r.Context(), tenantID(r), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, run)
}

// Status handles GET /api/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.syncs.GetSyncStatus(r.Context(), tenantID(r))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, status)
}

// Events streams the tenant's sync activity as Server-Sent Events until the
// client goes away. store_id and kind query parameters narrow the stream.
func (h *SyncHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, fmt.Errorf("streaming is not supported by the response writer"), h.logger)
		return
	}

	filter := pubsub.SyncEventFilter{
		TenantID: tenantID(r),
		StoreID:  r.URL.Query().Get("store_id"),
	}
	for _, kind := range r.URL.Query()["kind"] {
		switch domain.SyncEventKind(kind) {
		case domain.SyncEventRun, domain.SyncEventWebhook:
			filter.Kinds = append(filter.Kinds, domain.SyncEventKind(kind))
		default:
			writeError(w, r, domain.NewValidationError("kind", fmt.Sprintf("unknown event kind %q", kind)), h.logger)
			return
		}
	}

	ctx := r.Context()
	subscription := h.events.Subscribe(ctx, filter)
	defer h.events.Unsubscribe(subscription.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	h.logger.Debug().
		Str("tenantId", filter.TenantID).
		Str("channelId", subscription.ID).
		Msg("Sync event stream opened")

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-subscription.Done:
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case event, ok := <-subscription.Events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error().Err(err).Msg("Failed to encode sync event")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data)
			flusher.Flush()
		}
	}
}
