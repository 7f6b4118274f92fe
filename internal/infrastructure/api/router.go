package api

import (
	"encoding/json"
	"net/http"

	"commerce-sync-core/internal/application"
	"commerce-sync-core/internal/infrastructure/pubsub"
	"commerce-sync-core/internal/infrastructure/shopify"
	"commerce-sync-core/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	tenantmiddleware "commerce-sync-core/internal/infrastructure/middleware"
)

// RouterConfig holds what the HTTP surface is served from.
// Deduplicator, WebhookLog, Metrics and SwaggerFile are optional.
type RouterConfig struct {
	Stores          *application.StoreService
	Syncs           *application.SyncService
	Webhooks        *application.WebhookIngestor
	Events          *pubsub.SyncPubSub
	Verifier        *shopify.WebhookVerifier
	Deduplicator    ports.WebhookDeduplicator
	WebhookLog      WebhookEventLister
	Metrics         http.Handler
	SwaggerFile     string
	DefaultTenantID string
	RequestLogging  bool
	Logger          zerolog.Logger
}

// NewRouter builds the chi router with every route of the service
func NewRouter(cfg RouterConfig) http.Handler {
	storeHandler := NewStoreHandler(cfg.Stores, cfg.WebhookLog, cfg.Logger)
	syncHandler := NewSyncHandler(cfg.Syncs, cfg.Events, cfg.Logger)
	webhookHandler := NewWebhookHandler(cfg.Verifier, cfg.Deduplicator, cfg.Webhooks, cfg.Logger)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.RequestLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", tenantmiddleware.TenantHeader},
		MaxAge:         300,
	}))
	r.Use(tenantmiddleware.TenantMiddleware(cfg.DefaultTenantID, cfg.Logger))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	if cfg.SwaggerFile != "" {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
		r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			http.ServeFile(w, r, cfg.SwaggerFile)
		})
	}

	// Webhook endpoint: the store id in the path resolves the tenant
	r.Post("/webhooks/shopify/{storeID}", webhookHandler.Receive)

	// Tenant API
	r.Route("/api", func(r chi.Router) {
		r.Post("/stores", storeHandler.Connect)
		r.Get("/stores", storeHandler.List)
		r.Get("/stores/{storeID}", storeHandler.Get)
		r.Patch("/stores/{storeID}", storeHandler.UpdateSettings)
		r.Delete("/stores/{storeID}", storeHandler.Disconnect)
		r.Post("/stores/{storeID}/test", storeHandler.TestConnection)
		r.Post("/stores/{storeID}/webhooks", storeHandler.SetupWebhooks)
		r.Get("/stores/{storeID}/webhooks", storeHandler.WebhookStatus)
		r.Get("/stores/{storeID}/webhooks/deliveries", storeHandler.WebhookDeliveries)

		r.Post("/stores/{storeID}/sync", syncHandler.Trigger)
		r.Post("/stores/{storeID}/sync/cancel", syncHandler.Cancel)
		r.Get("/stores/{storeID}/sync/runs", syncHandler.ListRuns)
		r.Get("/sync/runs/{runID}", syncHandler.GetRun)
		r.Get("/sync/status", syncHandler.Status)
		r.Get("/sync/events", syncHandler.Events)
	})

	return r
}
