package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commerce-sync-core/internal/application"
	"commerce-sync-core/internal/application/webhook_handlers"
	"commerce-sync-core/internal/config"
	"commerce-sync-core/internal/infrastructure/api"
	"commerce-sync-core/internal/infrastructure/cache"
	"commerce-sync-core/internal/infrastructure/metrics"
	"commerce-sync-core/internal/infrastructure/pubsub"
	"commerce-sync-core/internal/infrastructure/repository"
	shopifyinfra "commerce-sync-core/internal/infrastructure/shopify"
	"commerce-sync-core/internal/ports"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	gormlogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Relational storage
	dbLogLevel := gormlogger.Silent
	if cfg.DatabaseLogging {
		dbLogLevel = gormlogger.Info
	}
	database, err := repository.OpenDatabase(cfg.DatabaseURL, dbLogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate database")
	}

	storeRepo := repository.NewGormStoreRepository(database.DB)
	recordRepo := repository.NewGormRecordRepository(database.DB)
	runRepo := repository.NewGormSyncRunRepository(database.DB)

	routerCfg := api.RouterConfig{
		DefaultTenantID: cfg.DefaultTenantID,
		SwaggerFile:     "./docs/swagger.json",
		RequestLogging:  true,
		Logger:          logger,
	}

	// Optional webhook delivery de-duplication
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		routerCfg.Deduplicator = cache.NewRedisWebhookDeduplicator(redisClient, cfg.WebhookDedupeTTL)
		logger.Info().Msg("Webhook de-duplication enabled")
	}

	// Optional webhook audit log
	var webhookLog ports.WebhookLog
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer mongoClient.Disconnect(context.Background())

		mongoLog := repository.NewMongoWebhookLog(mongoClient.Database(cfg.MongoDatabase))
		if err := mongoLog.EnsureIndexes(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to create MongoDB indexes")
		}
		webhookLog = mongoLog
		routerCfg.WebhookLog = mongoLog
		logger.Info().Str("database", cfg.MongoDatabase).Msg("Webhook audit log enabled")
	}

	syncMetrics := metrics.NewSyncMetrics()
	events := pubsub.NewSyncPubSub(logger)
	clients := shopifyinfra.NewClientFactory(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, cfg.ShopifyRequestTimeout, logger)

	// Initialize application services
	syncService := application.NewSyncService(
		storeRepo,
		recordRepo,
		runRepo,
		clients,
		events,
		syncMetrics,
		cfg.SyncPageSize,
		logger,
	)
	recovered, err := syncService.RecoverInterrupted(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to recover interrupted sync runs")
	}
	if recovered > 0 {
		logger.Warn().Int("runs", recovered).Msg("Recovered sync runs interrupted by a restart")
	}

	storeService := application.NewStoreService(storeRepo, clients, syncService, cfg.WebhookCallbackURL, logger)

	// Initialize webhook ingestor and register handlers
	ingestor := application.NewWebhookIngestor(storeRepo, webhookLog, events, syncMetrics, logger)
	ingestor.RegisterHandler(webhook_handlers.NewOrderHandler(recordRepo, logger))
	ingestor.RegisterHandler(webhook_handlers.NewCustomerHandler(recordRepo, logger))
	ingestor.RegisterHandler(webhook_handlers.NewProductHandler(recordRepo, logger))
	ingestor.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(storeRepo, syncService, logger))
	if err := ingestor.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid webhook handler registration")
	}

	scheduler := application.NewSyncScheduler(storeRepo, syncService, cfg.SyncSchedulerInterval, logger)
	go scheduler.Run(ctx)

	routerCfg.Stores = storeService
	routerCfg.Syncs = syncService
	routerCfg.Webhooks = ingestor
	routerCfg.Events = events
	routerCfg.Verifier = shopifyinfra.NewWebhookVerifier(cfg.ShopifyWebhookSecret)
	routerCfg.Metrics = syncMetrics.Handler()

	// Request contexts derive from ctx so event streams end on shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := syncService.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Sync runs did not finish before shutdown")
	}

	logger.Info().Msg("Server exited")
}
