package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Abhay-hack/Asset-Pulse/internal/api"
	"github.com/Abhay-hack/Asset-Pulse/internal/cache"
	"github.com/Abhay-hack/Asset-Pulse/internal/database"
	"github.com/Abhay-hack/Asset-Pulse/internal/external"
	"github.com/Abhay-hack/Asset-Pulse/internal/messaging"
	"github.com/Abhay-hack/Asset-Pulse/internal/services"
	"github.com/Abhay-hack/Asset-Pulse/pkg/config"
	"github.com/sirupsen/logrus"
)

// App represents the main application
type App struct {
	cfg    *config.Config
	logger *logrus.Logger
	ctx    context.Context
	cancel context.CancelFunc

	// Core components
	mysqlDB    *database.MySQLClient
	priceCache cache.PriceCache
	redisCache *cache.RedisCache
	natsClient *messaging.NATSClient

	// Services
	classifier *services.AssetClassifier
	budget     *services.RateBudget
	refresher  *services.Refresher
	apiServer  *api.Server
}

// New creates a new application instance
func New(cfg *config.Config, logger *logrus.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Initialize initializes all application components
func (a *App) Initialize() error {
	if err := a.initializeDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := a.initializeCache(); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	if err := a.initializeMessaging(); err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	a.initializeRefresher()
	a.initializeAPIServer()

	return nil
}

func (a *App) initializeDatabase() error {
	mysqlDB, err := database.NewMySQLClient(&a.cfg.MySQL, a.logger)
	if err != nil {
		return err
	}
	a.mysqlDB = mysqlDB

	a.logger.Info("Database connection established")
	return nil
}

func (a *App) initializeCache() error {
	if a.cfg.Refresh.CacheBackend == "redis" {
		redisCache, err := cache.NewRedisCache(&a.cfg.Redis, a.cfg.Refresh.CacheTTL, a.logger)
		if err != nil {
			return err
		}
		a.redisCache = redisCache
		a.priceCache = redisCache
		a.logger.Info("Redis price cache initialized")
		return nil
	}

	a.priceCache = cache.NewMemoryCache(a.cfg.Refresh.CacheTTL)
	a.logger.Info("In-memory price cache initialized")
	return nil
}

func (a *App) initializeMessaging() error {
	if !a.cfg.NATS.Enabled {
		return nil
	}

	natsClient, err := messaging.NewNATSClient(&a.cfg.NATS, a.logger)
	if err != nil {
		return err
	}
	a.natsClient = natsClient

	a.logger.Info("NATS connection established")
	return nil
}

func (a *App) initializeRefresher() {
	a.classifier = services.NewAssetClassifier()
	a.budget = services.NewRateBudget(a.cfg.Refresh.DailyQuota, a.logger)

	opts := services.RefresherOptions{
		Classifier: a.classifier,
		Budget:     a.budget,
		Cache:      a.priceCache,
		Pacer:      services.NewPacer(a.cfg.Refresh.PacingInterval),

		Crypto:   external.NewCoinGeckoClient(&a.cfg.Providers, a.logger),
		Primary:  external.NewAlphaVantageClient(&a.cfg.Providers, a.logger),
		Fallback: external.NewYahooClient(&a.cfg.Providers, a.logger),
		FX:       external.NewExchangeRateClient(&a.cfg.Providers, a.cfg.Refresh.FallbackFXRate, a.logger),

		Store: a.mysqlDB,

		MaxAttempts: a.cfg.Refresh.MaxAttempts,
		BackoffBase: a.cfg.Refresh.BackoffBase,
	}
	if a.natsClient != nil {
		opts.Publisher = a.natsClient
	}

	a.refresher = services.NewRefresher(opts, a.logger)
}

func (a *App) initializeAPIServer() {
	a.apiServer = api.NewServer(a.cfg, a.logger, a.mysqlDB, a.refresher)
}

// Refresher exposes the refresh orchestrator, used by the CLI commands.
func (a *App) Refresher() *services.Refresher {
	return a.refresher
}

// Store exposes the asset store, used by the CLI commands.
func (a *App) Store() *database.MySQLClient {
	return a.mysqlDB
}

// Start starts the application
func (a *App) Start() error {
	go func() {
		if err := a.apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server stopped")
			a.cancel()
		}
	}()

	a.logger.Info("Application started")
	return nil
}

// Stop gracefully stops the application
func (a *App) Stop() error {
	a.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.apiServer != nil {
		if err := a.apiServer.Stop(shutdownCtx); err != nil {
			a.logger.WithError(err).Error("Failed to stop HTTP server")
		}
	}

	if a.natsClient != nil {
		a.natsClient.Close()
	}

	if a.redisCache != nil {
		a.redisCache.Close()
	}

	if a.mysqlDB != nil {
		a.mysqlDB.Close()
	}

	a.logger.Info("Application stopped")
	return nil
}
