package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"blipee/sustainability-engine/internal/cache"
	"blipee/sustainability-engine/internal/calculator"
	"blipee/sustainability-engine/internal/catalog"
	"blipee/sustainability-engine/internal/config"
	"blipee/sustainability-engine/internal/forecast"
	"blipee/sustainability-engine/internal/metrics"
	"blipee/sustainability-engine/internal/targets"
)

// CacheWorker keeps the computed-result cache fresh. On each scheduled
// run it prunes expired rows and re-computes the standing of the most
// recently active organizations so dashboard reads stay warm.
type CacheWorker struct {
	store      *cache.Store
	calculator *calculator.Calculator
	logger     *zap.Logger
	config     config.WorkerConfig
}

// NewCacheWorker creates a new cache worker.
func NewCacheWorker(store *cache.Store, calc *calculator.Calculator, logger *zap.Logger, cfg config.WorkerConfig) *CacheWorker {
	return &CacheWorker{
		store:      store,
		calculator: calc,
		logger:     logger,
		config:     cfg,
	}
}

// Refresh runs one maintenance cycle.
func (w *CacheWorker) Refresh(ctx context.Context) {
	pruned, err := w.store.DeleteExpired(ctx)
	if err != nil {
		w.logger.Error("Failed to prune expired cache entries", zap.Error(err))
	} else if pruned > 0 {
		w.logger.Info("Pruned expired cache entries", zap.Int64("count", pruned))
	}

	organizations, err := w.store.ActiveOrganizations(ctx, w.config.WarmBatchSize)
	if err != nil {
		w.logger.Error("Failed to list active organizations", zap.Error(err))
		return
	}
	if len(organizations) == 0 {
		return
	}

	w.logger.Info("Warming organization caches", zap.Int("count", len(organizations)))

	// Process with concurrency limit
	sem := make(chan struct{}, w.config.MaxConcurrent)
	for _, organizationID := range organizations {
		sem <- struct{}{}

		go func(organizationID uuid.UUID) {
			defer func() { <-sem }()
			w.warmOrganization(ctx, organizationID)
		}(organizationID)
	}

	// Wait for completion
	for i := 0; i < w.config.MaxConcurrent; i++ {
		sem <- struct{}{}
	}
}

// warmOrganization recomputes the cached figures of every reporting
// domain. Progress pulls baseline, target, actual and projection with
// it, so one call per domain fills the whole ladder.
func (w *CacheWorker) warmOrganization(ctx context.Context, organizationID uuid.UUID) {
	for _, domain := range metrics.AllDomains() {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.calculator.Progress(ctx, organizationID, domain); err != nil {
			// Normal for domains without targets or enough history.
			w.logger.Debug("Skipping domain during warm-up",
				zap.String("organization_id", organizationID.String()),
				zap.String("domain", string(domain)),
				zap.Error(err))
		}
	}
}

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Connect to database
	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to initialize ORM", zap.Error(err))
	}

	cat := catalog.Load(context.Background(), db, logger)

	memory := cache.NewMemory(cfg.Cache.MemoryTTL)
	defer memory.Stop()
	cacheStore := cache.NewStore(db)
	cacheLayer := cache.NewLayer(memory, cacheStore, cfg.Cache, logger)

	recordRepo := metrics.NewRepository(db)
	aggregator := metrics.NewAggregator(recordRepo, cat, logger)

	prophet := forecast.NewProphetClient(cfg.Forecast, logger)
	forecastEngine := forecast.NewEngine(aggregator, prophet, cfg.Forecast, logger)

	targetRepo := targets.NewRepository(gormDB)
	calc := calculator.New(aggregator, targetRepo, forecastEngine, cacheLayer, logger)

	worker := NewCacheWorker(cacheStore, calc, logger, cfg.Worker)

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Worker.RefreshSchedule, func() { worker.Refresh(ctx) }); err != nil {
		logger.Fatal("Invalid refresh schedule",
			zap.String("schedule", cfg.Worker.RefreshSchedule),
			zap.Error(err))
	}

	logger.Info("Cache worker starting",
		zap.String("schedule", cfg.Worker.RefreshSchedule),
		zap.Int("warm_batch_size", cfg.Worker.WarmBatchSize),
		zap.Int("max_concurrent", cfg.Worker.MaxConcurrent))

	worker.Refresh(ctx)
	scheduler.Start()

	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("Cache worker stopped")
}
