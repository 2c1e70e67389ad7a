package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"blipee/sustainability-engine/internal/cache"
	"blipee/sustainability-engine/internal/calculator"
	"blipee/sustainability-engine/internal/catalog"
	"blipee/sustainability-engine/internal/config"
	"blipee/sustainability-engine/internal/export"
	"blipee/sustainability-engine/internal/forecast"
	"blipee/sustainability-engine/internal/metrics"
	"blipee/sustainability-engine/internal/replanning"
	"blipee/sustainability-engine/internal/targets"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err := buildLogger(cfg.Logging.Level)
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	// Connect to database
	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	// The target tables are managed through gorm on the same pool.
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to initialize ORM", zap.Error(err))
	}

	// Shared domain services
	cat := catalog.Load(context.Background(), db, logger)
	if err := cat.Validate(); err != nil {
		logger.Fatal("Metric catalog failed validation", zap.Error(err))
	}

	memory := cache.NewMemory(cfg.Cache.MemoryTTL)
	defer memory.Stop()
	cacheStore := cache.NewStore(db)
	cacheLayer := cache.NewLayer(memory, cacheStore, cfg.Cache, logger)

	recordRepo := metrics.NewRepository(db)
	aggregator := metrics.NewAggregator(recordRepo, cat, logger)

	prophet := forecast.NewProphetClient(cfg.Forecast, logger)
	forecastEngine := forecast.NewEngine(aggregator, prophet, cfg.Forecast, logger)

	targetRepo := targets.NewRepository(gormDB)
	pathways := targets.LoadPathways(context.Background(), db, logger)
	targetService := targets.NewService(targetRepo, pathways, logger)

	calc := calculator.New(aggregator, targetRepo, forecastEngine, cacheLayer, logger)

	optimizer := replanning.NewOptimizerClient(cfg.Replanning, logger)
	replanService := replanning.NewService(targetRepo, recordRepo, cat, optimizer, cacheLayer, cfg.Replanning, logger)

	reportBuilder := export.NewBuilder(aggregator, calc)
	planBuilder := export.NewPlanBuilder(targetRepo)

	// HTTP surface
	metricsHandler := metrics.NewHandler(aggregator, recordRepo, logger)
	cacheHandler := cache.NewHandler(cacheLayer, logger)
	targetsHandler := targets.NewHandler(targetService, logger)
	calculatorHandler := calculator.NewHandler(calc, logger)
	replanHandler := replanning.NewHandler(replanService, logger)
	exportHandler := export.NewHandler(reportBuilder, planBuilder, logger)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := router.Group("/api/v1")
	orgs := api.Group("/organizations/:orgId")
	{
		metricsHandler.RegisterRoutes(orgs)
		cacheHandler.RegisterRoutes(orgs)
		calculatorHandler.RegisterRoutes(orgs)
	}
	targetsHandler.RegisterRoutes(orgs, api)
	replanHandler.RegisterRoutes(api)
	exportHandler.RegisterRoutes(orgs, api)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen: %s\n", zap.Error(err))
		}
	}()

	logger.Info("Engine started", zap.String("addr", cfg.Server.GetServerAddr()))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func buildLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if parsed, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = parsed
	}
	return cfg.Build()
}
