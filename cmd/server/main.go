package main

/*****************************************************************************
 * Go 1.21
 *
 * main.go - Main entry point for the dog walking tracking service
 *           that initializes and runs the real-time location tracking server
 *           with MQTT integration, WebSocket support, and TimescaleDB storage.
 *
 * This file is responsible for:
 *   1. Initializing structured logging (zap).
 *   2. Loading and validating all service configuration (LoadConfig).
 *   3. Setting up Prometheus metrics collection.
 *   4. Creating and configuring the MQTT client and TimescaleDB pool.
 *   5. Spawning the TrackingService and its dependencies.
 *   6. Building an HTTP server with Gin, securing it with middlewares, rate limiting,
 *      health checks, and error recovery.
 *   7. Managing graceful shutdown on system signals.
 *****************************************************************************/

import (
	// Standard library imports
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	// Internal imports (local packages)
	"github.com/dogwalking/mobility-core/internal/config"
	"github.com/dogwalking/mobility-core/internal/handlers"
	"github.com/dogwalking/mobility-core/internal/repository"
	"github.com/dogwalking/mobility-core/internal/services"
	"github.com/dogwalking/mobility-core/internal/utils"

	// External imports with version annotations:
	// gin v1.9.1 - HTTP web framework
	"github.com/gin-gonic/gin"

	// pgx/v5 - PostgreSQL/TimescaleDB driver
	"github.com/jackc/pgx/v5/pgxpool"

	// prometheus v1.16.0 - Prometheus metrics
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// zap v1.25.0 - High-performance structured logging
	"go.uber.org/zap"

	// ratelimit v0.3.0 - Rate limiting
	"golang.org/x/time/rate"
)

/*****************************************************************************
 * Global constants for default settings
 *****************************************************************************/

const (
	// defaultPort is the port on which to run the HTTP server if not overridden.
	defaultPort = "8080"

	// defaultGracefulTimeout is the timeout used during graceful shutdown of the server.
	defaultGracefulTimeout = 30 * time.Second

	// defaultRateLimit is the default rate limit expressed as "requests per minute".
	defaultRateLimit = "100/minute"

	// defaultSchema is the Postgres schema the repository's tables live under.
	defaultSchema = "tracking"
)

/*****************************************************************************
 * newTimescalePool - Builds a pgxpool.Pool and repository from DBConfig.
 *****************************************************************************/

func newTimescalePool(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, *repository.TimescaleRepository, error) {
	dbCfg := cfg.Database
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s pool_max_conns=%d connect_timeout=%d",
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.Username,
		dbCfg.Password,
		dbCfg.Database,
		dbCfg.MaxConnections,
		int(dbCfg.ConnectionTimeout.Seconds()),
	)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse DB connection config: %w", err)
	}
	poolCfg.MaxConnIdleTime = dbCfg.MaxConnectionLifetime
	poolCfg.MaxConns = int32(dbCfg.MaxConnections)
	poolCfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to timescaleDB: %w", err)
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("timescaleDB ping check failed: %w", pingErr)
	}

	logger.Info("Connected to TimescaleDB successfully",
		zap.String("host", dbCfg.Host),
		zap.Int("port", dbCfg.Port),
		zap.String("database", dbCfg.Database),
	)

	repoCfg := repository.RepositoryConfig{
		ChunkInterval:      24 * time.Hour,
		CompressionEnabled: true,
		RetentionEnabled:   true,
		RetentionPeriod:    90 * 24 * time.Hour,
	}
	repo, err := repository.NewTimescaleRepository(ctx, pool, defaultSchema, repoCfg)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize timescale repository: %w", err)
	}
	return pool, repo, nil
}

/*****************************************************************************
 * setupMetrics - Configures and registers Prometheus metrics for the service.
 *****************************************************************************/

func setupMetrics() (*prometheus.Registry, *prometheus.CounterVec) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())

	locationMetrics := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_handler_requests_total",
			Help: "Count of location handler requests by outcome.",
		},
		[]string{"outcome"},
	)
	registry.MustRegister(locationMetrics)

	return registry, locationMetrics
}

/*****************************************************************************
 * setupRouter - Configures the Gin router with security, rate limiting, and routes.
 *****************************************************************************/

func setupRouter(locationHandler *handlers.LocationHandler, wsHandler *handlers.WebSocketHandler, registry *prometheus.Registry, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	rateLimitMiddleware, err := buildRateLimitMiddleware(defaultRateLimit, logger)
	if err != nil {
		logger.Warn("Failed to parse defaultRateLimit, skipping rate limit middleware", zap.Error(err))
	} else {
		router.Use(rateLimitMiddleware)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.GET("/ws", locationHandler.HandleLocationStream)
	router.GET("/ws/connect", func(c *gin.Context) {
		if err := wsHandler.HandleConnection(c.Writer, c.Request); err != nil {
			logger.Warn("WebSocket connection failed", zap.Error(err))
		}
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	router.POST("/location", locationHandler.HandleLocationUpdate)
	router.GET("/location/history", locationHandler.HandleGetLocationHistory)

	return router
}

/*****************************************************************************
 * buildRateLimitMiddleware - Constructs a Gin middleware for rate-limiting using time/rate.
 *****************************************************************************/

func buildRateLimitMiddleware(limitSpec string, logger *zap.Logger) (gin.HandlerFunc, error) {
	parts := []rune(limitSpec)
	var numericPart, unitPart string
	reached := false
	for _, r := range parts {
		if r == '/' {
			reached = true
			continue
		}
		if !reached {
			numericPart += string(r)
		} else {
			unitPart += string(r)
		}
	}
	num, err := strconv.Atoi(numericPart)
	if err != nil {
		return nil, fmt.Errorf("invalid numeric part in rate limit: %w", err)
	}

	var duration time.Duration
	switch unitPart {
	case "s", "sec", "second":
		duration = time.Second
	case "m", "min", "minute":
		duration = time.Minute
	case "h", "hour":
		duration = time.Hour
	default:
		return nil, fmt.Errorf("unsupported rate limit unit: %s", unitPart)
	}

	every := duration / time.Duration(num)
	limiter := rate.NewLimiter(rate.Every(every), num)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			logger.Warn("Rate limit exceeded",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}, nil
}

/*****************************************************************************
 * gracefulShutdown - Manages a graceful server shutdown with a specified timeout.
 *****************************************************************************/

func gracefulShutdown(server *http.Server, wsHandler *handlers.WebSocketHandler, pool interface{ Close() }, logger *zap.Logger) {
	logger.Info("Initiating graceful shutdown...")
	ctx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil && err != http.ErrServerClosed {
		logger.Error("HTTP server shutdown encountered an error", zap.Error(err))
	}

	if err := wsHandler.Shutdown(); err != nil {
		logger.Warn("WebSocket handler shutdown encountered an error", zap.Error(err))
	}

	pool.Close()

	logger.Sync()
	logger.Info("Graceful shutdown completed")
}

/*****************************************************************************
 * main - Entry point function that initializes and runs the tracking service.
 *****************************************************************************/

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting Tracking Service...")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	registry, locationMetrics := setupMetrics()

	mqttClient := utils.NewMQTTClient(cfg)
	if err := mqttClient.Connect(); err != nil {
		logger.Fatal("Failed to connect MQTT client", zap.Error(err))
	}

	ctx := context.Background()
	pool, dbRepo, err := newTimescalePool(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize TimescaleDB connection", zap.Error(err))
	}

	trackingService := services.NewTrackingService(mqttClient, dbRepo, nil)

	locationHandler := handlers.NewLocationHandler(trackingService, logger, locationMetrics)
	wsCtx, wsCancel := context.WithCancel(context.Background())
	defer wsCancel()
	wsHandler := handlers.NewWebSocketHandler(trackingService, mqttClient, wsCtx)

	router := setupRouter(locationHandler, wsHandler, registry, logger)

	port := defaultPort
	if envPort := os.Getenv("TRACKING_SERVICE_PORT"); envPort != "" {
		port = envPort
	}
	addr := fmt.Sprintf(":%s", port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("HTTP server listening", zap.String("address", addr))
		if srvErr := server.ListenAndServe(); srvErr != nil && srvErr != http.ErrServerClosed {
			logger.Fatal("HTTP server listen error", zap.Error(srvErr))
		}
	}()

	sig := <-quit
	logger.Info("Caught signal, shutting down", zap.String("signal", sig.String()))
	mqttClient.Disconnect()
	gracefulShutdown(server, wsHandler, pool, logger)
}
