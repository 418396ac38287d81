package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Jmsandi/newmedtech1-sub002/internal/config"
	"github.com/Jmsandi/newmedtech1-sub002/internal/domain/maternallab"
	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/auth"
	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/db"
	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/docstore"
	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/lock"
	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/messaging"
	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/metrics"
	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/middleware"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// backend holds the connections opened for one process and the health
// checks that probe them.
type backend struct {
	store     docstore.Store
	locker    maternallab.ProfileLocker
	publisher maternallab.AlertPublisher
	checks    map[string]db.Check
	closers   []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects the document store selected by STORE_DRIVER, plus
// redis and rabbitmq when they are configured.
func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backend, error) {
	b := &backend{
		locker:    lock.NewLocalLocker(),
		publisher: messaging.NoopPublisher{},
		checks:    map[string]db.Check{},
	}

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		b.store = docstore.NewPostgresStore(pool)
		b.checks["postgres"] = db.PoolCheck(pool)
		logger.Info().Msg("connected to postgres")

	case config.DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect to mongo: %w", err)
		}
		b.closers = append(b.closers, func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		})
		if err := client.Ping(ctx, nil); err != nil {
			b.close()
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
		b.store = docstore.NewMongoStore(client.Database(cfg.MongoDatabase))
		b.checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongo")

	default:
		b.store = docstore.NewMemoryStore()
		logger.Warn().Msg("using in-memory document store; data is lost on restart")
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		b.closers = append(b.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			b.close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		b.locker = lock.NewRedisLocker(client, cfg.ProfileLockTTL(), logger)
		b.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		logger.Info().Msg("profile rebuilds use redis locks")
	}

	if cfg.AMQPURL != "" {
		pub, conn, err := messaging.Dial(cfg.AMQPURL, cfg.AlertQueue, logger)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, func() {
			_ = pub.Close()
			_ = conn.Close()
		})
		b.publisher = pub
		b.checks["rabbitmq"] = func(context.Context) error {
			if conn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
		logger.Info().Str("queue", cfg.AlertQueue).Msg("alert events published to rabbitmq")
	}

	return b, nil
}

func newService(b *backend, logger zerolog.Logger) *maternallab.Service {
	return maternallab.NewService(
		maternallab.DefaultCatalog(),
		maternallab.NewLabTestRepoStore(b.store),
		maternallab.NewRiskProfileRepoStore(b.store),
		maternallab.NewAlertRepoStore(b.store),
		maternallab.NewPatientDirectoryStore(b.store),
		b.locker,
		b.publisher,
		logger,
	)
}

// newServer builds the echo instance with the global middleware chain and
// every route mounted.
func newServer(cfg *config.Config, svc *maternallab.Service, checks map[string]db.Check, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(metrics.Middleware())

	e.GET("/health", db.HealthHandler(checks))
	e.GET("/metrics", metrics.Handler())

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.JWTSigningKey),
	}
	authMW := auth.JWTMiddleware(jwtCfg)
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware(jwtCfg)
	}

	apiV1 := e.Group("/api/v1", authMW)
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	maternallab.NewHandler(svc, logger).RegisterRoutes(apiV1)
	return e
}

func runServer(patientsFile string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open backend")
		return err
	}
	defer b.close()

	if patientsFile != "" {
		if cfg.StoreDriver != config.DriverMemory {
			return fmt.Errorf("--patients-file is only supported with STORE_DRIVER=memory; use patients import instead")
		}
		n, err := importPatients(ctx, maternallab.NewPatientDirectoryStore(b.store), patientsFile)
		if err != nil {
			return err
		}
		logger.Info().Int("count", n).Str("file", patientsFile).Msg("loaded maternal patients")
	}

	e := newServer(cfg, newService(b, logger), b.checks, logger)

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Msg("starting maternal lab server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
