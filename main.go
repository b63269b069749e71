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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/compdash/compdash/backend/go-services/handlers"
	"github.com/compdash/compdash/backend/go-services/internal/config"
	"github.com/compdash/compdash/backend/go-services/internal/database"
	"github.com/compdash/compdash/backend/go-services/internal/storage"
	"github.com/compdash/compdash/backend/go-services/internal/whiteboard/handler"
	"github.com/compdash/compdash/backend/go-services/internal/whiteboard/service"
	"github.com/compdash/compdash/backend/go-services/pkg/logger"
	"github.com/compdash/compdash/backend/go-services/pkg/metrics"
	"github.com/compdash/compdash/backend/go-services/pkg/middleware"
)

// runtimeDeps are the connected collaborators the router is built from.
type runtimeDeps struct {
	svc    service.Service
	assets handler.AssetStore
	redis  *redis.Client
	checks map[string]handlers.Check
}

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal, LOG_FORMAT: text|json
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.SetFormat(os.Getenv("LOG_FORMAT"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: backend=%s redis=%v minio=%v", cfg.Store.Backend, cfg.Redis.Host != "", cfg.MinIO.Endpoint != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := connect(ctx, cfg)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer cleanup()

	if cfg.Server.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r := newRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting whiteboard service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// connect opens the configured backends. The returned cleanup closes them.
func connect(ctx context.Context, cfg *config.Config) (runtimeDeps, func(), error) {
	deps := runtimeDeps{checks: map[string]handlers.Check{}}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Store.Backend {
	case config.BackendMongo:
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			return deps, cleanup, err
		}
		closers = append(closers, func() { _ = client.Disconnect(context.Background()) })
		db := client.Database(cfg.MongoDB.Database)
		svc, err := service.NewMongoService(ctx, db, cfg.MongoDB.WhiteboardCollection, cfg.MongoDB.AuditCollection)
		if err != nil {
			cleanup()
			return deps, func() {}, fmt.Errorf("mongo whiteboard store: %w", err)
		}
		deps.svc = svc
		deps.checks["store"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	case config.BackendPostgres:
		pool, err := database.ConnectPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			return deps, cleanup, err
		}
		closers = append(closers, pool.Close)
		if cfg.Postgres.MigrateOnStart {
			if err := database.Migrate(ctx, pool); err != nil {
				cleanup()
				return deps, func() {}, err
			}
		}
		deps.svc = service.NewPostgresService(pool)
		deps.checks["store"] = pool.Ping
	default:
		logger.Warnf("using in-memory whiteboard store; data is lost on restart")
		deps.svc = service.NewMemoryService()
		deps.checks["store"] = func(context.Context) error { return nil }
	}

	if addr := cfg.Redis.Addr(); addr != "" {
		deps.redis = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		closers = append(closers, func() { _ = deps.redis.Close() })
		if err := deps.redis.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
		}
		if cfg.RateLimit.UseRedis {
			deps.checks["redis"] = func(ctx context.Context) error { return deps.redis.Ping(ctx).Err() }
		}
	}

	if cfg.MinIO.Endpoint != "" {
		store, err := storage.NewMinIOStorage(&storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Bucket:    cfg.MinIO.Bucket,
		})
		if err != nil {
			logger.Warnf("asset uploads disabled: %v", err)
		} else {
			deps.assets = store
			deps.checks["assets"] = store.Ping
		}
	}
	return deps, cleanup, nil
}

func newRouter(cfg *config.Config, deps runtimeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), cors.New(corsConfig(cfg.CORS.AllowedOrigins)))

	handlers.RegisterHealth(r, deps.checks)
	handlers.RegisterSwagger(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && deps.redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			api.Use(middleware.RedisRateLimitMiddleware(deps.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			api.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}
	handler.RegisterWhiteboardRoutes(api, deps.svc)
	if deps.assets != nil {
		handler.RegisterAssetRoutes(api, deps.assets, handler.AssetOptions{
			MaxBytes:   cfg.MinIO.MaxUploadBytes,
			PresignTTL: cfg.MinIO.PresignTTL,
		})
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "If-None-Match", "X-Actor", "X-User-Name", middleware.RequestIDHeader},
		ExposeHeaders: []string{"ETag", "Retry-After", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
