package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/config"
	"github.com/kailas-cloud/newsdex/internal/db"
	dbRedis "github.com/kailas-cloud/newsdex/internal/db/redis"
	"github.com/kailas-cloud/newsdex/internal/db/resilient"
	logpkg "github.com/kailas-cloud/newsdex/internal/logger"
	"github.com/kailas-cloud/newsdex/internal/metrics"
	accountrepo "github.com/kailas-cloud/newsdex/internal/repository/account"
	itemrepo "github.com/kailas-cloud/newsdex/internal/repository/item"
	sectionfilterrepo "github.com/kailas-cloud/newsdex/internal/repository/sectionfilter"
	chiTransport "github.com/kailas-cloud/newsdex/internal/transport/chi"
	healthuc "github.com/kailas-cloud/newsdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/newsdex/internal/usecase/search"
	sectionfilteruc "github.com/kailas-cloud/newsdex/internal/usecase/sectionfilter"
	"github.com/kailas-cloud/newsdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting newsdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("index", cfg.Index.Name),
	)

	redisStore, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer redisStore.Close()

	var store db.Store = redisStore
	if cfg.Resilience.Enabled {
		store = resilient.Wrap(redisStore, resilienceConfig(cfg.Resilience), logger)
		logger.Info("Index retries and circuit breaker enabled",
			zap.Uint32("failure_threshold", cfg.Resilience.FailureThreshold),
		)
	}

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	fields, err := indexFields(cfg.Index.Fields)
	if err != nil {
		logger.Fatal("Invalid index fields", zap.Error(err))
	}

	// Create repositories (domain-native, no adapters)
	itemRepo, err := itemrepo.New(store, cfg.Index.Name, cfg.Storage.KeyPrefix+"item:", fields)
	if err != nil {
		logger.Fatal("Failed to build items index", zap.Error(err))
	}
	accountRepo := accountrepo.New(store, cfg.Storage.KeyPrefix)
	sectionFilterRepo := sectionfilterrepo.New(store, cfg.Storage.KeyPrefix)

	if cfg.Index.Create {
		for name, ensure := range map[string]func(context.Context) error{
			"items":           itemRepo.EnsureIndex,
			"accounts":        accountRepo.EnsureIndex,
			"section_filters": sectionFilterRepo.EnsureIndex,
		} {
			if err := ensure(ctx); err != nil {
				logger.Fatal("Failed to create index", zap.String("index", name), zap.Error(err))
			}
		}
		logger.Info("Indexes ready")
	}

	// Create use case services
	sectionFilters := sectionfilteruc.New(sectionFilterRepo, cfg.Search.QueryString.AnalyzeWildcard)
	searchSvc := searchuc.New(itemRepo, accountRepo, sectionFilters, cfg.Search.Settings())
	healthSvc := healthuc.New(store, itemRepo)

	// Create chi server
	server := chiTransport.NewServer(searchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.Tokens))
	r.Use(metrics.Middleware())
	r.NotFound(chiTransport.NotFound)
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func indexFields(cfgs []config.FieldConfig) ([]itemrepo.Field, error) {
	fields := make([]itemrepo.Field, 0, len(cfgs))
	for _, fc := range cfgs {
		t, err := db.ParseIndexFieldType(fc.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fc.Name, err)
		}
		fields = append(fields, itemrepo.Field{
			Name:     fc.Name,
			Path:     fc.Path,
			Type:     t,
			Sortable: fc.Sortable,
		})
	}
	return fields, nil
}

func resilienceConfig(c config.ResilienceConfig) resilient.Config {
	return resilient.Config{
		InitialInterval:  time.Duration(c.InitialIntervalMs) * time.Millisecond,
		MaxElapsed:       time.Duration(c.MaxElapsedMs) * time.Millisecond,
		MaxRetries:       c.MaxRetries,
		FailureThreshold: c.FailureThreshold,
		OpenTimeout:      time.Duration(c.OpenTimeoutSec) * time.Second,
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// One line per request.
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
