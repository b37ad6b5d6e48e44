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

	"go.uber.org/zap"

	"github.com/kailas-cloud/rescuedex/internal/app"
	"github.com/kailas-cloud/rescuedex/internal/config"
	logpkg "github.com/kailas-cloud/rescuedex/internal/logger"
	"github.com/kailas-cloud/rescuedex/internal/metrics"
	chiTransport "github.com/kailas-cloud/rescuedex/internal/transport/chi"
	"github.com/kailas-cloud/rescuedex/internal/usecase/classify"
	healthuc "github.com/kailas-cloud/rescuedex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/rescuedex/internal/usecase/search"
	"github.com/kailas-cloud/rescuedex/internal/version"
)

func main() {
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

	logger.Info("Starting rescuedex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("catalog_driver", cfg.Catalog.Driver),
		zap.String("classifier_driver", cfg.Classifier.Driver),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	ctx := context.Background()
	res, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open catalog", zap.Error(err))
	}
	defer res.Close()

	embedders := app.BuildEmbedders(cfg.Embedding, res.Store, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Bool("cache", cfg.Embedding.Cache && res.Store != nil),
	)

	vocab := classify.NewVocabularyCache(res.Catalog)
	if v, err := vocab.Get(ctx); err != nil {
		// Not fatal: the cache retries on the next request.
		logger.Warn("Initial vocabulary load failed", zap.Error(err))
	} else {
		logger.Info("Vocabulary loaded",
			zap.Int("attributes", len(v.Attributes())),
			zap.Int("locations", len(v.Locations())),
		)
	}

	searchSvc := searchuc.New(
		res.Catalog, embedders.Query, app.BuildClassifier(cfg.Classifier, logger), vocab,
		searchuc.Config{
			Timeout: time.Duration(cfg.Search.TimeoutSec) * time.Second,
			Weights: searchuc.Weights{
				Keyword:  cfg.Search.KeywordWeight,
				Semantic: cfg.Search.SemanticWeight,
			},
			KeywordSaturation: cfg.Search.KeywordSaturation,
		},
		logger,
	)
	healthSvc := healthuc.New(res.Catalog, embedders.Query)

	server := chiTransport.NewServer(searchSvc, healthSvc, logger).
		WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxLimit)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
