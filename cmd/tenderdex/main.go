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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/clearbid/tenderdex/internal/assembler"
	"github.com/clearbid/tenderdex/internal/config"
	dbRedis "github.com/clearbid/tenderdex/internal/db/redis"
	"github.com/clearbid/tenderdex/internal/domain"
	logpkg "github.com/clearbid/tenderdex/internal/logger"
	"github.com/clearbid/tenderdex/internal/metrics"
	"github.com/clearbid/tenderdex/internal/parser"
	"github.com/clearbid/tenderdex/internal/repository/blob"
	"github.com/clearbid/tenderdex/internal/repository/embcache"
	"github.com/clearbid/tenderdex/internal/repository/indexstore"
	chiTransport "github.com/clearbid/tenderdex/internal/transport/chi"
	"github.com/clearbid/tenderdex/internal/transport/docparse"
	"github.com/clearbid/tenderdex/internal/transport/hashemb"
	openaiTransport "github.com/clearbid/tenderdex/internal/transport/openai"
	extractionuc "github.com/clearbid/tenderdex/internal/usecase/extraction"
	healthuc "github.com/clearbid/tenderdex/internal/usecase/health"
	ingestuc "github.com/clearbid/tenderdex/internal/usecase/ingest"
	qauc "github.com/clearbid/tenderdex/internal/usecase/qa"
	retrievaluc "github.com/clearbid/tenderdex/internal/usecase/retrieval"
	summaryuc "github.com/clearbid/tenderdex/internal/usecase/summary"
	"github.com/clearbid/tenderdex/internal/version"
)

const cacheReadinessTimeout = 10 * time.Second

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

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

	logger.Info("Starting tenderdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	blobs := blob.New(cfg.Storage.BlobRoot)
	indexes := indexstore.New(cfg.Storage.IndexRoot, logger)

	embedder := buildEmbedder(cfg, logger)

	var completer domain.Completer
	if cfg.LLM.APIKey != "" {
		completer = openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Logger:  logger,
		})
		logger.Info("Completion provider configured", zap.String("model", cfg.LLM.Model))
	} else {
		logger.Warn("No LLM API key: summaries fall back to rule-based extraction, QA is disabled")
	}

	var docParser ingestuc.DocumentParser
	if cfg.Parser.BaseURL != "" {
		docParser = docparse.NewClient(&docparse.ClientConfig{
			BaseURL: cfg.Parser.BaseURL,
			Timeout: time.Duration(cfg.Parser.TimeoutSec) * time.Second,
			Logger:  logger,
		})
		logger.Info("Parse service configured", zap.String("base_url", cfg.Parser.BaseURL))
	}

	extractionSvc := extractionuc.NewService(completer, extractionuc.Config{
		PromptBudget: cfg.Extraction.PromptBudget,
		MaxTokens:    cfg.Extraction.MaxTokens,
	}, logger)

	ingestSvc := ingestuc.NewService(
		blobs,
		docParser,
		parser.ExtractPages,
		embedder,
		indexes,
		extractionSvc,
		ingestuc.Config{
			Tree:  assembler.Config{MaxChars: cfg.Chunking.MaxChars, Overlap: cfg.Chunking.Overlap},
			Pages: assembler.Config{MaxChars: cfg.Chunking.PageMaxChars, Overlap: cfg.Chunking.PageOverlap},
		},
		logger,
	)

	retrievalSvc := retrievaluc.NewService(indexes, embedder, cfg.Retrieval.TopK, logger)
	summarySvc := summaryuc.NewService(indexes, extractionSvc, logger)
	qaSvc := qauc.NewService(retrievalSvc, completer, logger)
	healthSvc := healthuc.New(blobs, indexes, newEmbeddingHealthChecker(embedder))

	server := chiTransport.NewServer(
		blobs,
		ingestSvc,
		summarySvc,
		qaSvc,
		healthSvc,
		int64(cfg.HTTP.MaxUploadMB)<<20,
		logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
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

// buildEmbedder assembles the embedder chain: provider -> optional cache.
func buildEmbedder(cfg config.Config, logger *zap.Logger) domain.Embedder {
	var base domain.Embedder
	model := cfg.Embedding.Model

	switch cfg.Embedding.Provider {
	case "openai":
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		})
	default:
		base = hashemb.New(cfg.Embedding.Dimensions)
		model = "local-hash"
	}

	if !cfg.Cache.Enabled {
		return base
	}

	kv, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Cache.Addrs,
		Username: cfg.Cache.Username,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create embedding cache store", zap.Error(err))
	}
	if err := kv.WaitForReady(context.Background(), cacheReadinessTimeout); err != nil {
		logger.Fatal("Embedding cache not ready", zap.Error(err))
	}
	logger.Info("Embedding cache enabled", zap.Strings("addrs", cfg.Cache.Addrs))

	return embcache.New(base, model, kv, metrics.EmbeddingCacheTotal, logger)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
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

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
