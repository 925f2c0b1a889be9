package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RichardoC/coding-agent/internal/api"
	"github.com/RichardoC/coding-agent/internal/config"
	"github.com/RichardoC/coding-agent/internal/db"
	"github.com/RichardoC/coding-agent/internal/history"
	"github.com/RichardoC/coding-agent/internal/llm"
	"github.com/RichardoC/coding-agent/internal/session"
	"github.com/RichardoC/coding-agent/internal/speech"
	"github.com/RichardoC/coding-agent/internal/uploads"
	"github.com/RichardoC/coding-agent/internal/web"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	sessionIdleTimeout = 24 * time.Hour
	janitorInterval    = 10 * time.Minute
)

func main() {
	configPath := flag.String("config", "coding-agent.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.LoadFromPath(*configPath)
	if err != nil {
		// No logger yet.
		zap.NewExample().Fatal("failed to load config", zap.Error(err), zap.String("path", *configPath))
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) (err error) {
	var archive *history.Archive
	if cfg.Storage.DBPath != "" {
		database, dbErr := db.New(cfg.Storage.DBPath)
		if dbErr != nil {
			logger.Error("failed to initialize database",
				zap.Error(dbErr),
				zap.String("dbPath", cfg.Storage.DBPath))
			return dbErr
		}
		defer func() { err = multierr.Append(err, database.Close()) }()
		archive = history.NewArchive(database)
	} else {
		logger.Info("history archive disabled")
	}

	llmService, err := llm.New(cfg.LLM, cfg.Delays.Gemini())
	if err != nil {
		logger.Error("failed to initialize LLM service", zap.Error(err))
		return err
	}

	sessions := session.NewStore()
	handler := api.NewHandler(api.Services{
		Sessions:    sessions,
		Uploads:     uploads.NewStoreWithQuota(cfg.Server.SessionUploadBytes()),
		LLM:         llmService,
		Transcriber: speech.NewTranscriber(cfg.Delays.Transcribe()),
		Archive:     archive,
	}, cfg, logger)

	pages, err := web.New(sessions, archive != nil, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	handler.Register(mux)
	pages.Register(mux)

	var limiter *api.RateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = api.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.Chain(
			api.Recovery(logger),
			api.SecurityHeaders(),
			api.Logging(logger),
			api.RateLimit(limiter),
		)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go janitor(ctx, handler, limiter, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("backend", cfg.LLM.Backend),
			zap.Bool("archive", archive != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// janitor drops idle sessions with their uploads, and forgotten rate-limit
// buckets.
func janitor(ctx context.Context, handler *api.Handler, limiter *api.RateLimiter, logger *zap.Logger) {
	t := time.NewTicker(janitorInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := handler.PruneSessions(sessionIdleTimeout); n > 0 {
				logger.Debug("Pruned idle sessions", zap.Int("count", n))
			}
			if limiter != nil {
				limiter.Sweep(janitorInterval)
			}
		}
	}
}
