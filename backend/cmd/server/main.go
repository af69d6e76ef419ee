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

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/retouchly/brief-assistant/backend/internal/analyzer"
	"github.com/retouchly/brief-assistant/backend/internal/api"
	"github.com/retouchly/brief-assistant/backend/internal/audit"
	"github.com/retouchly/brief-assistant/backend/internal/cache"
	"github.com/retouchly/brief-assistant/backend/internal/config"
	"github.com/retouchly/brief-assistant/backend/internal/intake"
	"github.com/retouchly/brief-assistant/backend/internal/logger"
	"github.com/retouchly/brief-assistant/backend/internal/mcp"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.Logging, "server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Initialize intake policy engine
	engine, err := intake.NewEngine(cfg.Intake.PolicyPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize intake policy engine")
	}
	if cfg.Intake.WatchChanges {
		if err := engine.StartHotReload(); err != nil {
			log.WithError(err).Warn("Intake policy hot-reload disabled")
		}
	}
	defer engine.StopHotReload()

	auditLog, err := audit.NewLogger(cfg.Logging.AuditLog, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open audit log")
	}
	defer auditLog.Close()

	assistant := analyzer.NewAssistant()

	handlerConfig := &api.HandlerConfig{
		Config:    cfg,
		Assistant: assistant,
		Intake:    engine,
		Audit:     auditLog,
		Logger:    log,
	}
	if cfg.Cache.Enabled {
		handlerConfig.Cache = cache.NewResponseCache(cfg.Cache.MaxSize, cfg.Cache.TTL)
	}
	if cfg.RateLimit.Enabled {
		handlerConfig.RateLimiter = api.NewRateLimiter(cfg.RateLimit)
	}

	// MCP over SSE shares the analyzer and intake engine with the REST API
	mcpServer := mcp.NewServer(assistant, engine, auditLog, log)

	mux := http.NewServeMux()
	mux.Handle("/", api.NewRouter(handlerConfig))
	mux.HandleFunc("GET /mcp/sse", mcpServer.SSEHandler)
	mux.HandleFunc("POST /mcp/message", mcpServer.MessageHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"addr":           addr,
		"policy":         cfg.Intake.PolicyPath,
		"policy_version": engine.PolicyVersion(),
		"cache":          cfg.Cache.Enabled,
		"rate_limit":     cfg.RateLimit.Enabled,
	}).Info("Brief assistant starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Fatal("Server failed")
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
