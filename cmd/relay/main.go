package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/relay-labs/relay/internal/chat"
	"github.com/relay-labs/relay/internal/config"
	"github.com/relay-labs/relay/internal/devbox"
	"github.com/relay-labs/relay/internal/mcp"
	"github.com/relay-labs/relay/internal/ratelimit"
	"github.com/relay-labs/relay/internal/server"
	"github.com/relay-labs/relay/internal/service/runs"
	"github.com/relay-labs/relay/internal/signals"
	"github.com/relay-labs/relay/internal/storage"
	"github.com/relay-labs/relay/internal/telemetry"
	"github.com/relay-labs/relay/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("RELAY_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("relay starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to database and apply migrations.
	db, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	if cfg.SeedDemoData {
		if err := db.Seed(ctx); err != nil {
			slog.Warn("demo seed failed", "error", err)
		}
	}

	// Sandbox executor. A missing API key is not fatal: runs fail fast with
	// a synthetic failed setup step instead.
	if cfg.RunloopAPIKey == "" {
		slog.Warn("RUNLOOP_API_KEY not set, run execution will fail fast")
	}
	executor := devbox.NewAdapter(devbox.NewRunloopClient(cfg.RunloopAPIKey, cfg.RunloopBaseURL), logger)

	// Run pipeline service with a dispatcher tracking detached executions.
	dispatcher := runs.NewDispatcher(logger)
	runSvc := runs.New(db, executor, dispatcher, logger)

	// Mark runs orphaned by a previous process as failed before accepting
	// traffic, so nothing is ever stuck in processing.
	if err := runSvc.Recover(ctx); err != nil {
		return fmt.Errorf("run recovery: %w", err)
	}

	// Chat assistant. Without an API key the assistant answers with a fixed
	// notice instead of erroring.
	var completer chat.Completer
	if cfg.OpenAIAPIKey != "" {
		completer = chat.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel)
	} else {
		slog.Warn("OPENAI_API_KEY not set, chat assistant disabled")
		completer = chat.NewStaticCompleter()
	}
	chatSvc := chat.New(db, completer, logger)

	// Calendar and email signals (optional, disabled without a connector).
	var (
		connector *signals.Connector
		calendar  *signals.CalendarService
		email     *signals.EmailService
	)
	if cfg.ConnectorURL != "" {
		connector = signals.NewConnector(cfg.ConnectorURL, cfg.ConnectorToken)
		calendar = signals.NewCalendarService(signals.NewTokenCache(connector.TokenSource(signals.ConnectorCalendar)))
		email = signals.NewEmailService(signals.NewTokenCache(connector.TokenSource(signals.ConnectorGmail)), logger)
		logger.Info("signals: live Google integrations enabled")
	} else {
		logger.Info("signals: disabled (no connector URL), serving fallback payloads")
	}

	// Per-IP rate limiters. Run creation provisions a billable sandbox per
	// request, so it carries the tighter budget.
	runLimiter := ratelimit.PerMinute(cfg.RunCreateRatePerMin)
	defer func() { _ = runLimiter.Close() }()
	chatLimiter := ratelimit.PerMinute(cfg.ChatRatePerMin)
	defer func() { _ = chatLimiter.Close() }()

	// MCP server, mounted on the HTTP server at /mcp.
	mcpSrv := mcp.New(db, runSvc, logger, version)

	srv := server.New(server.ServerConfig{
		DB:                  db,
		RunSvc:              runSvc,
		ChatSvc:             chatSvc,
		Calendar:            calendar,
		Email:               email,
		Connector:           connector,
		RunLimiter:          runLimiter,
		ChatLimiter:         chatLimiter,
		MCPServer:           mcpSrv.MCPServer(),
		Logger:              logger,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	// Start HTTP server in background.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	// Graceful shutdown. Stop accepting HTTP first, then wait for detached
	// run executions to settle so their outcomes reach the database.
	slog.Info("relay shutting down")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	httpCancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 20*time.Second)
	if err := dispatcher.Drain(drainCtx); err != nil {
		slog.Error("dispatcher drain error", "error", err)
	}
	drainCancel()

	slog.Info("relay stopped")
	return nil
}
