package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/relay-labs/relay/internal/chat"
	"github.com/relay-labs/relay/internal/ratelimit"
	"github.com/relay-labs/relay/internal/service/runs"
	"github.com/relay-labs/relay/internal/signals"
	"github.com/relay-labs/relay/internal/storage"
)

// Server is the Relay HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): Calendar, Email, Connector, RunLimiter,
// ChatLimiter, MCPServer.
type ServerConfig struct {
	// Required dependencies.
	DB      *storage.DB
	RunSvc  *runs.Service
	ChatSvc *chat.Service
	Logger  *slog.Logger

	// Optional dependencies (nil = disabled).
	Calendar    *signals.CalendarService
	Email       *signals.EmailService
	Connector   *signals.Connector
	RunLimiter  ratelimit.Limiter
	ChatLimiter ratelimit.Limiter
	MCPServer   *mcpserver.MCPServer

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		DB:                  cfg.DB,
		RunSvc:              cfg.RunSvc,
		ChatSvc:             cfg.ChatSvc,
		Calendar:            cfg.Calendar,
		Email:               cfg.Email,
		Connector:           cfg.Connector,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	// Request ID extractor for rate limit error responses.
	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}

	// Rate limit rules. Run creation provisions a billable sandbox per
	// request, so it gets the tightest budget.
	runRL := ratelimit.Middleware(cfg.RunLimiter, ratelimit.IPKeyFunc, reqIDFunc)
	chatRL := ratelimit.Middleware(cfg.ChatLimiter, ratelimit.IPKeyFunc, reqIDFunc)

	mux := http.NewServeMux()

	// Robot profiles.
	mux.HandleFunc("POST /api/robot/create", h.HandleCreateRobot)
	mux.HandleFunc("GET /api/robots", h.HandleListRobots)
	mux.HandleFunc("GET /api/robots/{id}", h.HandleGetRobot)
	mux.HandleFunc("PATCH /api/robots/{id}", h.HandleUpdateRobot)
	mux.HandleFunc("DELETE /api/robots/{id}", h.HandleDeleteRobot)

	// Run pipeline (creation rate limited by IP).
	mux.Handle("POST /api/run/create", runRL(http.HandlerFunc(h.HandleCreateRun)))
	mux.HandleFunc("GET /api/run/{id}", h.HandleGetRun)
	mux.HandleFunc("POST /api/run/{id}/complete", h.HandleCompleteRun)
	mux.HandleFunc("POST /api/run/{id}/feedback", h.HandleRunFeedback)
	mux.HandleFunc("GET /api/runs", h.HandleListRuns)
	mux.HandleFunc("GET /api/runs/{robot_id}", h.HandleListRunsByRobot)

	// Journal.
	mux.HandleFunc("GET /api/journal", h.HandleListJournal)
	mux.HandleFunc("GET /api/journal/{id}", h.HandleGetJournalEntry)
	mux.HandleFunc("POST /api/journal", h.HandleCreateJournalEntry)

	// Chat assistant (message posting rate limited by IP).
	mux.HandleFunc("GET /api/conversations", h.HandleListConversations)
	mux.HandleFunc("POST /api/conversations", h.HandleCreateConversation)
	mux.HandleFunc("GET /api/conversations/{id}", h.HandleGetConversation)
	mux.HandleFunc("DELETE /api/conversations/{id}", h.HandleDeleteConversation)
	mux.HandleFunc("GET /api/conversations/{id}/messages", h.HandleListMessages)
	mux.Handle("POST /api/conversations/{id}/messages", chatRL(http.HandlerFunc(h.HandlePostMessage)))

	// Calendar and email signals.
	mux.HandleFunc("GET /api/calendar/events", h.HandleCalendarEvents)
	mux.HandleFunc("GET /api/email/signals", h.HandleEmailSignals)
	mux.HandleFunc("GET /api/integrations/status", h.HandleIntegrationsStatus)

	// MCP StreamableHTTP transport.
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	// Health (no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
