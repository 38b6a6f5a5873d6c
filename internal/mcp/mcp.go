// Package mcp implements the Model Context Protocol server for Relay.
//
// The MCP server exposes the same capabilities as the HTTP API through
// MCP resources and tools, allowing MCP-compatible AI agents to drive
// robot runs and read console state.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/relay-labs/relay/internal/model"
	"github.com/relay-labs/relay/internal/service/runs"
	"github.com/relay-labs/relay/internal/storage"
)

// Server wraps the MCP server with Relay's service layer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	db        *storage.DB
	runSvc    *runs.Service
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources and tools.
func New(db *storage.DB, runSvc *runs.Service, logger *slog.Logger, version string) *Server {
	s := &Server{
		db:     db,
		runSvc: runSvc,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"relay",
		version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerResources() {
	// relay://robots: all robot profiles.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"relay://robots",
			"Robot Profiles",
			mcplib.WithResourceDescription("All configured robot companion profiles"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleRobotsResource,
	)

	// relay://runs/recent: recent runs across all robots.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"relay://runs/recent",
			"Recent Runs",
			mcplib.WithResourceDescription("Recent runs across all robots, newest first"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleRecentRunsResource,
	)
}

func (s *Server) registerTools() {
	// relay_list_robots: enumerate robot profiles.
	s.mcpServer.AddTool(
		mcplib.NewTool("relay_list_robots",
			mcplib.WithDescription("List all robot companion profiles with their mode and safety level"),
		),
		s.handleListRobots,
	)

	// relay_create_run: issue a command to a robot.
	s.mcpServer.AddTool(
		mcplib.NewTool("relay_create_run",
			mcplib.WithDescription("Issue a natural-language command to a robot. Generates an instruction pack and executes it on a remote sandbox."),
			mcplib.WithString("robot_id", mcplib.Description("Robot profile UUID"), mcplib.Required()),
			mcplib.WithString("command", mcplib.Description("What the robot should do"), mcplib.Required()),
			mcplib.WithString("context", mcplib.Description("Extra constraints or context for the plan")),
			mcplib.WithNumber("urgency", mcplib.Description("Urgency 0-100, default 50")),
		),
		s.handleCreateRun,
	)

	// relay_get_run: fetch one run with its full lifecycle record.
	s.mcpServer.AddTool(
		mcplib.NewTool("relay_get_run",
			mcplib.WithDescription("Get a run including its instruction pack, execution trace, and summary"),
			mcplib.WithString("run_id", mcplib.Description("Run UUID"), mcplib.Required()),
		),
		s.handleGetRun,
	)

	// relay_submit_feedback: rate a run and get an improved plan.
	s.mcpServer.AddTool(
		mcplib.NewTool("relay_submit_feedback",
			mcplib.WithDescription("Rate a finished run. Returns the run with a generated improved plan attached."),
			mcplib.WithString("run_id", mcplib.Description("Run UUID"), mcplib.Required()),
			mcplib.WithString("rating", mcplib.Description("One of worked, needs_improvement, not_acceptable"), mcplib.Required()),
			mcplib.WithString("feedback", mcplib.Description("Free-form feedback text")),
		),
		s.handleSubmitFeedback,
	)

	// relay_list_journal: read journal entries, optionally per robot.
	s.mcpServer.AddTool(
		mcplib.NewTool("relay_list_journal",
			mcplib.WithDescription("List journal entries, optionally filtered to one robot"),
			mcplib.WithString("robot_id", mcplib.Description("Robot profile UUID to filter by")),
		),
		s.handleListJournal,
	)
}

func (s *Server) handleRobotsResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	robots, err := s.db.ListRobots(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcp: list robots: %w", err)
	}

	data, err := json.MarshalIndent(robots, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal robots: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "relay://robots",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

const recentRunsLimit = 20

func (s *Server) handleRecentRunsResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	runList, err := s.db.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcp: list runs: %w", err)
	}
	if len(runList) > recentRunsLimit {
		runList = runList[:recentRunsLimit]
	}

	data, err := json.MarshalIndent(runList, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal runs: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "relay://runs/recent",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleListRobots(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	robots, err := s.db.ListRobots(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list robots: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(map[string]any{
		"robots": robots,
		"total":  len(robots),
	}, "", "  ")

	return textResult(string(resultData)), nil
}

func (s *Server) handleCreateRun(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	robotID, err := uuid.Parse(request.GetString("robot_id", ""))
	if err != nil {
		return errorResult("robot_id must be a valid UUID"), nil
	}

	req := model.CreateRunRequest{
		RobotID: robotID,
		Command: request.GetString("command", ""),
	}
	if c := request.GetString("context", ""); c != "" {
		req.Context = &c
	}
	if u := request.GetInt("urgency", -1); u >= 0 {
		req.Urgency = &u
	}
	if err := req.Validate(); err != nil {
		return errorResult(err.Error()), nil
	}

	run, err := s.runSvc.Create(ctx, req)
	if err != nil {
		if errors.Is(err, storage.ErrRobotNotFound) {
			return errorResult("robot not found: " + robotID.String()), nil
		}
		return errorResult(fmt.Sprintf("failed to create run: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(run, "", "  ")
	return textResult(string(resultData)), nil
}

func (s *Server) handleGetRun(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	runID, err := uuid.Parse(request.GetString("run_id", ""))
	if err != nil {
		return errorResult("run_id must be a valid UUID"), nil
	}

	run, err := s.runSvc.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errorResult("run not found: " + runID.String()), nil
		}
		return errorResult(fmt.Sprintf("failed to get run: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(run, "", "  ")
	return textResult(string(resultData)), nil
}

func (s *Server) handleSubmitFeedback(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	runID, err := uuid.Parse(request.GetString("run_id", ""))
	if err != nil {
		return errorResult("run_id must be a valid UUID"), nil
	}

	req := model.FeedbackRequest{
		Rating: model.Rating(request.GetString("rating", "")),
	}
	if f := request.GetString("feedback", ""); f != "" {
		req.Feedback = &f
	}
	if err := req.Validate(); err != nil {
		return errorResult(err.Error()), nil
	}

	run, err := s.runSvc.Feedback(ctx, runID, req)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errorResult("run not found: " + runID.String()), nil
		}
		return errorResult(fmt.Sprintf("failed to submit feedback: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(run, "", "  ")
	return textResult(string(resultData)), nil
}

func (s *Server) handleListJournal(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	var robotID *uuid.UUID
	if raw := request.GetString("robot_id", ""); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return errorResult("robot_id must be a valid UUID"), nil
		}
		robotID = &id
	}

	entries, err := s.db.ListJournalEntries(ctx, robotID)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list journal entries: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(map[string]any{
		"entries": entries,
		"total":   len(entries),
	}, "", "  ")

	return textResult(string(resultData)), nil
}

func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: text},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
