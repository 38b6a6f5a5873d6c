package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/relay-labs/relay/internal/model"
	"github.com/relay-labs/relay/internal/service/runs"
	"github.com/relay-labs/relay/internal/storage"
	"github.com/relay-labs/relay/migrations"
)

var (
	testDB         *storage.DB
	testServer     *Server
	testDispatcher *runs.Dispatcher
)

// stubExecutor settles every run successfully without a sandbox.
type stubExecutor struct{}

func (stubExecutor) Execute(_ context.Context, _ model.InstructionPack, _ string, _ model.RobotMode, _ model.SafetyLevel) (model.ExecutionTrace, error) {
	return model.ExecutionTrace{
		DevboxID:     "dbx-mcp",
		Status:       model.ExecSuccess,
		Steps:        []model.StepResult{{StepTitle: "Devbox Initialization", Success: true}},
		DevboxStatus: "completed",
	}, nil
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "relay",
			"POSTGRES_PASSWORD": "relay",
			"POSTGRES_DB":       "relay",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")
	dsn := fmt.Sprintf("postgres://relay:relay@%s:%s/relay?sslmode=disable", host, port.Port())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	testDB, err = storage.New(ctx, dsn, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create DB: %v\n", err)
		os.Exit(1)
	}

	if err := testDB.RunMigrations(ctx, migrations.FS); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	testDispatcher = runs.NewDispatcher(logger)
	runSvc := runs.New(testDB, stubExecutor{}, testDispatcher, logger)
	testServer = New(testDB, runSvc, logger, "test")

	code := m.Run()

	testDB.Close()
	_ = container.Terminate(context.Background())
	os.Exit(code)
}

func toolRequest(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// parseToolText extracts the first TextContent text from a CallToolResult.
func parseToolText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no TextContent found in tool result")
	return ""
}

func createTestRobot(t *testing.T, name string) model.RobotProfile {
	t.Helper()
	robot, err := testDB.CreateRobot(context.Background(), model.CreateRobotRequest{
		Name:        name,
		Mode:        model.RobotModeCalm,
		SafetyLevel: model.SafetyBalanced,
	})
	require.NoError(t, err)
	return robot
}

func drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, testDispatcher.Drain(ctx))
}

func TestHandleListRobots(t *testing.T) {
	robot := createTestRobot(t, "Lister")

	result, err := testServer.handleListRobots(context.Background(), toolRequest("relay_list_robots", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var resp struct {
		Robots []model.RobotProfile `json:"robots"`
		Total  int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &resp))
	assert.GreaterOrEqual(t, resp.Total, 1)

	found := false
	for _, r := range resp.Robots {
		if r.ID == robot.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestHandleCreateRunAndGetRun(t *testing.T) {
	robot := createTestRobot(t, "Runner")

	result, err := testServer.handleCreateRun(context.Background(), toolRequest("relay_create_run", map[string]any{
		"robot_id": robot.ID.String(),
		"command":  "Fold the laundry",
		"urgency":  80,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "create should succeed: %s", parseToolText(t, result))

	var created model.Run
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &created))
	assert.Equal(t, model.RunStatusProcessing, created.Status)
	require.NotNil(t, created.InstructionPack)
	assert.Equal(t, "Runner will Fold the laundry", created.InstructionPack.Goal)

	drain(t)

	result, err = testServer.handleGetRun(context.Background(), toolRequest("relay_get_run", map[string]any{
		"run_id": created.ID.String(),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var fetched model.Run
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &fetched))
	assert.Equal(t, model.RunStatusComplete, fetched.Status)
	require.NotNil(t, fetched.AISummary)
}

func TestHandleCreateRunErrors(t *testing.T) {
	result, err := testServer.handleCreateRun(context.Background(), toolRequest("relay_create_run", map[string]any{
		"robot_id": "not-a-uuid",
		"command":  "Anything",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = testServer.handleCreateRun(context.Background(), toolRequest("relay_create_run", map[string]any{
		"robot_id": uuid.New().String(),
		"command":  "Anything",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "robot not found")

	robot := createTestRobot(t, "Mute")
	result, err = testServer.handleCreateRun(context.Background(), toolRequest("relay_create_run", map[string]any{
		"robot_id": robot.ID.String(),
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "command is required")
}

func TestHandleSubmitFeedback(t *testing.T) {
	robot := createTestRobot(t, "Student")

	result, err := testServer.handleCreateRun(context.Background(), toolRequest("relay_create_run", map[string]any{
		"robot_id": robot.ID.String(),
		"command":  "Stack the chairs",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	var run model.Run
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &run))
	drain(t)

	result, err = testServer.handleSubmitFeedback(context.Background(), toolRequest("relay_submit_feedback", map[string]any{
		"run_id":   run.ID.String(),
		"rating":   "needs_improvement",
		"feedback": "stacked them crooked",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "feedback should succeed: %s", parseToolText(t, result))

	var rated model.Run
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &rated))
	require.NotNil(t, rated.ImprovedPlan)
	assert.NotEmpty(t, rated.ImprovedPlan.RecommendedChanges)

	// Unknown rating is rejected before hitting the service.
	result, err = testServer.handleSubmitFeedback(context.Background(), toolRequest("relay_submit_feedback", map[string]any{
		"run_id": run.ID.String(),
		"rating": "meh",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleListJournal(t *testing.T) {
	robot := createTestRobot(t, "Diarist")
	_, err := testDB.CreateJournalEntry(context.Background(), model.CreateJournalEntryRequest{
		RobotID: robot.ID,
		Title:   "First entry",
		Mood:    model.MoodNeutral,
	})
	require.NoError(t, err)

	result, err := testServer.handleListJournal(context.Background(), toolRequest("relay_list_journal", map[string]any{
		"robot_id": robot.ID.String(),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var resp struct {
		Entries []model.JournalEntry `json:"entries"`
		Total   int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "First entry", resp.Entries[0].Title)
}

func TestRobotsResource(t *testing.T) {
	createTestRobot(t, "Resourceful")

	contents, err := testServer.handleRobotsResource(context.Background(), mcplib.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcplib.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "relay://robots", text.URI)
	assert.Equal(t, "application/json", text.MIMEType)

	var robots []model.RobotProfile
	require.NoError(t, json.Unmarshal([]byte(text.Text), &robots))
	assert.NotEmpty(t, robots)
}
