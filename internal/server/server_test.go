package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/relay-labs/relay/internal/chat"
	"github.com/relay-labs/relay/internal/model"
	"github.com/relay-labs/relay/internal/ratelimit"
	"github.com/relay-labs/relay/internal/server"
	"github.com/relay-labs/relay/internal/service/runs"
	"github.com/relay-labs/relay/internal/signals"
	"github.com/relay-labs/relay/internal/storage"
	"github.com/relay-labs/relay/migrations"
)

var (
	testDB         *storage.DB
	testSrv        *httptest.Server
	testDispatcher *runs.Dispatcher
	testExec       *scriptedExecutor
	testcontainer  testcontainers.Container
)

// scriptedExecutor returns a canned trace per execution so E2E tests can
// steer the detached phase without a real sandbox.
type scriptedExecutor struct {
	mu    sync.Mutex
	trace model.ExecutionTrace
}

func (e *scriptedExecutor) setTrace(trace model.ExecutionTrace) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trace = trace
}

func (e *scriptedExecutor) Execute(_ context.Context, _ model.InstructionPack, _ string, _ model.RobotMode, _ model.SafetyLevel) (model.ExecutionTrace, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trace, nil
}

func TestMain(m *testing.M) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	var err error
	testcontainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, _ := testcontainer.Host(ctx)
	port, _ := testcontainer.MappedPort(ctx, "5432")
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

	testExec = &scriptedExecutor{trace: model.ExecutionTrace{
		DevboxID:     "dbx-e2e",
		Status:       model.ExecSuccess,
		Steps:        []model.StepResult{{StepTitle: "Devbox Initialization", Success: true}},
		DevboxStatus: "completed",
	}}
	testDispatcher = runs.NewDispatcher(logger)
	runSvc := runs.New(testDB, testExec, testDispatcher, logger)
	chatSvc := chat.New(testDB, chat.NewStaticCompleter(), logger)

	srv := server.New(server.ServerConfig{
		DB:                  testDB,
		RunSvc:              runSvc,
		ChatSvc:             chatSvc,
		Logger:              logger,
		Port:                0,
		ReadTimeout:         30 * time.Second,
		WriteTimeout:        30 * time.Second,
		Version:             "test",
		MaxRequestBodyBytes: 1 * 1024 * 1024,
	})

	testSrv = httptest.NewServer(srv.Handler())

	code := m.Run()

	testSrv.Close()
	testDB.Close()
	_ = testcontainer.Terminate(context.Background())
	os.Exit(code)
}

func drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, testDispatcher.Drain(ctx))
}

func doJSON(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, testSrv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(data, &envelope), "body: %s", string(data))
	require.NoError(t, json.Unmarshal(envelope.Data, target), "data: %s", string(envelope.Data))
}

func createRobot(t *testing.T, name string, mode model.RobotMode, safety model.SafetyLevel) model.RobotProfile {
	t.Helper()
	resp := doJSON(t, http.MethodPost, "/api/robot/create", map[string]any{
		"name":         name,
		"mode":         mode,
		"safety_level": safety,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var robot model.RobotProfile
	decodeData(t, resp, &robot)
	return robot
}

func TestHealthEndpoint(t *testing.T) {
	resp, err := http.Get(testSrv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	var health model.HealthResponse
	decodeData(t, resp, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "connected", health.Postgres)
}

func TestRobotLifecycle(t *testing.T) {
	robot := createRobot(t, "Atlas", model.RobotModeDirect, model.SafetyConservative)
	assert.Equal(t, "Atlas", robot.Name)
	assert.Equal(t, model.RobotModeDirect, robot.Mode)

	// Read back.
	resp := doJSON(t, http.MethodGet, "/api/robots/"+robot.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched model.RobotProfile
	decodeData(t, resp, &fetched)
	assert.Equal(t, robot.ID, fetched.ID)

	// Patch mode only; name must survive.
	resp = doJSON(t, http.MethodPatch, "/api/robots/"+robot.ID.String(), map[string]any{
		"mode": "professional",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated model.RobotProfile
	decodeData(t, resp, &updated)
	assert.Equal(t, model.RobotModeProfessional, updated.Mode)
	assert.Equal(t, "Atlas", updated.Name)

	// List contains it.
	resp = doJSON(t, http.MethodGet, "/api/robots", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var robots []model.RobotProfile
	decodeData(t, resp, &robots)
	found := false
	for _, r := range robots {
		if r.ID == robot.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCreateRobotValidation(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/api/robot/create", map[string]any{
		"mode": "calm",
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, "/api/robot/create", map[string]any{
		"name": "Glitch",
		"mode": "angry",
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunPipelineNovaScenario(t *testing.T) {
	robot := createRobot(t, "Nova", model.RobotModeCalm, model.SafetyBalanced)

	resp := doJSON(t, http.MethodPost, "/api/run/create", map[string]any{
		"robot_id": robot.ID,
		"command":  "Deliver package",
		"urgency":  80,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run model.Run
	decodeData(t, resp, &run)

	// The response already reflects the dispatched state: queued with a
	// pack attached is never observable.
	assert.Equal(t, model.RunStatusProcessing, run.Status)
	require.NotNil(t, run.InstructionPack)
	assert.Equal(t, "Nova will Deliver package", run.InstructionPack.Goal)
	// Balanced robot: 3 base checks plus 1 for urgency above 70.
	assert.Len(t, run.InstructionPack.SafetyChecks, 4)
	// No context supplied: the 4 baseline steps.
	assert.Len(t, run.InstructionPack.Steps, 4)

	drain(t)

	resp = doJSON(t, http.MethodGet, "/api/run/"+run.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var settled model.Run
	decodeData(t, resp, &settled)
	assert.Equal(t, model.RunStatusComplete, settled.Status)
	require.NotNil(t, settled.AISummary)
	require.NotNil(t, settled.RunloopOutput)
	assert.Equal(t, model.ExecSuccess, settled.RunloopOutput.Status)
}

func TestRunCreateValidation(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/api/run/create", map[string]any{
		"command": "Deliver package",
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown robot.
	resp = doJSON(t, http.MethodPost, "/api/run/create", map[string]any{
		"robot_id": "9c4ce1f4-0000-0000-0000-000000000000",
		"command":  "Deliver package",
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFeedbackNotAcceptableScenario(t *testing.T) {
	robot := createRobot(t, "Courier", model.RobotModeCalm, model.SafetyBalanced)

	resp := doJSON(t, http.MethodPost, "/api/run/create", map[string]any{
		"robot_id": robot.ID,
		"command":  "Deliver package",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run model.Run
	decodeData(t, resp, &run)
	drain(t)

	resp = doJSON(t, http.MethodPost, "/api/run/"+run.ID.String()+"/feedback", map[string]any{
		"rating":   "not_acceptable",
		"feedback": "too slow",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rated model.Run
	decodeData(t, resp, &rated)

	require.NotNil(t, rated.UserRating)
	assert.Equal(t, model.RatingNotAcceptable, *rated.UserRating)
	require.NotNil(t, rated.ImprovedPlan)
	assert.GreaterOrEqual(t, len(rated.ImprovedPlan.RecommendedChanges), 3)

	containsFeedback := false
	for _, change := range rated.ImprovedPlan.RecommendedChanges {
		if bytes.Contains([]byte(change), []byte("too slow")) {
			containsFeedback = true
		}
	}
	assert.True(t, containsFeedback, "recommended changes must echo the feedback text")

	// Missing rating is rejected.
	resp = doJSON(t, http.MethodPost, "/api/run/"+run.ID.String()+"/feedback", map[string]any{
		"feedback": "no rating here",
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestManualCompleteAttachesSummary(t *testing.T) {
	robot := createRobot(t, "Butler", model.RobotModeProfessional, model.SafetyBalanced)

	resp := doJSON(t, http.MethodPost, "/api/run/create", map[string]any{
		"robot_id": robot.ID,
		"command":  "Polish the silverware",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run model.Run
	decodeData(t, resp, &run)
	drain(t)

	resp = doJSON(t, http.MethodPost, "/api/run/"+run.ID.String()+"/complete", map[string]any{
		"video_url": "https://example.com/run.mp4",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var completed model.Run
	decodeData(t, resp, &completed)
	assert.Equal(t, model.RunStatusComplete, completed.Status)
	require.NotNil(t, completed.VideoURL)
	assert.Equal(t, "https://example.com/run.mp4", *completed.VideoURL)
	require.NotNil(t, completed.AISummary)
}

func TestCascadeDeleteLeavesNoOrphans(t *testing.T) {
	robot := createRobot(t, "Ephemeral", model.RobotModeCalm, model.SafetyBalanced)

	resp := doJSON(t, http.MethodPost, "/api/run/create", map[string]any{
		"robot_id": robot.ID,
		"command":  "Sweep the porch",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run model.Run
	decodeData(t, resp, &run)
	drain(t)

	resp = doJSON(t, http.MethodPost, "/api/journal", map[string]any{
		"robot_id": robot.ID,
		"title":    "Porch day",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var entry model.JournalEntry
	decodeData(t, resp, &entry)

	resp = doJSON(t, http.MethodDelete, "/api/robots/"+robot.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var deleted struct {
		Deleted storage.DeleteRobotResult `json:"deleted"`
	}
	decodeData(t, resp, &deleted)
	assert.Equal(t, int64(1), deleted.Deleted.Robots)
	assert.Equal(t, int64(1), deleted.Deleted.Runs)
	assert.Equal(t, int64(1), deleted.Deleted.JournalEntries)

	// Nothing owned by the robot remains queryable.
	resp = doJSON(t, http.MethodGet, "/api/run/"+run.ID.String(), nil)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, "/api/journal/"+entry.ID.String(), nil)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, "/api/runs/"+robot.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var remaining []model.Run
	decodeData(t, resp, &remaining)
	assert.Empty(t, remaining)
}

func TestJournalEndpoints(t *testing.T) {
	robot := createRobot(t, "Scribe", model.RobotModeCalm, model.SafetyBalanced)

	resp := doJSON(t, http.MethodPost, "/api/journal", map[string]any{
		"robot_id":   robot.ID,
		"title":      "A quiet afternoon",
		"mood":       "positive",
		"highlights": []string{"Watered every plant"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var entry model.JournalEntry
	decodeData(t, resp, &entry)
	assert.Equal(t, model.MoodPositive, entry.Mood)

	// Filter by robot.
	resp = doJSON(t, http.MethodGet, "/api/journal?robot_id="+robot.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []model.JournalEntry
	decodeData(t, resp, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)

	// Unknown robot is rejected.
	resp = doJSON(t, http.MethodPost, "/api/journal", map[string]any{
		"robot_id": "9c4ce1f4-0000-0000-0000-000000000001",
		"title":    "Ghost entry",
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConversationFlow(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/api/conversations", map[string]any{})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var conv model.Conversation
	decodeData(t, resp, &conv)
	assert.Equal(t, "New Chat", conv.Title)

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("/api/conversations/%d/messages", conv.ID), map[string]any{
		"content": "How are the robots doing?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var exchange chat.ExchangeResult
	decodeData(t, resp, &exchange)
	assert.Equal(t, model.ChatRoleUser, exchange.UserMessage.Role)
	assert.Equal(t, model.ChatRoleAssistant, exchange.AssistantMessage.Role)
	assert.NotEmpty(t, exchange.AssistantMessage.Content)

	resp = doJSON(t, http.MethodGet, fmt.Sprintf("/api/conversations/%d/messages", conv.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var messages []model.Message
	decodeData(t, resp, &messages)
	assert.Len(t, messages, 2)

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("/api/conversations/%d", conv.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, http.MethodGet, fmt.Sprintf("/api/conversations/%d", conv.ID), nil)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSignalsFallbacks(t *testing.T) {
	// No live calendar or email services wired: deterministic fallback.
	resp := doJSON(t, http.MethodGet, "/api/calendar/events", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var block signals.CalendarBlock
	decodeData(t, resp, &block)
	assert.Equal(t, "fallback", block.Source)
	assert.NotEmpty(t, block.Events)
	assert.NotEmpty(t, block.FreeWindows)

	resp = doJSON(t, http.MethodGet, "/api/email/signals", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sigs []signals.EmailSignal
	decodeData(t, resp, &sigs)
	assert.Len(t, sigs, 10)

	resp = doJSON(t, http.MethodGet, "/api/integrations/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status signals.IntegrationStatus
	decodeData(t, resp, &status)
	assert.False(t, status.Calendar)
	assert.False(t, status.Gmail)
}

func TestRunCreateRateLimit(t *testing.T) {
	// Separate server with a one-per-minute budget so the main suite's
	// traffic is unaffected.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	limiter := ratelimit.PerMinute(1)
	defer func() { _ = limiter.Close() }()

	dispatcher := runs.NewDispatcher(logger)
	srv := server.New(server.ServerConfig{
		DB:                  testDB,
		RunSvc:              runs.New(testDB, testExec, dispatcher, logger),
		ChatSvc:             chat.New(testDB, chat.NewStaticCompleter(), logger),
		Logger:              logger,
		RunLimiter:          limiter,
		MaxRequestBodyBytes: 1 * 1024 * 1024,
	})
	limited := httptest.NewServer(srv.Handler())
	defer limited.Close()

	robot := createRobot(t, "Sprinter", model.RobotModeCalm, model.SafetyBalanced)

	body, _ := json.Marshal(map[string]any{"robot_id": robot.ID, "command": "Dash"})
	first, err := http.Post(limited.URL+"/api/run/create", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	_ = first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Post(limited.URL+"/api/run/create", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = second.Body.Close() }()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.Equal(t, "1", second.Header.Get("Retry-After"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, dispatcher.Drain(ctx))
}

func TestUnknownFieldRejected(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/api/robot/create", map[string]any{
		"name":    "Strict",
		"surname": "Unwanted",
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
