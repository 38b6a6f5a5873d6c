// Package runs provides the shared business logic for the run pipeline.
//
// Both the HTTP API and MCP server delegate to this service, ensuring
// consistent behavior (pack generation, two-phase execution, summary
// synthesis, feedback handling) across all interfaces.
package runs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/relay-labs/relay/internal/model"
	"github.com/relay-labs/relay/internal/plan"
	"github.com/relay-labs/relay/internal/storage"
	"github.com/relay-labs/relay/internal/telemetry"
)

// Executor runs an instruction pack on a remote sandbox. Step failures
// are reported inside the returned trace; a non-nil error means no trace
// could be produced at all.
type Executor interface {
	Execute(ctx context.Context, pack model.InstructionPack, robotName string, mode model.RobotMode, safety model.SafetyLevel) (model.ExecutionTrace, error)
}

// Service encapsulates run business logic shared by HTTP and MCP handlers.
type Service struct {
	db         *storage.DB
	executor   Executor
	dispatcher *Dispatcher
	logger     *slog.Logger

	execDuration metric.Float64Histogram
	execCount    metric.Int64Counter
}

// New creates a new run Service.
func New(db *storage.DB, executor Executor, dispatcher *Dispatcher, logger *slog.Logger) *Service {
	meter := telemetry.Meter("relay/runs")
	execDur, _ := meter.Float64Histogram("relay.run.execution.duration",
		metric.WithDescription("Wall time of sandbox executions (ms)"),
		metric.WithUnit("ms"),
	)
	execCount, _ := meter.Int64Counter("relay.run.executions",
		metric.WithDescription("Completed sandbox executions by outcome"),
	)
	return &Service{
		db:           db,
		executor:     executor,
		dispatcher:   dispatcher,
		logger:       logger,
		execDuration: execDur,
		execCount:    execCount,
	}
}

// Create runs the synchronous first phase of the pipeline: validate the
// robot, persist the run, attach the generated instruction pack, and
// dispatch execution. The returned run is already in processing; the
// sandbox outcome lands later via the detached second phase.
func (s *Service) Create(ctx context.Context, req model.CreateRunRequest) (model.Run, error) {
	robot, err := s.db.GetRobot(ctx, req.RobotID)
	if err != nil {
		return model.Run{}, err
	}

	pack := plan.GeneratePack(robot.Name, robot.Mode, robot.SafetyLevel,
		req.Command, req.Context, req.UrgencyOrDefault())

	created, err := s.db.CreateRun(ctx, req)
	if err != nil {
		return model.Run{}, err
	}

	started, err := s.db.StartRun(ctx, created.ID, pack)
	if err != nil {
		return model.Run{}, err
	}

	s.dispatcher.Dispatch(ctx, "run-execution", func(ctx context.Context) {
		s.executeAndSettle(ctx, started, robot, pack)
	})

	return started, nil
}

// executeAndSettle is the detached second phase: run the pack on a
// sandbox, synthesize the summary from the per-step outcomes, and move
// the run to its terminal status. Storage failures here can only be
// logged; there is no caller left to report to.
func (s *Service) executeAndSettle(ctx context.Context, run model.Run, robot model.RobotProfile, pack model.InstructionPack) {
	start := time.Now()
	trace, err := s.executor.Execute(ctx, pack, robot.Name, robot.Mode, robot.SafetyLevel)
	s.execDuration.Record(ctx, float64(time.Since(start).Milliseconds()))

	if err != nil {
		s.logger.Error("run execution failed",
			slog.String("run_id", run.ID.String()),
			slog.String("error", err.Error()))
		s.execCount.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))

		errTrace := model.ExecutionTrace{
			Status:       model.ExecFailure,
			Steps:        []model.StepResult{},
			DevboxStatus: "error",
			Error:        err.Error(),
		}
		if dbErr := s.db.FailRunExecution(ctx, run.ID, errTrace); dbErr != nil {
			s.logger.Error("settle failed run", slog.String("run_id", run.ID.String()), slog.String("error", dbErr.Error()))
		}
		return
	}

	s.execCount.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(trace.Status))))

	summary := summarizeTrace(robot.Name, run.Command, trace)

	// partial_failure still counts as a completed run; only a fully
	// failed trace marks the run failed.
	status := model.RunStatusComplete
	if trace.Status == model.ExecFailure {
		status = model.RunStatusFailed
	}

	var devboxID *string
	if trace.DevboxID != "" {
		devboxID = &trace.DevboxID
	}

	if err := s.db.FinishRunExecution(ctx, run.ID, status, devboxID, trace, summary); err != nil {
		s.logger.Error("settle run", slog.String("run_id", run.ID.String()), slog.String("error", err.Error()))
		return
	}
	s.logger.Info("run settled",
		slog.String("run_id", run.ID.String()),
		slog.String("status", string(status)),
		slog.String("exec_status", string(trace.Status)))
}

// summarizeTrace builds the run summary from the canned narrative, then
// overwrites the headline and the well/issue lists with the actual
// per-step outcomes.
func summarizeTrace(robotName, command string, trace model.ExecutionTrace) model.RunSummary {
	summary := plan.GenerateRunSummary(robotName, command, "")

	succeeded := make([]string, 0, len(trace.Steps))
	issues := make([]string, 0)
	for _, step := range trace.Steps {
		if step.Success {
			succeeded = append(succeeded, step.StepTitle)
			continue
		}
		reason := step.Stderr
		if reason == "" {
			reason = "Failed"
		}
		issues = append(issues, fmt.Sprintf("%s: %s", step.StepTitle, reason))
	}

	summary.RunSummary = fmt.Sprintf("%s executed %q on Runloop devbox %s. %d/%d steps completed successfully in %.1fs.",
		robotName, command, trace.DevboxID, len(succeeded), len(trace.Steps),
		float64(trace.TotalDuration)/1000)
	summary.WhatWentWell = succeeded
	summary.Issues = issues
	return summary
}

// Get retrieves a run by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (model.Run, error) {
	return s.db.GetRun(ctx, id)
}

// List returns all runs, newest first.
func (s *Service) List(ctx context.Context) ([]model.Run, error) {
	return s.db.ListRuns(ctx)
}

// ListByRobot returns one robot's runs, newest first.
func (s *Service) ListByRobot(ctx context.Context, robotID uuid.UUID) ([]model.Run, error) {
	return s.db.ListRunsByRobot(ctx, robotID)
}

// Complete force-completes a run without sandbox execution, attaching a
// synthesized summary and an optional video URL. A deleted robot does
// not block completion; the narrative falls back to a generic name.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, req model.CompleteRunRequest) (model.Run, error) {
	run, err := s.db.GetRun(ctx, id)
	if err != nil {
		return model.Run{}, err
	}

	robotName := "Robot"
	if robot, err := s.db.GetRobot(ctx, run.RobotID); err == nil {
		robotName = robot.Name
	}

	summary := plan.GenerateRunSummary(robotName, run.Command, req.RunNotes)
	return s.db.CompleteRunManual(ctx, id, req.VideoURL, summary)
}

// Feedback attaches a rating and optional feedback text to a run and
// generates the improved plan. Accepted in any run status; resubmission
// overwrites the previous verdict.
func (s *Service) Feedback(ctx context.Context, id uuid.UUID, req model.FeedbackRequest) (model.Run, error) {
	if _, err := s.db.GetRun(ctx, id); err != nil {
		return model.Run{}, err
	}

	feedback := ""
	if req.Feedback != nil {
		feedback = *req.Feedback
	}
	improved := plan.GenerateImprovedPlan(feedback, req.Rating)

	return s.db.SetRunFeedback(ctx, id, req.Rating, req.Feedback, improved)
}

// Recover marks runs stranded in processing as failed. Called once at
// startup: a processing run has no executor after a restart, and nothing
// else would ever settle it.
func (s *Service) Recover(ctx context.Context) error {
	trace := model.ExecutionTrace{
		Status:       model.ExecFailure,
		Steps:        []model.StepResult{},
		DevboxStatus: "error",
		Error:        "execution interrupted by service restart",
	}
	n, err := s.db.FailStaleProcessingRuns(ctx, trace)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Warn("failed stale processing runs", slog.Int64("count", n))
	}
	return nil
}
