package devbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/relay-labs/relay/internal/model"
)

// Adapter executes an instruction pack on a provisioned sandbox and
// records every command as a step in the resulting trace.
//
// Execute never fails for step-level problems; those are reported inside
// the trace. The returned error is reserved for the case where no trace
// could be produced at all.
type Adapter struct {
	provider Provider
	logger   *slog.Logger
}

// NewAdapter creates an execution adapter backed by the given provider.
func NewAdapter(provider Provider, logger *slog.Logger) *Adapter {
	return &Adapter{provider: provider, logger: logger}
}

// Execute provisions one sandbox, walks the pack's command sequence, and
// aggregates the per-step outcomes.
//
// Guarantees:
//   - One sandbox per call, torn down exactly once if provisioning
//     succeeded. Teardown failures are logged, never returned.
//   - A step that cannot be executed is recorded as a failed step and the
//     remaining plan steps still run.
//   - Status is success when no step failed, failure when every step
//     failed, partial_failure otherwise.
func (a *Adapter) Execute(ctx context.Context, pack model.InstructionPack, robotName string, mode model.RobotMode, safety model.SafetyLevel) (model.ExecutionTrace, error) {
	start := time.Now()
	var steps []model.StepResult
	devboxID := ""
	devboxStatus := "unknown"

	a.logger.Info("creating devbox", slog.String("robot", robotName))
	box, err := a.provider.CreateDevbox(ctx)
	if err != nil {
		a.logger.Error("devbox execution failed", slog.String("error", err.Error()))
		steps = append(steps, model.StepResult{
			StepTitle: "Devbox Setup",
			Command:   "devbox.create",
			Stderr:    err.Error(),
			ExitCode:  1,
		})
		return a.finish(start, devboxID, "error", steps), nil
	}
	devboxID = box.ID()
	a.logger.Info("devbox created", slog.String("devbox_id", devboxID))

	defer func() {
		// Detached context so teardown still runs when the run's
		// context is already cancelled.
		shutdownCtx := context.WithoutCancel(ctx)
		if err := box.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("devbox shutdown failed",
				slog.String("devbox_id", devboxID),
				slog.String("error", err.Error()))
			return
		}
		a.logger.Info("devbox shut down", slog.String("devbox_id", devboxID))
	}()

	if err := a.runSequence(ctx, box, pack, robotName, mode, safety, &steps); err != nil {
		a.logger.Error("devbox execution failed",
			slog.String("devbox_id", devboxID),
			slog.String("error", err.Error()))
		devboxStatus = "error"
		if len(steps) == 0 {
			steps = append(steps, model.StepResult{
				StepTitle: "Devbox Setup",
				Command:   "devbox.create",
				Stderr:    err.Error(),
				ExitCode:  1,
			})
		}
	} else {
		devboxStatus = "completed"
	}

	return a.finish(start, devboxID, devboxStatus, steps), nil
}

// runSequence executes init, safety, plan steps, and success criteria.
// An error from the init, safety, or criteria commands aborts the
// remaining sequence; plan step errors are recorded and skipped over.
func (a *Adapter) runSequence(ctx context.Context, box Devbox, pack model.InstructionPack, robotName string, mode model.RobotMode, safety model.SafetyLevel, steps *[]model.StepResult) error {
	initCmd := strings.Join([]string{
		`echo "=== Runloop Devbox Initialized ==="`,
		fmt.Sprintf(`echo "Robot: %s"`, robotName),
		fmt.Sprintf(`echo "Mode: %s | Safety: %s"`, mode, safety),
		fmt.Sprintf(`echo "Goal: %s"`, pack.Goal),
		`echo "---"`,
	}, " && ")

	res, err := box.Exec(ctx, initCmd)
	if err != nil {
		return err
	}
	*steps = append(*steps, stepResult("Devbox Initialization", initCmd, res))

	if len(pack.SafetyChecks) > 0 {
		cmd := combinedEchoCommand("=== Safety Pre-Check ===", "[PASS]", pack.SafetyChecks, "All safety checks passed.")
		res, err := box.Exec(ctx, cmd)
		if err != nil {
			return err
		}
		*steps = append(*steps, stepResult("Safety Pre-Check", cmd, res))
	}

	for _, step := range pack.Steps {
		cmd := buildShellCommand(step)
		res, err := box.Exec(ctx, cmd)
		if err != nil {
			*steps = append(*steps, model.StepResult{
				StepTitle: step.Title,
				Command:   cmd,
				Stderr:    err.Error(),
				ExitCode:  1,
			})
			continue
		}
		*steps = append(*steps, stepResult(step.Title, cmd, res))
	}

	if len(pack.SuccessCriteria) > 0 {
		cmd := combinedEchoCommand("=== Success Criteria Verification ===", "[MET]", pack.SuccessCriteria, "All criteria verified.")
		res, err := box.Exec(ctx, cmd)
		if err != nil {
			return err
		}
		*steps = append(*steps, stepResult("Success Criteria Verification", cmd, res))
	}

	return nil
}

func (a *Adapter) finish(start time.Time, devboxID, devboxStatus string, steps []model.StepResult) model.ExecutionTrace {
	failed := 0
	for _, s := range steps {
		if !s.Success {
			failed++
		}
	}

	var status model.ExecStatus
	switch {
	case failed == 0:
		status = model.ExecSuccess
	case failed < len(steps):
		status = model.ExecPartialFailure
	default:
		status = model.ExecFailure
	}

	return model.ExecutionTrace{
		DevboxID:      devboxID,
		Status:        status,
		Steps:         steps,
		TotalDuration: time.Since(start).Milliseconds(),
		DevboxStatus:  devboxStatus,
	}
}

func stepResult(title, command string, res ExecResult) model.StepResult {
	return model.StepResult{
		StepTitle: title,
		Command:   command,
		Stdout:    res.Stdout,
		Stderr:    res.Stderr,
		ExitCode:  res.ExitCode,
		Success:   res.ExitCode == 0,
	}
}

// buildShellCommand renders one plan step as a chain of echo commands.
// Details are single-quote escaped; titles pass through unmodified.
func buildShellCommand(step model.PackStep) string {
	lines := []string{
		fmt.Sprintf(`echo "=== Step: %s ==="`, step.Title),
		fmt.Sprintf(`echo "Details: %s"`, escapeSingleQuotes(step.Details)),
	}
	for _, cp := range step.Checkpoints {
		lines = append(lines, fmt.Sprintf(`echo "  [checkpoint] %s"`, cp))
	}
	lines = append(lines, fmt.Sprintf(`echo "Step '%s' completed."`, step.Title))
	return strings.Join(lines, " && ")
}

// combinedEchoCommand renders a header, one tagged echo per item, and a
// trailing confirmation line, joined into a single command.
func combinedEchoCommand(header, tag string, items []string, footer string) string {
	parts := make([]string, 0, len(items)+2)
	parts = append(parts, fmt.Sprintf(`echo "%s"`, header))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf(`echo "  %s %s"`, tag, escapeSingleQuotes(item)))
	}
	parts = append(parts, fmt.Sprintf(`echo "%s"`, footer))
	return strings.Join(parts, " && ")
}

// escapeSingleQuotes makes s safe for interpolation into a
// single-quoted shell string by replacing ' with '\''.
func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}
