package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/relay-labs/relay/internal/model"
)

const runColumns = `id, robot_id, command, context, urgency, status, instruction_pack,
	video_url, ai_summary, user_rating, user_feedback, improved_plan,
	devbox_id, runloop_output, created_at`

// scannable covers pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (model.Run, error) {
	var r model.Run
	err := row.Scan(
		&r.ID, &r.RobotID, &r.Command, &r.Context, &r.Urgency, &r.Status,
		&r.InstructionPack, &r.VideoURL, &r.AISummary, &r.UserRating,
		&r.UserFeedback, &r.ImprovedPlan, &r.DevboxID, &r.RunloopOutput,
		&r.CreatedAt,
	)
	return r, err
}

// CreateRun inserts a new run in the queued state and returns it.
// The instruction pack is attached by StartRun before the run becomes
// visible as anything other than queued.
func (db *DB) CreateRun(ctx context.Context, req model.CreateRunRequest) (model.Run, error) {
	run := model.Run{
		ID:        uuid.New(),
		RobotID:   req.RobotID,
		Command:   req.Command,
		Context:   req.Context,
		Urgency:   req.UrgencyOrDefault(),
		Status:    model.RunStatusQueued,
		CreatedAt: time.Now().UTC(),
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO runs (id, robot_id, command, context, urgency, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.RobotID, run.Command, run.Context, run.Urgency,
		string(run.Status), run.CreatedAt,
	)
	if err != nil {
		return model.Run{}, fmt.Errorf("storage: create run: %w", err)
	}
	return run, nil
}

// StartRun attaches the instruction pack and moves the run from queued to
// processing in a single statement, so a run with a pack is never
// observable in the queued state.
func (db *DB) StartRun(ctx context.Context, id uuid.UUID, pack model.InstructionPack) (model.Run, error) {
	row := db.pool.QueryRow(ctx,
		`UPDATE runs SET instruction_pack = $2, status = $3
		 WHERE id = $1 AND status = $4
		 RETURNING `+runColumns,
		id, pack, string(model.RunStatusProcessing), string(model.RunStatusQueued),
	)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Run{}, fmt.Errorf("%w: %s (not queued)", ErrRunNotFound, id)
		}
		return model.Run{}, fmt.Errorf("storage: start run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (model.Run, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return model.Run{}, fmt.Errorf("storage: get run: %w", err)
	}
	return run, nil
}

// ListRuns returns all runs, newest first.
func (db *DB) ListRuns(ctx context.Context) ([]model.Run, error) {
	return db.listRuns(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC`)
}

// ListRunsByRobot returns the runs owned by one robot, newest first.
func (db *DB) ListRunsByRobot(ctx context.Context, robotID uuid.UUID) ([]model.Run, error) {
	return db.listRuns(ctx,
		`SELECT `+runColumns+` FROM runs WHERE robot_id = $1 ORDER BY created_at DESC`, robotID)
}

func (db *DB) listRuns(ctx context.Context, query string, args ...any) ([]model.Run, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// FinishRunExecution records the outcome of a sandbox execution: terminal
// status, devbox ID, raw trace, and the synthesized summary. Last writer
// wins; there is no optimistic concurrency check.
func (db *DB) FinishRunExecution(ctx context.Context, id uuid.UUID, status model.RunStatus,
	devboxID *string, trace model.ExecutionTrace, summary model.RunSummary) error {

	tag, err := db.pool.Exec(ctx,
		`UPDATE runs SET status = $2, devbox_id = $3, runloop_output = $4, ai_summary = $5
		 WHERE id = $1`,
		id, string(status), devboxID, trace, summary,
	)
	if err != nil {
		return fmt.Errorf("storage: finish run execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// FailRunExecution marks a run failed with an error trace. Used when the
// execution adapter itself errors before producing a result.
func (db *DB) FailRunExecution(ctx context.Context, id uuid.UUID, trace model.ExecutionTrace) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE runs SET status = $2, runloop_output = $3 WHERE id = $1`,
		id, string(model.RunStatusFailed), trace,
	)
	if err != nil {
		return fmt.Errorf("storage: fail run execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// CompleteRunManual force-transitions a run to complete with a synthesized
// summary, bypassing the sandbox. Used for simulated runs.
func (db *DB) CompleteRunManual(ctx context.Context, id uuid.UUID, videoURL *string, summary model.RunSummary) (model.Run, error) {
	row := db.pool.QueryRow(ctx,
		`UPDATE runs SET status = $2, video_url = $3, ai_summary = $4
		 WHERE id = $1
		 RETURNING `+runColumns,
		id, string(model.RunStatusComplete), videoURL, summary,
	)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return model.Run{}, fmt.Errorf("storage: complete run: %w", err)
	}
	return run, nil
}

// SetRunFeedback attaches a rating, optional feedback text, and the
// generated improved plan. Resubmission overwrites; no history is kept.
func (db *DB) SetRunFeedback(ctx context.Context, id uuid.UUID, rating model.Rating,
	feedback *string, plan model.ImprovedPlan) (model.Run, error) {

	row := db.pool.QueryRow(ctx,
		`UPDATE runs SET user_rating = $2, user_feedback = $3, improved_plan = $4
		 WHERE id = $1
		 RETURNING `+runColumns,
		id, string(rating), feedback, plan,
	)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return model.Run{}, fmt.Errorf("storage: set run feedback: %w", err)
	}
	return run, nil
}

// FailStaleProcessingRuns marks every run still in processing as failed
// with the given trace. Called once at startup: a run left in processing
// lost its executor when the previous process exited.
func (db *DB) FailStaleProcessingRuns(ctx context.Context, trace model.ExecutionTrace) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE runs SET status = $1, runloop_output = $2 WHERE status = $3`,
		string(model.RunStatusFailed), trace, string(model.RunStatusProcessing),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: fail stale processing runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
