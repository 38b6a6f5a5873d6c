package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DeleteRobotResult contains the count of rows deleted per table.
type DeleteRobotResult struct {
	Runs           int64 `json:"runs"`
	JournalEntries int64 `json:"journal_entries"`
	Robots         int64 `json:"robots"`
}

// DeleteRobot removes a robot profile and everything it owns in a single
// transaction. Runs and journal entries go first so no orphaned rows are
// ever queryable.
func (db *DB) DeleteRobot(ctx context.Context, id uuid.UUID) (DeleteRobotResult, error) {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return DeleteRobotResult{}, fmt.Errorf("storage: begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var result DeleteRobotResult

	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM robot_profiles WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return DeleteRobotResult{}, fmt.Errorf("storage: lookup robot: %w", err)
	}
	if !exists {
		return DeleteRobotResult{}, fmt.Errorf("%w: %s", ErrRobotNotFound, id)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM runs WHERE robot_id = $1`, id)
	if err != nil {
		return DeleteRobotResult{}, fmt.Errorf("storage: delete runs: %w", err)
	}
	result.Runs = tag.RowsAffected()

	tag, err = tx.Exec(ctx, `DELETE FROM journal_entries WHERE robot_id = $1`, id)
	if err != nil {
		return DeleteRobotResult{}, fmt.Errorf("storage: delete journal entries: %w", err)
	}
	result.JournalEntries = tag.RowsAffected()

	tag, err = tx.Exec(ctx, `DELETE FROM robot_profiles WHERE id = $1`, id)
	if err != nil {
		return DeleteRobotResult{}, fmt.Errorf("storage: delete robot: %w", err)
	}
	result.Robots = tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return DeleteRobotResult{}, fmt.Errorf("storage: commit delete tx: %w", err)
	}

	db.logger.Info("robot deleted",
		"robot_id", id,
		"runs", result.Runs,
		"journal_entries", result.JournalEntries)
	return result, nil
}
