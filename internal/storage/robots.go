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

const robotColumns = `id, name, mode, safety_level, avatar_color, created_at`

// CreateRobot inserts a new robot profile and returns it.
func (db *DB) CreateRobot(ctx context.Context, req model.CreateRobotRequest) (model.RobotProfile, error) {
	robot := model.RobotProfile{
		ID:          uuid.New(),
		Name:        req.Name,
		Mode:        req.Mode,
		SafetyLevel: req.SafetyLevel,
		AvatarColor: req.AvatarColor,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO robot_profiles (id, name, mode, safety_level, avatar_color, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		robot.ID, robot.Name, string(robot.Mode), string(robot.SafetyLevel),
		robot.AvatarColor, robot.CreatedAt,
	)
	if err != nil {
		return model.RobotProfile{}, fmt.Errorf("storage: create robot: %w", err)
	}
	return robot, nil
}

// GetRobot retrieves a robot profile by ID.
func (db *DB) GetRobot(ctx context.Context, id uuid.UUID) (model.RobotProfile, error) {
	var r model.RobotProfile
	err := db.pool.QueryRow(ctx,
		`SELECT `+robotColumns+` FROM robot_profiles WHERE id = $1`, id,
	).Scan(&r.ID, &r.Name, &r.Mode, &r.SafetyLevel, &r.AvatarColor, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RobotProfile{}, fmt.Errorf("%w: %s", ErrRobotNotFound, id)
		}
		return model.RobotProfile{}, fmt.Errorf("storage: get robot: %w", err)
	}
	return r, nil
}

// ListRobots returns all robot profiles, newest first.
func (db *DB) ListRobots(ctx context.Context) ([]model.RobotProfile, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+robotColumns+` FROM robot_profiles ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list robots: %w", err)
	}
	defer rows.Close()

	var robots []model.RobotProfile
	for rows.Next() {
		var r model.RobotProfile
		if err := rows.Scan(&r.ID, &r.Name, &r.Mode, &r.SafetyLevel, &r.AvatarColor, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan robot: %w", err)
		}
		robots = append(robots, r)
	}
	return robots, rows.Err()
}

// UpdateRobot applies the non-nil fields of req to a robot profile and
// returns the updated row.
func (db *DB) UpdateRobot(ctx context.Context, id uuid.UUID, req model.UpdateRobotRequest) (model.RobotProfile, error) {
	var r model.RobotProfile
	err := db.pool.QueryRow(ctx,
		`UPDATE robot_profiles SET
			name = COALESCE($2, name),
			mode = COALESCE($3, mode),
			safety_level = COALESCE($4, safety_level),
			avatar_color = COALESCE($5, avatar_color)
		 WHERE id = $1
		 RETURNING `+robotColumns,
		id, req.Name, (*string)(req.Mode), (*string)(req.SafetyLevel), req.AvatarColor,
	).Scan(&r.ID, &r.Name, &r.Mode, &r.SafetyLevel, &r.AvatarColor, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RobotProfile{}, fmt.Errorf("%w: %s", ErrRobotNotFound, id)
		}
		return model.RobotProfile{}, fmt.Errorf("storage: update robot: %w", err)
	}
	return r, nil
}
