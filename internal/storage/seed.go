package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/relay-labs/relay/internal/model"
)

// Seed populates an empty database with demo robots and journal entries so
// a fresh console has something to show. No-op when any robot exists.
func (db *DB) Seed(ctx context.Context) error {
	var count int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM robot_profiles`).Scan(&count); err != nil {
		return fmt.Errorf("storage: seed: count robots: %w", err)
	}
	if count > 0 {
		return nil
	}

	robots := []model.CreateRobotRequest{
		{Name: "Noah", Mode: model.RobotModeCalm, SafetyLevel: model.SafetyBalanced, AvatarColor: "#e879a0"},
		{Name: "Bolt", Mode: model.RobotModeDirect, SafetyLevel: model.SafetyProactive, AvatarColor: "#818cf8"},
		{Name: "Atlas", Mode: model.RobotModeProfessional, SafetyLevel: model.SafetyConservative, AvatarColor: "#67e8f9"},
	}

	var ids []uuid.UUID
	for _, r := range robots {
		robot, err := db.CreateRobot(ctx, r)
		if err != nil {
			return fmt.Errorf("storage: seed: %w", err)
		}
		ids = append(ids, robot.ID)
	}

	noah := ids[0]
	content := "A full week of deliveries without a single safety incident. The wet-floor detour on Tuesday added time but kept the run clean."
	entries := []model.CreateJournalEntryRequest{
		{
			RobotID: noah,
			Title:   "First week on delivery duty",
			Mood:    model.MoodPositive,
			Highlights: []string{
				"Completed every assigned delivery",
				"Avoided the wet floor area near the elevator",
			},
			ActionsTaken: []string{
				"Delivered packages to Rooms 201-210",
				"Re-mapped the hallway intersection",
			},
			Suggestions: []string{
				"Calibrate proximity sensors before delivery runs",
				"Pre-map transition areas for smoother navigation",
			},
			Content: &content,
		},
		{
			RobotID: noah,
			Title:   "Sensor recalibration day",
			Mood:    model.MoodNeutral,
			Highlights: []string{
				"All sensors back within tolerance",
			},
			ActionsTaken: []string{
				"Ran the full diagnostic suite",
			},
			Suggestions: []string{
				"Schedule recalibration before long runs, not after",
			},
		},
	}
	for _, e := range entries {
		if _, err := db.CreateJournalEntry(ctx, e); err != nil {
			return fmt.Errorf("storage: seed: %w", err)
		}
	}

	db.logger.Info("seeded demo data", "robots", len(robots), "journal_entries", len(entries))
	return nil
}
