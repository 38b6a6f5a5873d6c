// Package plan generates instruction packs, run summaries, and improved
// plans. Everything here is deterministic template expansion over the
// inputs; no model inference is involved, despite the "AI" labels the
// console UI puts on the output.
package plan

import (
	"fmt"

	"github.com/relay-labs/relay/internal/model"
)

// Baseline safety checks present in every instruction pack.
var baseSafetyChecks = []string{
	"Check for obstacles in path",
	"Verify no people in immediate danger zone",
	"Confirm environment is safe to proceed",
}

// Extra checks appended for conservative-mode robots.
var conservativeChecks = []string{
	"Request user confirmation before each major step",
	"Double-check all measurements and distances",
}

// Check appended when urgency exceeds the high-urgency threshold.
const urgencyCheck = "Prioritize speed while maintaining minimum safety standards"

// HighUrgencyThreshold is the urgency value above which the urgency safety
// check is added to the pack.
const HighUrgencyThreshold = 70

// GeneratePack expands a robot's identity, command, and settings into a
// structured execution plan.
//
// The pack always contains four baseline steps (assess, plan route,
// execute, verify). A non-nil context inserts an "Apply constraints" step
// at index 1. Safety checks start from three fixed items, gain two more
// for conservative robots, and one more when urgency > HighUrgencyThreshold.
// All inputs are treated as valid; an empty command produces a degenerate
// but well-formed pack.
func GeneratePack(robotName string, mode model.RobotMode, safety model.SafetyLevel,
	command string, context *string, urgency int) model.InstructionPack {

	safetyChecks := make([]string, 0, len(baseSafetyChecks)+3)
	safetyChecks = append(safetyChecks, baseSafetyChecks...)
	if safety == model.SafetyConservative {
		safetyChecks = append(safetyChecks, conservativeChecks...)
	}
	if urgency > HighUrgencyThreshold {
		safetyChecks = append(safetyChecks, urgencyCheck)
	}

	steps := []model.PackStep{
		{
			Title:       "Initialize and assess environment",
			Details:     "Scan surroundings, identify obstacles, map the area",
			Checkpoints: []string{"Environment scanned", "Map generated"},
		},
		{
			Title:       "Plan optimal route",
			Details:     fmt.Sprintf("Calculate the best path to accomplish: %s", command),
			Checkpoints: []string{"Route calculated", "Alternatives identified"},
		},
		{
			Title:       "Execute primary task",
			Details:     fmt.Sprintf("Carry out the main objective: %s", command),
			Checkpoints: []string{"Task in progress", "Monitoring for issues"},
		},
		{
			Title:       "Verify completion",
			Details:     "Confirm task was completed successfully and safely",
			Checkpoints: []string{"Task verified", "Area secured"},
		},
	}

	constraints := []string{"Standard operating constraints apply"}
	if context != nil && *context != "" {
		constraintStep := model.PackStep{
			Title:       "Apply constraints",
			Details:     fmt.Sprintf("Consider additional context: %s", *context),
			Checkpoints: []string{"Constraints reviewed", "Adjustments made"},
		}
		steps = append(steps[:1], append([]model.PackStep{constraintStep}, steps[1:]...)...)
		constraints = []string{*context}
	}

	return model.InstructionPack{
		Goal: fmt.Sprintf("%s will %s", robotName, command),
		Assumptions: []string{
			fmt.Sprintf("%s has sufficient battery for the task", robotName),
			"Environment is as described",
			fmt.Sprintf("Operating in %s mode with %s safety level", mode, safety),
		},
		Steps:        steps,
		Constraints:  constraints,
		SafetyChecks: safetyChecks,
		SuccessCriteria: []string{
			"Task completed without incidents",
			"No safety violations detected",
			"Environment left in acceptable state",
		},
	}
}
