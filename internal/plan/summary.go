package plan

import (
	"fmt"
	"strings"

	"github.com/relay-labs/relay/internal/model"
)

// GenerateRunSummary produces the fixed-shape narrative attached to a run
// after it finishes. When a sandbox execution actually ran, the orchestrator
// overwrites RunSummary, WhatWentWell, and Issues from the per-step
// outcomes; RiskFlags and NextRunSuggestions always come from here.
func GenerateRunSummary(robotName, command, runNotes string) model.RunSummary {
	_ = runNotes // carried for the manual-completion path; the template ignores it
	return model.RunSummary{
		RunSummary: fmt.Sprintf(
			"%s executed the task: %q. The run was completed with standard performance metrics. "+
				"Overall execution followed the planned instruction pack with minor adaptations to real-world conditions.",
			robotName, command),
		WhatWentWell: []string{
			"Navigation was smooth and efficient",
			"Safety protocols were followed correctly",
			"Task was completed within expected timeframe",
		},
		Issues: []string{
			"Minor hesitation at transition points",
			"Sensor recalibration needed during mid-run",
		},
		RiskFlags: riskFlags(command),
		NextRunSuggestions: []string{
			"Pre-map transition areas for smoother navigation",
			"Calibrate sensors before starting the run",
			"Consider adding waypoints for complex routes",
		},
	}
}

// riskFlags derives risk flags by keyword-matching the command text.
func riskFlags(command string) []string {
	var flags []string
	lower := strings.ToLower(command)
	if strings.Contains(lower, "deliver") || strings.Contains(lower, "carry") {
		flags = append(flags, "Object handling safety")
	}
	if strings.Contains(lower, "people") || strings.Contains(lower, "person") || strings.Contains(lower, "human") {
		flags = append(flags, "Human proximity awareness")
	}
	if strings.Contains(lower, "outside") || strings.Contains(lower, "outdoor") {
		flags = append(flags, "Weather conditions")
	}
	if len(flags) == 0 {
		flags = append(flags, "Standard operational risk")
	}
	return flags
}

// GenerateImprovedPlan maps a user rating (and optional free-text feedback)
// to a tiered revision document for the next run.
func GenerateImprovedPlan(feedback string, rating model.Rating) model.ImprovedPlan {
	var changes []string
	switch rating {
	case model.RatingNeedsImprovement:
		changes = append(changes,
			"Adjust timing parameters for smoother execution",
			"Add additional checkpoint verification steps")
	case model.RatingNotAcceptable:
		changes = append(changes,
			"Complete re-evaluation of approach needed",
			"Add extra safety checks at every step",
			"Reduce speed and increase caution levels")
	default:
		changes = append(changes, "Minor optimizations for efficiency")
	}

	if feedback != "" {
		changes = append(changes, fmt.Sprintf("Incorporate user feedback: %q", feedback))
	}

	delta := []string{
		"Updated environmental awareness parameters",
		"Refined decision-making thresholds",
	}
	if feedback != "" {
		delta = append(delta, fmt.Sprintf("Added learned preference: %s", feedback))
	}

	return model.ImprovedPlan{
		UpdatedPlanNotes: fmt.Sprintf(
			"Based on %s feedback, the plan has been updated to improve future runs.",
			feedbackTone(rating)),
		RecommendedChanges:       changes,
		NextInstructionPackDelta: delta,
	}
}

func feedbackTone(rating model.Rating) string {
	switch rating {
	case model.RatingWorked:
		return "positive"
	case model.RatingNeedsImprovement:
		return "constructive"
	default:
		return "critical"
	}
}
