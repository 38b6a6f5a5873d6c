package model

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a run.
//
// Transitions:
//
//	queued -> processing        (pack generated, execution dispatched)
//	processing -> complete      (sandbox finished: success or partial_failure)
//	processing -> failed        (sandbox finished: failure, or adapter error)
//	queued -> complete          (manual completion, bypasses the sandbox)
//
// complete and failed are terminal.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusProcessing RunStatus = "processing"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// Terminal reports whether s is a terminal run status.
func (s RunStatus) Terminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}

// Rating is the user's verdict on a completed run.
type Rating string

const (
	RatingWorked           Rating = "worked"
	RatingNeedsImprovement Rating = "needs_improvement"
	RatingNotAcceptable    Rating = "not_acceptable"
)

// ValidRating reports whether r is a known rating.
func ValidRating(r Rating) bool {
	switch r {
	case RatingWorked, RatingNeedsImprovement, RatingNotAcceptable:
		return true
	}
	return false
}

// Run is one user-issued command and its full lifecycle record.
//
// InstructionPack is always populated before Status leaves queued.
// AISummary is populated once Status reaches complete (or failed with a
// partial trace). UserRating and ImprovedPlan are only ever set by
// feedback submission.
type Run struct {
	ID              uuid.UUID        `json:"id"`
	RobotID         uuid.UUID        `json:"robot_id"`
	Command         string           `json:"command"`
	Context         *string          `json:"context,omitempty"`
	Urgency         int              `json:"urgency"`
	Status          RunStatus        `json:"status"`
	InstructionPack *InstructionPack `json:"instruction_pack,omitempty"`
	VideoURL        *string          `json:"video_url,omitempty"`
	AISummary       *RunSummary      `json:"ai_summary,omitempty"`
	UserRating      *Rating          `json:"user_rating,omitempty"`
	UserFeedback    *string          `json:"user_feedback,omitempty"`
	ImprovedPlan    *ImprovedPlan    `json:"improved_plan,omitempty"`
	DevboxID        *string          `json:"devbox_id,omitempty"`
	RunloopOutput   *ExecutionTrace  `json:"runloop_output,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// InstructionPack is the structured plan generated for a run before
// execution. Deterministic template expansion, not model output.
type InstructionPack struct {
	Goal            string     `json:"goal"`
	Assumptions     []string   `json:"assumptions"`
	Steps           []PackStep `json:"steps"`
	Constraints     []string   `json:"constraints"`
	SafetyChecks    []string   `json:"safety_checks"`
	SuccessCriteria []string   `json:"success_criteria"`
}

// PackStep is a single plan step with verification checkpoints.
type PackStep struct {
	Title       string   `json:"title"`
	Details     string   `json:"details"`
	Checkpoints []string `json:"checkpoints,omitempty"`
}

// RunSummary is the narrative attached to a run after it finishes.
type RunSummary struct {
	RunSummary         string   `json:"run_summary"`
	WhatWentWell       []string `json:"what_went_well"`
	Issues             []string `json:"issues"`
	RiskFlags          []string `json:"risk_flags"`
	NextRunSuggestions []string `json:"next_run_suggestions"`
}

// ImprovedPlan is the revision document generated when a user rates a run.
type ImprovedPlan struct {
	UpdatedPlanNotes         string   `json:"updated_plan_notes"`
	RecommendedChanges       []string `json:"recommended_changes"`
	NextInstructionPackDelta []string `json:"next_instruction_pack_delta"`
}

// ExecStatus is the aggregate outcome of a sandbox execution.
type ExecStatus string

const (
	ExecSuccess        ExecStatus = "success"
	ExecPartialFailure ExecStatus = "partial_failure"
	ExecFailure        ExecStatus = "failure"
)

// StepResult records one executed sandbox command.
type StepResult struct {
	StepTitle string `json:"step_title"`
	Command   string `json:"command"`
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	ExitCode  int    `json:"exit_code"`
	Success   bool   `json:"success"`
}

// ExecutionTrace is the raw step-by-step record of a sandbox execution,
// stored on the run as runloop_output.
type ExecutionTrace struct {
	DevboxID      string       `json:"devbox_id"`
	Status        ExecStatus   `json:"status"`
	Steps         []StepResult `json:"steps"`
	TotalDuration int64        `json:"total_duration_ms"`
	DevboxStatus  string       `json:"devbox_status"`
	Error         string       `json:"error,omitempty"`
}
