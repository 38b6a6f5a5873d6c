package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Field length limits for request payloads. These keep caller-controlled
// text out of the instruction-pack templates and Postgres TEXT columns at
// sizes the sandbox echo commands can actually carry.
const (
	MaxNameLen     = 100
	MaxCommandLen  = 2000
	MaxContextLen  = 4000
	MaxFeedbackLen = 4000
	MaxTitleLen    = 200
	MaxMessageLen  = 16 * 1024 // 16 KB
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Postgres string `json:"postgres"`
	Uptime   int64  `json:"uptime_seconds"`
}

// CreateRobotRequest is the request body for POST /api/robot/create.
// Mode, SafetyLevel, and AvatarColor fall back to profile defaults
// when omitted.
type CreateRobotRequest struct {
	Name        string      `json:"name"`
	Mode        RobotMode   `json:"mode,omitempty"`
	SafetyLevel SafetyLevel `json:"safety_level,omitempty"`
	AvatarColor string      `json:"avatar_color,omitempty"`
}

// Validate checks required fields and enum values, applying defaults in place.
func (r *CreateRobotRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(r.Name) > MaxNameLen {
		return fmt.Errorf("name exceeds maximum length of %d characters", MaxNameLen)
	}
	if r.Mode == "" {
		r.Mode = RobotModeCalm
	}
	if !ValidRobotMode(r.Mode) {
		return fmt.Errorf("mode must be one of calm, direct, professional (got %q)", r.Mode)
	}
	if r.SafetyLevel == "" {
		r.SafetyLevel = SafetyBalanced
	}
	if !ValidSafetyLevel(r.SafetyLevel) {
		return fmt.Errorf("safety_level must be one of conservative, balanced, proactive (got %q)", r.SafetyLevel)
	}
	if r.AvatarColor == "" {
		r.AvatarColor = "#e879a0"
	}
	return nil
}

// UpdateRobotRequest is the request body for PATCH /api/robots/{id}.
// Nil fields are left unchanged.
type UpdateRobotRequest struct {
	Name        *string      `json:"name,omitempty"`
	Mode        *RobotMode   `json:"mode,omitempty"`
	SafetyLevel *SafetyLevel `json:"safety_level,omitempty"`
	AvatarColor *string      `json:"avatar_color,omitempty"`
}

// Validate checks that any provided fields are well formed.
func (r *UpdateRobotRequest) Validate() error {
	if r.Name != nil && (*r.Name == "" || len(*r.Name) > MaxNameLen) {
		return fmt.Errorf("name must be 1-%d characters", MaxNameLen)
	}
	if r.Mode != nil && !ValidRobotMode(*r.Mode) {
		return fmt.Errorf("mode must be one of calm, direct, professional (got %q)", *r.Mode)
	}
	if r.SafetyLevel != nil && !ValidSafetyLevel(*r.SafetyLevel) {
		return fmt.Errorf("safety_level must be one of conservative, balanced, proactive (got %q)", *r.SafetyLevel)
	}
	return nil
}

// CreateRunRequest is the request body for POST /api/run/create.
type CreateRunRequest struct {
	RobotID uuid.UUID `json:"robot_id"`
	Command string    `json:"command"`
	Context *string   `json:"context,omitempty"`
	Urgency *int      `json:"urgency,omitempty"`
}

// DefaultUrgency is applied when a run is created without an urgency value.
const DefaultUrgency = 50

// Validate checks required fields and ranges.
func (r *CreateRunRequest) Validate() error {
	if r.RobotID == uuid.Nil {
		return fmt.Errorf("robot_id is required")
	}
	if r.Command == "" {
		return fmt.Errorf("command is required")
	}
	if len(r.Command) > MaxCommandLen {
		return fmt.Errorf("command exceeds maximum length of %d characters", MaxCommandLen)
	}
	if r.Context != nil && len(*r.Context) > MaxContextLen {
		return fmt.Errorf("context exceeds maximum length of %d characters", MaxContextLen)
	}
	if r.Urgency != nil && (*r.Urgency < 0 || *r.Urgency > 100) {
		return fmt.Errorf("urgency must be between 0 and 100 (got %d)", *r.Urgency)
	}
	return nil
}

// UrgencyOrDefault returns the requested urgency, or DefaultUrgency when unset.
func (r *CreateRunRequest) UrgencyOrDefault() int {
	if r.Urgency == nil {
		return DefaultUrgency
	}
	return *r.Urgency
}

// CompleteRunRequest is the request body for POST /api/run/{id}/complete,
// the manual terminal transition that bypasses the sandbox.
type CompleteRunRequest struct {
	VideoURL *string `json:"video_url,omitempty"`
	RunNotes string  `json:"run_notes,omitempty"`
}

// FeedbackRequest is the request body for POST /api/run/{id}/feedback.
type FeedbackRequest struct {
	Rating   Rating  `json:"rating"`
	Feedback *string `json:"feedback,omitempty"`
}

// Validate checks that a rating is present and known.
func (r *FeedbackRequest) Validate() error {
	if r.Rating == "" {
		return fmt.Errorf("rating is required")
	}
	if !ValidRating(r.Rating) {
		return fmt.Errorf("rating must be one of worked, needs_improvement, not_acceptable (got %q)", r.Rating)
	}
	if r.Feedback != nil && len(*r.Feedback) > MaxFeedbackLen {
		return fmt.Errorf("feedback exceeds maximum length of %d characters", MaxFeedbackLen)
	}
	return nil
}

// CreateJournalEntryRequest is the request body for POST /api/journal.
type CreateJournalEntryRequest struct {
	RobotID      uuid.UUID `json:"robot_id"`
	Title        string    `json:"title"`
	Mood         Mood      `json:"mood,omitempty"`
	Highlights   []string  `json:"highlights,omitempty"`
	ActionsTaken []string  `json:"actions_taken,omitempty"`
	Suggestions  []string  `json:"suggestions,omitempty"`
	Content      *string   `json:"content,omitempty"`
}

// Validate checks required fields, applying defaults in place.
func (r *CreateJournalEntryRequest) Validate() error {
	if r.RobotID == uuid.Nil {
		return fmt.Errorf("robot_id is required")
	}
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(r.Title) > MaxTitleLen {
		return fmt.Errorf("title exceeds maximum length of %d characters", MaxTitleLen)
	}
	if r.Mood == "" {
		r.Mood = MoodNeutral
	}
	return nil
}

// CreateConversationRequest is the request body for POST /api/conversations.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// PostMessageRequest is the request body for
// POST /api/conversations/{id}/messages.
type PostMessageRequest struct {
	Content string `json:"content"`
}

// Validate checks that the message is non-empty and within limits.
func (r *PostMessageRequest) Validate() error {
	if r.Content == "" {
		return fmt.Errorf("content is required")
	}
	if len(r.Content) > MaxMessageLen {
		return fmt.Errorf("content exceeds maximum length of %d bytes", MaxMessageLen)
	}
	return nil
}
