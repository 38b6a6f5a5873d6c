// Package model defines the core domain types for Relay.
//
// All types correspond directly to database tables and API payloads.
// Types use strong typing (UUIDs, time.Time, enums) and avoid
// interface{} wherever possible.
package model

import (
	"time"

	"github.com/google/uuid"
)

// RobotMode is the operating temperament of a robot profile.
type RobotMode string

const (
	RobotModeCalm         RobotMode = "calm"
	RobotModeDirect       RobotMode = "direct"
	RobotModeProfessional RobotMode = "professional"
)

// ValidRobotMode reports whether m is a known operating mode.
func ValidRobotMode(m RobotMode) bool {
	switch m {
	case RobotModeCalm, RobotModeDirect, RobotModeProfessional:
		return true
	}
	return false
}

// SafetyLevel controls how cautiously a robot plans and executes.
type SafetyLevel string

const (
	SafetyConservative SafetyLevel = "conservative"
	SafetyBalanced     SafetyLevel = "balanced"
	SafetyProactive    SafetyLevel = "proactive"
)

// ValidSafetyLevel reports whether s is a known safety level.
func ValidSafetyLevel(s SafetyLevel) bool {
	switch s {
	case SafetyConservative, SafetyBalanced, SafetyProactive:
		return true
	}
	return false
}

// RobotProfile is a user-created virtual robot. Runs and journal entries
// are owned by exactly one profile; deleting a profile cascades to both.
type RobotProfile struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Mode        RobotMode   `json:"mode"`
	SafetyLevel SafetyLevel `json:"safety_level"`
	AvatarColor string      `json:"avatar_color"`
	CreatedAt   time.Time   `json:"created_at"`
}
