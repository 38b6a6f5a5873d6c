package model_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relay-labs/relay/internal/model"
)

// ptr is a convenience helper for pointer literals in test cases.
func ptr[T any](v T) *T { return &v }

// ---- CreateRobotRequest --------------------------------------------------

func TestCreateRobotRequest_HappyPath(t *testing.T) {
	req := model.CreateRobotRequest{Name: "Nova", Mode: model.RobotModeCalm, SafetyLevel: model.SafetyBalanced}
	assert.NoError(t, req.Validate())
}

func TestCreateRobotRequest_DefaultsApplied(t *testing.T) {
	req := model.CreateRobotRequest{Name: "Nova"}
	require.NoError(t, req.Validate())
	assert.Equal(t, model.RobotModeCalm, req.Mode)
	assert.Equal(t, model.SafetyBalanced, req.SafetyLevel)
	assert.Equal(t, "#e879a0", req.AvatarColor)
}

func TestCreateRobotRequest_MissingName(t *testing.T) {
	req := model.CreateRobotRequest{}
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestCreateRobotRequest_UnknownMode(t *testing.T) {
	req := model.CreateRobotRequest{Name: "Nova", Mode: "frantic"}
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
}

func TestCreateRobotRequest_NameOverMax(t *testing.T) {
	req := model.CreateRobotRequest{Name: strings.Repeat("x", model.MaxNameLen+1)}
	require.Error(t, req.Validate())
}

// ---- CreateRunRequest ----------------------------------------------------

func TestCreateRunRequest_HappyPath(t *testing.T) {
	req := model.CreateRunRequest{RobotID: uuid.New(), Command: "Deliver package", Urgency: ptr(80)}
	assert.NoError(t, req.Validate())
}

func TestCreateRunRequest_MissingRobotID(t *testing.T) {
	req := model.CreateRunRequest{Command: "Deliver package"}
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "robot_id")
}

func TestCreateRunRequest_MissingCommand(t *testing.T) {
	req := model.CreateRunRequest{RobotID: uuid.New()}
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command")
}

func TestCreateRunRequest_UrgencyBounds(t *testing.T) {
	for _, u := range []int{0, 50, 100} {
		req := model.CreateRunRequest{RobotID: uuid.New(), Command: "go", Urgency: ptr(u)}
		assert.NoError(t, req.Validate(), "urgency %d should be valid", u)
	}
	for _, u := range []int{-1, 101} {
		req := model.CreateRunRequest{RobotID: uuid.New(), Command: "go", Urgency: ptr(u)}
		assert.Error(t, req.Validate(), "urgency %d should be rejected", u)
	}
}

func TestCreateRunRequest_UrgencyDefault(t *testing.T) {
	req := model.CreateRunRequest{RobotID: uuid.New(), Command: "go"}
	assert.Equal(t, model.DefaultUrgency, req.UrgencyOrDefault())
	req.Urgency = ptr(80)
	assert.Equal(t, 80, req.UrgencyOrDefault())
}

// ---- FeedbackRequest -----------------------------------------------------

func TestFeedbackRequest_MissingRating(t *testing.T) {
	req := model.FeedbackRequest{}
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rating")
}

func TestFeedbackRequest_UnknownRating(t *testing.T) {
	req := model.FeedbackRequest{Rating: "meh"}
	require.Error(t, req.Validate())
}

func TestFeedbackRequest_AllRatingsValid(t *testing.T) {
	for _, r := range []model.Rating{model.RatingWorked, model.RatingNeedsImprovement, model.RatingNotAcceptable} {
		req := model.FeedbackRequest{Rating: r}
		assert.NoError(t, req.Validate())
	}
}

// ---- RunStatus -----------------------------------------------------------

func TestRunStatus_Terminal(t *testing.T) {
	assert.False(t, model.RunStatusQueued.Terminal())
	assert.False(t, model.RunStatusProcessing.Terminal())
	assert.True(t, model.RunStatusComplete.Terminal())
	assert.True(t, model.RunStatusFailed.Terminal())
}

// ---- CreateJournalEntryRequest -------------------------------------------

func TestCreateJournalEntryRequest_MoodDefault(t *testing.T) {
	req := model.CreateJournalEntryRequest{RobotID: uuid.New(), Title: "First week"}
	require.NoError(t, req.Validate())
	assert.Equal(t, model.MoodNeutral, req.Mood)
}
