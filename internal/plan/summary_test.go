package plan_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relay-labs/relay/internal/model"
	"github.com/relay-labs/relay/internal/plan"
)

func TestGenerateRunSummary_Shape(t *testing.T) {
	s := plan.GenerateRunSummary("Nova", "Patrol the lobby", "")

	assert.Contains(t, s.RunSummary, "Nova")
	assert.Contains(t, s.RunSummary, "Patrol the lobby")
	assert.Len(t, s.WhatWentWell, 3)
	assert.Len(t, s.Issues, 2)
	assert.Len(t, s.NextRunSuggestions, 3)
	assert.NotEmpty(t, s.RiskFlags)
}

func TestGenerateRunSummary_RiskFlagKeywords(t *testing.T) {
	cases := []struct {
		command string
		want    []string
	}{
		{"Deliver a package to Room 204", []string{"Object handling safety"}},
		{"Carry boxes upstairs", []string{"Object handling safety"}},
		{"Greet people at the entrance", []string{"Human proximity awareness"}},
		{"Escort a person outside", []string{"Human proximity awareness", "Weather conditions"}},
		{"Patrol the outdoor lot", []string{"Weather conditions"}},
		{"Tidy the workshop", []string{"Standard operational risk"}},
	}
	for _, tc := range cases {
		s := plan.GenerateRunSummary("Nova", tc.command, "")
		assert.Equal(t, tc.want, s.RiskFlags, "command %q", tc.command)
	}
}

func TestGenerateImprovedPlan_Tiers(t *testing.T) {
	worked := plan.GenerateImprovedPlan("", model.RatingWorked)
	assert.Len(t, worked.RecommendedChanges, 1)
	assert.Contains(t, worked.UpdatedPlanNotes, "positive")

	needs := plan.GenerateImprovedPlan("", model.RatingNeedsImprovement)
	assert.Len(t, needs.RecommendedChanges, 2)
	assert.Contains(t, needs.UpdatedPlanNotes, "constructive")

	bad := plan.GenerateImprovedPlan("", model.RatingNotAcceptable)
	assert.Len(t, bad.RecommendedChanges, 3)
	assert.Contains(t, bad.UpdatedPlanNotes, "critical")
}

func TestGenerateImprovedPlan_FeedbackEchoed(t *testing.T) {
	p := plan.GenerateImprovedPlan("too slow", model.RatingNotAcceptable)

	require.Len(t, p.RecommendedChanges, 4)
	found := false
	for _, c := range p.RecommendedChanges {
		if strings.Contains(c, "too slow") {
			found = true
		}
	}
	assert.True(t, found, "feedback text should appear in recommended changes")
	assert.Contains(t, p.NextInstructionPackDelta[len(p.NextInstructionPackDelta)-1], "too slow")
}

func TestGenerateImprovedPlan_Deterministic(t *testing.T) {
	a := plan.GenerateImprovedPlan("be gentler", model.RatingNeedsImprovement)
	b := plan.GenerateImprovedPlan("be gentler", model.RatingNeedsImprovement)
	assert.Equal(t, a, b)
}
