package plan_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relay-labs/relay/internal/model"
	"github.com/relay-labs/relay/internal/plan"
)

func ptr[T any](v T) *T { return &v }

func TestGeneratePack_BaselineShape(t *testing.T) {
	pack := plan.GeneratePack("Nova", model.RobotModeCalm, model.SafetyBalanced, "Deliver package", nil, 50)

	assert.Equal(t, "Nova will Deliver package", pack.Goal)
	assert.Len(t, pack.Steps, 4)
	assert.Len(t, pack.SafetyChecks, 3)
	assert.Len(t, pack.Assumptions, 3)
	assert.Len(t, pack.SuccessCriteria, 3)
	assert.Equal(t, []string{"Standard operating constraints apply"}, pack.Constraints)
}

func TestGeneratePack_SafetyCheckMatrix(t *testing.T) {
	cases := []struct {
		safety  model.SafetyLevel
		urgency int
		want    int
	}{
		{model.SafetyBalanced, 50, 3},
		{model.SafetyBalanced, 70, 3}, // threshold is strictly greater-than
		{model.SafetyBalanced, 71, 4},
		{model.SafetyBalanced, 80, 4},
		{model.SafetyConservative, 50, 5},
		{model.SafetyConservative, 80, 6},
		{model.SafetyProactive, 50, 3},
		{model.SafetyProactive, 100, 4},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_urgency%d", tc.safety, tc.urgency), func(t *testing.T) {
			pack := plan.GeneratePack("Nova", model.RobotModeCalm, tc.safety, "go", nil, tc.urgency)
			assert.Len(t, pack.SafetyChecks, tc.want)
			// The 3 baseline checks always lead.
			assert.Equal(t, "Check for obstacles in path", pack.SafetyChecks[0])
			assert.Equal(t, "Verify no people in immediate danger zone", pack.SafetyChecks[1])
			assert.Equal(t, "Confirm environment is safe to proceed", pack.SafetyChecks[2])
		})
	}
}

func TestGeneratePack_ContextInsertsStepAtIndexOne(t *testing.T) {
	ctx := "Avoid the wet floor area"
	pack := plan.GeneratePack("Nova", model.RobotModeCalm, model.SafetyBalanced, "Deliver package", &ctx, 50)

	require.Len(t, pack.Steps, 5)
	assert.Equal(t, "Initialize and assess environment", pack.Steps[0].Title)
	assert.Equal(t, "Apply constraints", pack.Steps[1].Title)
	assert.Contains(t, pack.Steps[1].Details, ctx)
	assert.Equal(t, "Plan optimal route", pack.Steps[2].Title)
	assert.Equal(t, []string{ctx}, pack.Constraints)
}

func TestGeneratePack_EmptyContextIsIgnored(t *testing.T) {
	pack := plan.GeneratePack("Nova", model.RobotModeCalm, model.SafetyBalanced, "go", ptr(""), 50)
	assert.Len(t, pack.Steps, 4)
}

func TestGeneratePack_EmptyCommandStillWellFormed(t *testing.T) {
	pack := plan.GeneratePack("Nova", model.RobotModeCalm, model.SafetyBalanced, "", nil, 0)
	assert.Len(t, pack.Steps, 4)
	assert.Len(t, pack.SafetyChecks, 3)
	assert.NotEmpty(t, pack.Goal)
}

func TestGeneratePack_Deterministic(t *testing.T) {
	a := plan.GeneratePack("Nova", model.RobotModeDirect, model.SafetyConservative, "Patrol the lobby", ptr("stay quiet"), 90)
	b := plan.GeneratePack("Nova", model.RobotModeDirect, model.SafetyConservative, "Patrol the lobby", ptr("stay quiet"), 90)
	assert.Equal(t, a, b)
}
