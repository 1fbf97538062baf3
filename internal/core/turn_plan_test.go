package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthesis.io/tutor-backend/internal/store"
)

func TestPlanTurn(t *testing.T) {
	grade := "7"
	student := &store.Student{Name: "Lin", Grade: &grade}

	fresh := planTurn(student, "hello", nil)
	assert.True(t, fresh.fresh())
	assert.Empty(t, fresh.history)
	require.Len(t, fresh.steps, 2)
	assert.Equal(t, phaseInstruct, fresh.steps[0].phase)
	assert.Equal(t, phaseLive, fresh.steps[1].phase)
	assert.Equal(t, "hello", fresh.steps[1].text)

	cont := planTurn(student, "and then?", []ContextTurn{
		{Role: "student", Content: "a"},
		{Role: "tutor", Content: "b"},
		{Role: "student", Content: "and then?"},
	})
	assert.False(t, cont.fresh())
	assert.Equal(t, []ModelTurn{{Role: "user", Text: "a"}, {Role: "model", Text: "b"}}, cont.history)
	require.Len(t, cont.steps, 1)
	assert.Equal(t, phaseLive, cont.steps[0].phase)
}

func TestInstructionPrompt_DefaultsGrade(t *testing.T) {
	prompt := instructionPrompt(&store.Student{Name: "Sam"})
	assert.Contains(t, prompt, "named Sam")
	assert.Contains(t, prompt, "grade school")
}

func TestTurnPhaseString(t *testing.T) {
	assert.Equal(t, "instruct", phaseInstruct.String())
	assert.Equal(t, "live", phaseLive.String())
	assert.Equal(t, "phase(9)", turnPhase(9).String())
}
