package core

import (
	"fmt"

	"synthesis.io/tutor-backend/internal/store"
)

type turnPhase int

const (
	// phaseInstruct carries the tutor persona as an ordinary user turn; its
	// reply is discarded.
	phaseInstruct turnPhase = iota
	// phaseLive sends the student's message; its reply is the tutor turn.
	phaseLive
)

func (p turnPhase) String() string {
	switch p {
	case phaseInstruct:
		return "instruct"
	case phaseLive:
		return "live"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type turnStep struct {
	phase turnPhase
	text  string
}

// turnPlan is what gets sent to the model for one turn: the history the
// session opens with and the messages sent on it, in order. Exactly one
// step is phaseLive and it is always last.
type turnPlan struct {
	history []ModelTurn
	steps   []turnStep
}

func (p turnPlan) fresh() bool {
	return len(p.steps) > 0 && p.steps[0].phase == phaseInstruct
}

// planTurn picks between a fresh conversation (no prior context: seed the
// persona first) and a continuing one (replay the prior context, minus its
// last entry which is the live message itself).
func planTurn(student *store.Student, text string, prior []ContextTurn) turnPlan {
	live := turnStep{phase: phaseLive, text: text}

	if len(prior) == 0 {
		return turnPlan{
			steps: []turnStep{
				{phase: phaseInstruct, text: instructionPrompt(student)},
				live,
			},
		}
	}

	history := make([]ModelTurn, 0, len(prior)-1)
	for _, turn := range prior[:len(prior)-1] {
		history = append(history, ModelTurn{Role: modelRole(turn.Role), Text: turn.Content})
	}
	return turnPlan{history: history, steps: []turnStep{live}}
}

func modelRole(role string) string {
	if role == store.RoleStudent {
		return modelRoleUser
	}
	return modelRoleModel
}

func instructionPrompt(student *store.Student) string {
	grade := "school"
	if student.Grade != nil && *student.Grade != "" {
		grade = *student.Grade
	}
	persona := fmt.Sprintf("You are Synthesis Tutor 2.0, an AI tutor for a student named %s. "+
		"Your goal is to be helpful, supportive, and personalized in your teaching approach. "+
		"Keep your answers friendly and conversational for a student in grade %s. "+
		"Explain concepts clearly and provide interactive examples when possible.",
		student.Name, grade)
	return "Please respond to the student as if you are an AI tutor with these instructions: " + persona
}
