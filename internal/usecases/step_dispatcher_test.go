package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"supportdesk/internal/entities"
)

func testStepDispatcher() *StepDispatcher {
	return NewStepDispatcher(NewAnswerStep(), NewClarificationStep(), NewHandoffStep())
}

func TestStepDispatcherAnswer(t *testing.T) {
	d := testStepDispatcher()

	intent, err := d.Dispatch(context.Background(), entities.DecisionContext{}, entities.DecisionResult{
		StepKind:     entities.StepAnswer,
		ProposedText: "your order ships tomorrow",
	})
	require.NoError(t, err)
	require.Equal(t, "your order ships tomorrow", intent.ReplyText())

	_, err = d.Dispatch(context.Background(), entities.DecisionContext{}, entities.DecisionResult{
		StepKind: entities.StepAnswer,
	})
	require.Error(t, err)
}

func TestStepDispatcherClarification(t *testing.T) {
	d := testStepDispatcher()

	intent, err := d.Dispatch(context.Background(), entities.DecisionContext{}, entities.DecisionResult{
		StepKind:              entities.StepAskClarification,
		ClarificationQuestion: "which order do you mean?",
	})
	require.NoError(t, err)
	require.Equal(t, "which order do you mean?", intent.ReplyText())

	// Falls back to the proposed text when no explicit question came back.
	intent, err = d.Dispatch(context.Background(), entities.DecisionContext{}, entities.DecisionResult{
		StepKind:     entities.StepAskClarification,
		ProposedText: "could you clarify?",
	})
	require.NoError(t, err)
	require.Equal(t, "could you clarify?", intent.ReplyText())
}

func TestStepDispatcherHandoff(t *testing.T) {
	d := testStepDispatcher()

	intent, err := d.Dispatch(context.Background(), entities.DecisionContext{}, entities.DecisionResult{
		StepKind: entities.StepHandoff,
	})
	require.NoError(t, err)
	require.IsType(t, entities.HandoffIntent{}, intent)
	require.NotEmpty(t, intent.ReplyText())
}

func TestStepDispatcherUnknownKind(t *testing.T) {
	d := testStepDispatcher()

	_, err := d.Dispatch(context.Background(), entities.DecisionContext{}, entities.DecisionResult{
		StepKind: "escalate_to_mars",
	})
	require.Error(t, err)
}

func TestStepDispatcherDuplicateRegistrationPanics(t *testing.T) {
	require.Panics(t, func() {
		NewStepDispatcher(NewAnswerStep(), NewAnswerStep())
	})
}
