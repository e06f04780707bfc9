package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"supportdesk/internal/entities"
)

func TestStubDecisionService(t *testing.T) {
	s := NewStubDecisionService()

	decide := func(text string) entities.DecisionResult {
		result, err := s.Decide(context.Background(), entities.DecisionContext{
			Inbound: entities.UnifiedInboundMessage{Text: text},
		})
		require.NoError(t, err)
		return result
	}

	require.Equal(t, entities.StepAskClarification, decide("").StepKind)
	require.Equal(t, entities.StepAskClarification, decide("   ").StepKind)
	require.Equal(t, entities.StepHandoff, decide("I want a human Operator").StepKind)

	answer := decide("where is my parcel")
	require.Equal(t, entities.StepAnswer, answer.StepKind)
	require.Contains(t, answer.ProposedText, "where is my parcel")
}
