package usecases

import (
	"context"
	"strings"

	"supportdesk/internal/entities"
)

// StubDecisionService is the deterministic fallback used when no model
// API key is configured, and in tests. Empty text asks for
// clarification, an explicit operator request hands off, everything
// else is echoed back.
type StubDecisionService struct{}

func NewStubDecisionService() *StubDecisionService { return &StubDecisionService{} }

func (s *StubDecisionService) Decide(_ context.Context, dc entities.DecisionContext) (entities.DecisionResult, error) {
	text := strings.TrimSpace(dc.Inbound.Text)
	switch {
	case text == "":
		return entities.DecisionResult{
			StepKind:              entities.StepAskClarification,
			Confidence:            0.9,
			ClarificationQuestion: "Could you describe your question in a bit more detail?",
		}, nil
	case strings.Contains(strings.ToLower(text), "operator"):
		return entities.DecisionResult{StepKind: entities.StepHandoff, Confidence: 1}, nil
	default:
		return entities.DecisionResult{
			StepKind:     entities.StepAnswer,
			Confidence:   0.5,
			ProposedText: "You said: " + text,
		}, nil
	}
}
