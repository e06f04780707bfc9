package usecases

import (
	"context"
	"fmt"

	"supportdesk/internal/entities"
	"supportdesk/internal/interfaces"
)

// StepDispatcher routes a decision to the handler registered for its
// step kind. Registration happens once at startup; an unregistered kind
// at dispatch time is a programming error surfaced as an error, not a
// panic, because the kind comes from an external model response.
type StepDispatcher struct {
	handlers map[entities.StepKind]interfaces.StepHandler
}

func NewStepDispatcher(handlers ...interfaces.StepHandler) *StepDispatcher {
	d := &StepDispatcher{handlers: make(map[entities.StepKind]interfaces.StepHandler)}
	for _, h := range handlers {
		if _, dup := d.handlers[h.StepKind()]; dup {
			panic(fmt.Sprintf("step handler already registered for kind %q", h.StepKind()))
		}
		d.handlers[h.StepKind()] = h
	}
	return d
}

func (d *StepDispatcher) Dispatch(ctx context.Context, dc entities.DecisionContext, decision entities.DecisionResult) (entities.ReplyIntent, error) {
	h, ok := d.handlers[decision.StepKind]
	if !ok {
		return nil, fmt.Errorf("no step handler for kind %q", decision.StepKind)
	}
	return h.Handle(ctx, dc, decision)
}

// AnswerStep turns a direct answer decision into a plain text reply.
type AnswerStep struct{}

func NewAnswerStep() *AnswerStep { return &AnswerStep{} }

func (s *AnswerStep) StepKind() entities.StepKind { return entities.StepAnswer }

func (s *AnswerStep) Handle(_ context.Context, _ entities.DecisionContext, decision entities.DecisionResult) (entities.ReplyIntent, error) {
	if decision.ProposedText == "" {
		return nil, fmt.Errorf("answer decision carries no text")
	}
	return entities.TextIntent{Text: decision.ProposedText}, nil
}

// ClarificationStep asks the client a follow-up question.
type ClarificationStep struct{}

func NewClarificationStep() *ClarificationStep { return &ClarificationStep{} }

func (s *ClarificationStep) StepKind() entities.StepKind { return entities.StepAskClarification }

func (s *ClarificationStep) Handle(_ context.Context, _ entities.DecisionContext, decision entities.DecisionResult) (entities.ReplyIntent, error) {
	question := decision.ClarificationQuestion
	if question == "" {
		question = decision.ProposedText
	}
	if question == "" {
		return nil, fmt.Errorf("clarification decision carries no question")
	}
	return entities.TextIntent{Text: question}, nil
}

// HandoffStep escalates the conversation to a human operator.
type HandoffStep struct {
	notice string
}

func NewHandoffStep() *HandoffStep {
	return &HandoffStep{notice: "Forwarding your question to an operator, please hold on."}
}

func (s *HandoffStep) StepKind() entities.StepKind { return entities.StepHandoff }

func (s *HandoffStep) Handle(_ context.Context, _ entities.DecisionContext, _ entities.DecisionResult) (entities.ReplyIntent, error) {
	return entities.HandoffIntent{Message: s.notice}, nil
}
