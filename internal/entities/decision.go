package entities

import "time"

// StepKind is the decision outcome for one conversation turn.
type StepKind string

const (
	StepAnswer           StepKind = "answer"
	StepAskClarification StepKind = "ask_clarification"
	StepHandoff          StepKind = "handoff"
)

// DecisionResult is what the decision service returns for a turn.
type DecisionResult struct {
	StepKind              StepKind          `json:"step_kind"`
	Confidence            float64           `json:"confidence"`
	Slots                 map[string]string `json:"slots,omitempty"`
	ProposedText          string            `json:"proposed_text,omitempty"`
	ClarificationQuestion string            `json:"clarification_question,omitempty"`
}

// DecisionContext is the input to the decision service and step handlers.
type DecisionContext struct {
	Conversation *Conversation
	Inbound      UnifiedInboundMessage
	Channel      ChannelContext
}

// DecisionAudit is one write-only audit row per decision outcome.
type DecisionAudit struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	StepKind       StepKind  `json:"step_kind"`
	Confidence     float64   `json:"confidence"`
	SlotsJSON      string    `json:"slots_json,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
