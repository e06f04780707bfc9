package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"supportdesk/internal/entities"
)

// operatorConversationStore is the slice of the conversation repository
// operator replies write through.
type operatorConversationStore interface {
	GetByID(ctx context.Context, tc entities.TenantContext, id int64) (*entities.Conversation, error)
	AppendOperatorMessage(ctx context.Context, tc entities.TenantContext, conversationID int64, content string, enqueue func(tx pgx.Tx, message *entities.Message) error) (*entities.Message, error)
}

// OperatorService records operator replies. Delivery is asynchronous:
// the reply is stored with an operator_message event in one transaction
// and a worker sends it out, so a channel outage never loses the reply.
type OperatorService struct {
	conversations operatorConversationStore
	events        eventEnqueuer
	log           zerolog.Logger
}

func NewOperatorService(conversations operatorConversationStore, events eventEnqueuer, log zerolog.Logger) *OperatorService {
	return &OperatorService{conversations: conversations, events: events, log: log}
}

// SendReply appends the operator message to the conversation and
// enqueues its delivery.
func (s *OperatorService) SendReply(ctx context.Context, tc entities.TenantContext, conversationID int64, content string) (*entities.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("reply content is empty")
	}

	conv, err := s.conversations.GetByID(ctx, tc, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %d not found", conversationID)
	}

	var eventID int64
	msg, err := s.conversations.AppendOperatorMessage(ctx, tc, conversationID, content,
		func(tx pgx.Tx, message *entities.Message) error {
			payload, err := json.Marshal(entities.MessageEventPayload{
				TenantID:       tc.TenantID,
				ConversationID: conversationID,
				MessageID:      message.ID,
			})
			if err != nil {
				return fmt.Errorf("marshal event payload: %w", err)
			}
			event := &entities.Event{EventType: entities.EventOperatorMessage, Payload: payload}
			if err := s.events.Insert(ctx, tx, event); err != nil {
				return err
			}
			eventID = event.ID
			return nil
		})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("event_id", eventID).
		Int64("conversation_id", conversationID).
		Int64("message_id", msg.ID).
		Msg("operator reply queued")
	return msg, nil
}
