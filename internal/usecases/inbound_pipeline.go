package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"supportdesk/internal/entities"
	"supportdesk/internal/infrastructure"
	"supportdesk/internal/interfaces"
)

// ErrBadPayload marks inbound payloads the channel parser rejected;
// these are client errors, not processing failures.
var ErrBadPayload = errors.New("bad inbound payload")

// inboundConversationStore is the slice of the conversation repository
// the ingress pipeline writes through.
type inboundConversationStore interface {
	SaveInbound(ctx context.Context, tc entities.TenantContext, channelID int, clientID int64, inbound entities.UnifiedInboundMessage, enqueue func(tx pgx.Tx, conversation *entities.Conversation, message *entities.Message) error) (*entities.Conversation, *entities.Message, error)
	Close(ctx context.Context, tc entities.TenantContext, channelID int, clientID int64) error
}

// eventEnqueuer inserts an event inside the producer's transaction.
type eventEnqueuer interface {
	Insert(ctx context.Context, tx pgx.Tx, event *entities.Event) error
}

// InboundPipeline is the synchronous half of ingress: resolve the
// channel token, parse, dedup the client, persist the turn and enqueue
// its processing event in the same transaction. Everything slow or
// fallible beyond that happens asynchronously off the event.
type InboundPipeline struct {
	resolver      interfaces.ChannelResolver
	parsers       *ParserRegistry
	clients       *ClientService
	conversations inboundConversationStore
	events        eventEnqueuer
	metrics       *infrastructure.Metrics
	log           zerolog.Logger
}

func NewInboundPipeline(
	resolver interfaces.ChannelResolver,
	parsers *ParserRegistry,
	clients *ClientService,
	conversations inboundConversationStore,
	events eventEnqueuer,
	metrics *infrastructure.Metrics,
	log zerolog.Logger,
) *InboundPipeline {
	return &InboundPipeline{
		resolver:      resolver,
		parsers:       parsers,
		clients:       clients,
		conversations: conversations,
		events:        events,
		metrics:       metrics,
		log:           log,
	}
}

// Ingest processes one raw inbound payload for the channel the token
// resolves to. The returned event id is 0 for signals that enqueue
// nothing (chat closed).
func (p *InboundPipeline) Ingest(ctx context.Context, token string, raw []byte) (int64, error) {
	cc, err := p.resolver.ResolveToken(ctx, token)
	if err != nil {
		return 0, err
	}
	if p.metrics != nil {
		p.metrics.InboundMessages.WithLabelValues(string(cc.ChannelType)).Inc()
	}

	parser, err := p.parsers.Get(cc.ChannelType)
	if err != nil {
		return 0, err
	}
	result, err := parser.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if result.Message == nil {
		return 0, fmt.Errorf("%w: parser returned no message", ErrBadPayload)
	}

	tc := cc.Tenant()
	client, err := p.clients.GetOrCreate(ctx, tc, identifiersFrom(*result.Message))
	if err != nil {
		return 0, err
	}

	if result.Status == entities.ParseChatClosed {
		if err := p.conversations.Close(ctx, tc, cc.ChannelID, client.ID); err != nil {
			return 0, fmt.Errorf("close conversation: %w", err)
		}
		p.log.Info().Int("channel_id", cc.ChannelID).Int64("client_id", client.ID).Msg("chat closed")
		return 0, nil
	}

	var eventID int64
	conv, msg, err := p.conversations.SaveInbound(ctx, tc, cc.ChannelID, client.ID, *result.Message,
		func(tx pgx.Tx, conversation *entities.Conversation, message *entities.Message) error {
			payload, err := json.Marshal(entities.MessageEventPayload{
				TenantID:       tc.TenantID,
				ConversationID: conversation.ID,
				MessageID:      message.ID,
			})
			if err != nil {
				return fmt.Errorf("marshal event payload: %w", err)
			}
			event := &entities.Event{EventType: entities.EventUserMessage, Payload: payload}
			if err := p.events.Insert(ctx, tx, event); err != nil {
				return err
			}
			eventID = event.ID
			return nil
		})
	if err != nil {
		return 0, err
	}

	p.log.Info().
		Int64("event_id", eventID).
		Int64("conversation_id", conv.ID).
		Int64("message_id", msg.ID).
		Str("channel_type", string(cc.ChannelType)).
		Msg("inbound message accepted")
	return eventID, nil
}

func identifiersFrom(msg entities.UnifiedInboundMessage) entities.ClientIdentifiers {
	return entities.ClientIdentifiers{
		ChannelUserID: msg.ExternalUserID,
		Email:         msg.Email,
		Phone:         msg.Phone,
		DisplayName:   msg.DisplayName,
	}
}
