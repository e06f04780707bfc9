package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"supportdesk/internal/entities"
	"supportdesk/internal/interfaces"
)

// tenantFinder resolves the tenant catalog row for an event payload.
type tenantFinder interface {
	GetByID(ctx context.Context, id int) (*entities.Tenant, error)
}

// conversationStore is the slice of the conversation repository the
// event handlers use.
type conversationStore interface {
	GetByID(ctx context.Context, tc entities.TenantContext, id int64) (*entities.Conversation, error)
	GetMessage(ctx context.Context, tc entities.TenantContext, id int64) (*entities.Message, error)
	SaveInteraction(ctx context.Context, tc entities.TenantContext, conversationID int64, decision entities.DecisionResult, intent entities.ReplyIntent) error
}

// channelFinder resolves the channel an event's conversation belongs to.
type channelFinder interface {
	GetByID(ctx context.Context, id int) (*entities.Channel, error)
}

// deliverer sends one outbound reply.
type deliverer interface {
	Deliver(ctx context.Context, out entities.OutboundMessage) error
}

// UserMessageHandler runs the full reply pipeline for one inbound
// message: restore tenant scope and the stored turn, decide, render the
// intent and deliver it, then record the interaction.
type UserMessageHandler struct {
	tenants       tenantFinder
	conversations conversationStore
	channels      channelFinder
	parsers       *ParserRegistry
	decider       interfaces.DecisionService
	steps         *StepDispatcher
	delivery      deliverer
	log           zerolog.Logger
}

func NewUserMessageHandler(
	tenants tenantFinder,
	conversations conversationStore,
	channels channelFinder,
	parsers *ParserRegistry,
	decider interfaces.DecisionService,
	steps *StepDispatcher,
	delivery deliverer,
	log zerolog.Logger,
) *UserMessageHandler {
	return &UserMessageHandler{
		tenants:       tenants,
		conversations: conversations,
		channels:      channels,
		parsers:       parsers,
		decider:       decider,
		steps:         steps,
		delivery:      delivery,
		log:           log,
	}
}

func (h *UserMessageHandler) Handle(ctx context.Context, event *entities.Event) error {
	scope, err := h.resolveScope(ctx, event)
	if err != nil {
		return err
	}
	if scope == nil {
		return nil
	}

	inbound := h.restoreInbound(scope)
	dc := entities.DecisionContext{
		Conversation: scope.conversation,
		Inbound:      inbound,
		Channel:      scope.channelContext,
	}

	decision, err := h.decider.Decide(ctx, dc)
	if err != nil {
		return fmt.Errorf("decide: %w", err)
	}

	intent, err := h.steps.Dispatch(ctx, dc, decision)
	if err != nil {
		return fmt.Errorf("dispatch step %q: %w", decision.StepKind, err)
	}

	if err := h.delivery.Deliver(ctx, entities.OutboundMessage{
		ChatID:  scope.conversation.ChatID,
		Intent:  intent,
		Channel: scope.channelContext,
	}); err != nil {
		return fmt.Errorf("deliver reply: %w", err)
	}

	if err := h.conversations.SaveInteraction(ctx, scope.tenantContext, scope.conversation.ID, decision, intent); err != nil {
		return fmt.Errorf("save interaction: %w", err)
	}

	h.log.Info().
		Int64("event_id", event.ID).
		Int64("conversation_id", scope.conversation.ID).
		Str("step_kind", string(decision.StepKind)).
		Float64("confidence", decision.Confidence).
		Msg("processed user message")
	return nil
}

// restoreInbound rebuilds the unified message from the stored raw
// payload. Parsing is pure, so re-parsing yields the same message the
// producer saw; when the raw payload is missing or no longer parses,
// the stored content is enough to decide on.
func (h *UserMessageHandler) restoreInbound(scope *eventScope) entities.UnifiedInboundMessage {
	if len(scope.message.RawJSON) > 0 {
		parser, err := h.parsers.Get(scope.channelContext.ChannelType)
		if err == nil {
			result, perr := parser.Parse(scope.message.RawJSON)
			if perr == nil && result.Message != nil {
				return *result.Message
			}
			if perr != nil {
				h.log.Warn().Err(perr).Int64("message_id", scope.message.ID).Msg("stored payload no longer parses, synthesizing")
			}
		}
	}
	return entities.UnifiedInboundMessage{
		ChatID:    scope.conversation.ChatID,
		Text:      scope.message.Content,
		Timestamp: scope.message.CreatedAt,
	}
}

// OperatorMessageHandler delivers a stored operator reply out through
// the conversation's channel.
type OperatorMessageHandler struct {
	tenants       tenantFinder
	conversations conversationStore
	channels      channelFinder
	delivery      deliverer
	log           zerolog.Logger
}

func NewOperatorMessageHandler(
	tenants tenantFinder,
	conversations conversationStore,
	channels channelFinder,
	delivery deliverer,
	log zerolog.Logger,
) *OperatorMessageHandler {
	return &OperatorMessageHandler{
		tenants:       tenants,
		conversations: conversations,
		channels:      channels,
		delivery:      delivery,
		log:           log,
	}
}

func (h *OperatorMessageHandler) Handle(ctx context.Context, event *entities.Event) error {
	scope, err := resolveEventScope(ctx, event, h.tenants, h.conversations, h.channels, h.log)
	if err != nil {
		return err
	}
	if scope == nil {
		return nil
	}

	if err := h.delivery.Deliver(ctx, entities.OutboundMessage{
		ChatID:  scope.conversation.ChatID,
		Intent:  entities.TextIntent{Text: scope.message.Content},
		Channel: scope.channelContext,
	}); err != nil {
		return fmt.Errorf("deliver operator message: %w", err)
	}

	h.log.Info().
		Int64("event_id", event.ID).
		Int64("conversation_id", scope.conversation.ID).
		Msg("delivered operator message")
	return nil
}

// eventScope is everything a message event handler resolves before the
// domain logic runs.
type eventScope struct {
	tenantContext  entities.TenantContext
	channelContext entities.ChannelContext
	conversation   *entities.Conversation
	message        *entities.Message
}

func (h *UserMessageHandler) resolveScope(ctx context.Context, event *entities.Event) (*eventScope, error) {
	return resolveEventScope(ctx, event, h.tenants, h.conversations, h.channels, h.log)
}

// resolveEventScope loads the tenant, conversation, message and channel
// an event points at. A malformed-but-valid-JSON payload is skipped with
// a warning (nil, nil) because retrying cannot repair it; records that
// should exist but do not are errors so the retry budget applies.
func resolveEventScope(
	ctx context.Context,
	event *entities.Event,
	tenants tenantFinder,
	conversations conversationStore,
	channels channelFinder,
	log zerolog.Logger,
) (*eventScope, error) {
	var payload entities.MessageEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode event payload: %w", err)
	}
	if !payload.Valid() {
		log.Warn().Int64("event_id", event.ID).RawJSON("payload", event.Payload).Msg("event payload incomplete, skipping")
		return nil, nil
	}

	tenant, err := tenants.GetByID(ctx, payload.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant %d: %w", payload.TenantID, err)
	}
	if tenant == nil {
		return nil, fmt.Errorf("tenant %d not found", payload.TenantID)
	}
	tc := entities.TenantContext{TenantID: tenant.ID, Schema: tenant.SchemaName}

	conv, err := conversations.GetByID(ctx, tc, payload.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation %d: %w", payload.ConversationID, err)
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %d not found", payload.ConversationID)
	}

	msg, err := conversations.GetMessage(ctx, tc, payload.MessageID)
	if err != nil {
		return nil, fmt.Errorf("load message %d: %w", payload.MessageID, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message %d not found", payload.MessageID)
	}

	channel, err := channels.GetByID(ctx, conv.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("load channel %d: %w", conv.ChannelID, err)
	}
	if channel == nil {
		return nil, fmt.Errorf("channel %d not found", conv.ChannelID)
	}

	return &eventScope{
		tenantContext: tc,
		channelContext: entities.ChannelContext{
			ChannelID:   channel.ID,
			TenantID:    tenant.ID,
			Schema:      tenant.SchemaName,
			ChannelType: channel.ChannelType,
			Settings:    channel.Settings,
		},
		conversation: conv,
		message:      msg,
	}, nil
}
