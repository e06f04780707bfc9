package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"supportdesk/internal/entities"
)

type fakeTenantFinder struct {
	tenant *entities.Tenant
	err    error
}

func (f *fakeTenantFinder) GetByID(_ context.Context, _ int) (*entities.Tenant, error) {
	return f.tenant, f.err
}

type fakeScopeStore struct {
	conversation *entities.Conversation
	message      *entities.Message

	savedDecision *entities.DecisionResult
	savedIntent   entities.ReplyIntent
}

func (f *fakeScopeStore) GetByID(_ context.Context, _ entities.TenantContext, _ int64) (*entities.Conversation, error) {
	return f.conversation, nil
}

func (f *fakeScopeStore) GetMessage(_ context.Context, _ entities.TenantContext, _ int64) (*entities.Message, error) {
	return f.message, nil
}

func (f *fakeScopeStore) SaveInteraction(_ context.Context, _ entities.TenantContext, _ int64, decision entities.DecisionResult, intent entities.ReplyIntent) error {
	f.savedDecision = &decision
	f.savedIntent = intent
	return nil
}

type fakeChannelFinder struct {
	channel *entities.Channel
}

func (f *fakeChannelFinder) GetByID(_ context.Context, _ int) (*entities.Channel, error) {
	return f.channel, nil
}

type fakeDeliverer struct {
	delivered []entities.OutboundMessage
	err       error
}

func (f *fakeDeliverer) Deliver(_ context.Context, out entities.OutboundMessage) error {
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, out)
	return nil
}

type fakeDecider struct {
	result   entities.DecisionResult
	err      error
	lastSeen entities.DecisionContext
}

func (f *fakeDecider) Decide(_ context.Context, dc entities.DecisionContext) (entities.DecisionResult, error) {
	f.lastSeen = dc
	return f.result, f.err
}

func userMessageFixture() (*fakeTenantFinder, *fakeScopeStore, *fakeChannelFinder, *entities.Event) {
	tenants := &fakeTenantFinder{tenant: &entities.Tenant{ID: 1, SchemaName: "t_1"}}
	store := &fakeScopeStore{
		conversation: &entities.Conversation{ID: 10, ChannelID: 3, ClientID: 7, ChatID: "c-1"},
		message: &entities.Message{
			ID:      20,
			Content: "hi",
			RawJSON: []byte(`{"user_id": "u-1", "chat_id": "c-1", "text": "hi", "timestamp": 1700000000}`),
		},
	}
	channels := &fakeChannelFinder{channel: &entities.Channel{ID: 3, TenantID: 1, ChannelType: entities.ChannelWebhook}}
	event := &entities.Event{
		ID:        100,
		EventType: entities.EventUserMessage,
		Payload:   []byte(`{"tenant_id": 1, "conversation_id": 10, "message_id": 20}`),
	}
	return tenants, store, channels, event
}

func TestUserMessageHandlerRepliesAndRecords(t *testing.T) {
	tenants, store, channels, event := userMessageFixture()
	decider := &fakeDecider{result: entities.DecisionResult{
		StepKind:     entities.StepAnswer,
		Confidence:   0.8,
		ProposedText: "sure thing",
	}}
	delivery := &fakeDeliverer{}

	h := NewUserMessageHandler(tenants, store, channels,
		NewParserRegistry(NewWebhookParser()), decider,
		NewStepDispatcher(NewAnswerStep(), NewClarificationStep(), NewHandoffStep()),
		delivery, zerolog.Nop())

	require.NoError(t, h.Handle(context.Background(), event))

	// The stored raw payload was re-parsed into the decision context.
	require.Equal(t, "hi", decider.lastSeen.Inbound.Text)
	require.Equal(t, "u-1", decider.lastSeen.Inbound.ExternalUserID)

	require.Len(t, delivery.delivered, 1)
	require.Equal(t, "c-1", delivery.delivered[0].ChatID)
	require.Equal(t, "sure thing", delivery.delivered[0].Intent.ReplyText())

	require.NotNil(t, store.savedDecision)
	require.Equal(t, entities.StepAnswer, store.savedDecision.StepKind)
	require.Equal(t, "sure thing", store.savedIntent.ReplyText())
}

func TestUserMessageHandlerSynthesizesWhenRawMissing(t *testing.T) {
	tenants, store, channels, event := userMessageFixture()
	store.message.RawJSON = nil
	decider := &fakeDecider{result: entities.DecisionResult{StepKind: entities.StepHandoff}}
	delivery := &fakeDeliverer{}

	h := NewUserMessageHandler(tenants, store, channels,
		NewParserRegistry(NewWebhookParser()), decider,
		NewStepDispatcher(NewAnswerStep(), NewClarificationStep(), NewHandoffStep()),
		delivery, zerolog.Nop())

	require.NoError(t, h.Handle(context.Background(), event))
	require.Equal(t, "hi", decider.lastSeen.Inbound.Text)
	require.Equal(t, "c-1", decider.lastSeen.Inbound.ChatID)
}

func TestUserMessageHandlerSkipsIncompletePayload(t *testing.T) {
	tenants, store, channels, event := userMessageFixture()
	event.Payload = []byte(`{"tenant_id": 0}`)
	delivery := &fakeDeliverer{}

	h := NewUserMessageHandler(tenants, store, channels,
		NewParserRegistry(NewWebhookParser()), &fakeDecider{},
		NewStepDispatcher(NewAnswerStep()), delivery, zerolog.Nop())

	// Skipped, not retried: retrying cannot repair the payload.
	require.NoError(t, h.Handle(context.Background(), event))
	require.Empty(t, delivery.delivered)
	require.Nil(t, store.savedDecision)
}

func TestUserMessageHandlerErrorsOnMalformedPayload(t *testing.T) {
	tenants, store, channels, event := userMessageFixture()
	event.Payload = []byte(`not json`)

	h := NewUserMessageHandler(tenants, store, channels,
		NewParserRegistry(NewWebhookParser()), &fakeDecider{},
		NewStepDispatcher(NewAnswerStep()), &fakeDeliverer{}, zerolog.Nop())

	require.Error(t, h.Handle(context.Background(), event))
}

func TestUserMessageHandlerErrorsWhenTenantMissing(t *testing.T) {
	_, store, channels, event := userMessageFixture()

	h := NewUserMessageHandler(&fakeTenantFinder{}, store, channels,
		NewParserRegistry(NewWebhookParser()), &fakeDecider{},
		NewStepDispatcher(NewAnswerStep()), &fakeDeliverer{}, zerolog.Nop())

	require.Error(t, h.Handle(context.Background(), event))
}

func TestUserMessageHandlerDeliveryFailureIsRetried(t *testing.T) {
	tenants, store, channels, event := userMessageFixture()
	decider := &fakeDecider{result: entities.DecisionResult{StepKind: entities.StepAnswer, ProposedText: "ok"}}
	delivery := &fakeDeliverer{err: errors.New("telegram down")}

	h := NewUserMessageHandler(tenants, store, channels,
		NewParserRegistry(NewWebhookParser()), decider,
		NewStepDispatcher(NewAnswerStep(), NewClarificationStep(), NewHandoffStep()),
		delivery, zerolog.Nop())

	err := h.Handle(context.Background(), event)
	require.Error(t, err)
	// The interaction is only recorded after a successful send.
	require.Nil(t, store.savedDecision)
}

func TestOperatorMessageHandlerDeliversStoredReply(t *testing.T) {
	tenants, store, channels, event := userMessageFixture()
	event.EventType = entities.EventOperatorMessage
	store.message = &entities.Message{ID: 20, Direction: entities.DirectionOutbound, Content: "an operator here"}
	delivery := &fakeDeliverer{}

	h := NewOperatorMessageHandler(tenants, store, channels, delivery, zerolog.Nop())

	require.NoError(t, h.Handle(context.Background(), event))
	require.Len(t, delivery.delivered, 1)
	require.Equal(t, "c-1", delivery.delivered[0].ChatID)
	require.Equal(t, "an operator here", delivery.delivered[0].Intent.ReplyText())
	require.Equal(t, entities.ChannelWebhook, delivery.delivered[0].Channel.ChannelType)
}
