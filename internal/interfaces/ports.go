package interfaces

import (
	"context"

	"supportdesk/internal/entities"
)

// InboundParser turns one raw channel payload into the unified model.
// Parsing is pure: deterministic, no I/O, safe to repeat on a stored payload.
type InboundParser interface {
	ChannelType() entities.ChannelType
	Parse(raw []byte) (entities.ParseResult, error)
}

// ChannelResolver maps an opaque channel token to its resolved context.
type ChannelResolver interface {
	ResolveToken(ctx context.Context, token string) (entities.ChannelContext, error)
}

// EventStore is the durable event state machine. Acquire is the only
// mutual-exclusion primitive between workers: it succeeds at most once per
// lease and reports acquired=false for non-acquirable rows.
type EventStore interface {
	Acquire(ctx context.Context, id int64) (event *entities.Event, acquired bool, err error)
	Complete(ctx context.Context, id int64, processingID string) error
	Fail(ctx context.Context, id int64, processingID string, cause error) error
	MarkDeadLetter(ctx context.Context, id int64, processingID string, reason string) error
}

// EventHandler runs the type-specific logic for one acquired event.
// A returned error is persisted verbatim and triggers the retry path.
type EventHandler interface {
	Handle(ctx context.Context, event *entities.Event) error
}

// ClientStore looks up and creates clients inside a tenant partition.
// Find methods return (nil, nil) when no row matches.
type ClientStore interface {
	FindByOverrideID(ctx context.Context, tc entities.TenantContext, overrideID string) (*entities.Client, error)
	FindByChannelUserID(ctx context.Context, tc entities.TenantContext, channelUserID string) (*entities.Client, error)
	FindByEmail(ctx context.Context, tc entities.TenantContext, email, phone string) (*entities.Client, error)
	FindByPhone(ctx context.Context, tc entities.TenantContext, phone string) (*entities.Client, error)
	Create(ctx context.Context, tc entities.TenantContext, client *entities.Client) error
}

// DecisionService turns a conversation turn into a decision.
type DecisionService interface {
	Decide(ctx context.Context, dc entities.DecisionContext) (entities.DecisionResult, error)
}

// StepHandler produces a reply intent for one decision step kind.
type StepHandler interface {
	StepKind() entities.StepKind
	Handle(ctx context.Context, dc entities.DecisionContext, decision entities.DecisionResult) (entities.ReplyIntent, error)
}

// DeliveryAdapter sends a reply intent through one channel type.
type DeliveryAdapter interface {
	ChannelType() entities.ChannelType
	Deliver(ctx context.Context, msg entities.OutboundMessage) error
}
