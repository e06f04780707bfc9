package entities

import (
	"encoding/json"
	"time"
)

// ChannelType identifies the external endpoint kind a channel speaks.
type ChannelType string

const (
	ChannelTelegram ChannelType = "telegram"
	ChannelWidget   ChannelType = "widget"
	ChannelWebhook  ChannelType = "webhook"
)

// Channel is a tenant-owned inbound/outbound endpoint. The token identifies
// the channel (and therefore the tenant) on every inbound request.
type Channel struct {
	ID          int             `json:"id"`
	TenantID    int             `json:"tenant_id"`
	ChannelType ChannelType     `json:"channel_type"`
	Token       string          `json:"token"`
	Settings    json.RawMessage `json:"settings,omitempty"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ChannelContext is the resolved scope of one inbound request: which
// channel received it and which tenant partition it belongs to.
type ChannelContext struct {
	ChannelID   int
	TenantID    int
	Schema      string
	ChannelType ChannelType
	Settings    json.RawMessage
}

// Tenant returns the tenant context carried by this channel resolution.
func (c ChannelContext) Tenant() TenantContext {
	return TenantContext{TenantID: c.TenantID, Schema: c.Schema}
}
