package usecases

import (
	"encoding/json"
	"fmt"
	"time"

	"supportdesk/internal/entities"
)

const (
	webhookEventMessage    = "message"
	webhookEventChatClosed = "chat_closed"
)

// WebhookParser reads the generic JSON shape used by custom integrations.
// An absent event field is treated as a plain message.
type WebhookParser struct{}

func NewWebhookParser() *WebhookParser { return &WebhookParser{} }

func (p *WebhookParser) ChannelType() entities.ChannelType { return entities.ChannelWebhook }

type webhookPayload struct {
	Event       string   `json:"event"`
	UserID      string   `json:"user_id"`
	ChatID      string   `json:"chat_id"`
	Text        string   `json:"text"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Name        string   `json:"name"`
	Attachments []string `json:"attachments"`
	Timestamp   int64    `json:"timestamp"`
}

func (p *WebhookParser) Parse(raw []byte) (entities.ParseResult, error) {
	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return entities.ParseResult{}, fmt.Errorf("decode webhook payload: %w", err)
	}
	if payload.UserID == "" {
		return entities.ParseResult{}, fmt.Errorf("webhook payload missing user_id")
	}

	ts := time.Now().UTC()
	if payload.Timestamp > 0 {
		ts = time.Unix(payload.Timestamp, 0).UTC()
	}

	msg := &entities.UnifiedInboundMessage{
		ExternalUserID: payload.UserID,
		ChatID:         payload.ChatID,
		Text:           payload.Text,
		Email:          payload.Email,
		Phone:          payload.Phone,
		DisplayName:    payload.Name,
		Attachments:    payload.Attachments,
		Timestamp:      ts,
		RawJSON:        raw,
	}
	if msg.ChatID == "" {
		msg.ChatID = payload.UserID
	}

	switch payload.Event {
	case webhookEventChatClosed:
		return entities.ParseResult{Status: entities.ParseChatClosed, Message: msg}, nil
	case webhookEventMessage, "":
		return entities.ParseResult{Status: entities.ParseMessage, Message: msg}, nil
	default:
		return entities.ParseResult{}, fmt.Errorf("unknown webhook event %q", payload.Event)
	}
}
