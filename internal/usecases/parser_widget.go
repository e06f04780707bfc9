package usecases

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"supportdesk/internal/entities"
)

// WidgetParser handles chat-widget payloads. The widget gateway posts the
// event either bare, wrapped in a body field, or as a one-element array of
// wrapped events; all three shapes normalize to the same inner object.
type WidgetParser struct{}

func NewWidgetParser() *WidgetParser { return &WidgetParser{} }

func (p *WidgetParser) ChannelType() entities.ChannelType { return entities.ChannelWidget }

type widgetEvent struct {
	Event    string `json:"event"`
	ClientID string `json:"client_id"`
	ChatID   string `json:"chat_id"`
	Message  struct {
		Type      string   `json:"type"`
		Text      string   `json:"text"`
		Timestamp int64    `json:"timestamp"`
		FileURL   string   `json:"file_url"`
		Files     []string `json:"files"`
	} `json:"message"`
}

func (p *WidgetParser) Parse(raw []byte) (entities.ParseResult, error) {
	payload, err := extractWidgetPayload(raw)
	if err != nil {
		return entities.ParseResult{}, err
	}

	var evt widgetEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return entities.ParseResult{}, fmt.Errorf("decode widget event: %w", err)
	}
	if evt.ClientID == "" {
		return entities.ParseResult{}, fmt.Errorf("widget event has no client_id")
	}

	msg := &entities.UnifiedInboundMessage{
		ExternalUserID: evt.ClientID,
		ChatID:         evt.ChatID,
		Timestamp:      time.Unix(evt.Message.Timestamp, 0).UTC(),
		RawJSON:        raw,
	}

	switch strings.ToUpper(evt.Event) {
	case "CHAT_CLOSED":
		return entities.ParseResult{Status: entities.ParseChatClosed, Message: msg}, nil
	case "CLIENT_MESSAGE":
	default:
		return entities.ParseResult{}, fmt.Errorf("unsupported widget event %q", evt.Event)
	}

	// Non-text messages keep an empty text by contract.
	if strings.EqualFold(evt.Message.Type, "TEXT") {
		msg.Text = evt.Message.Text
	}
	if evt.Message.FileURL != "" {
		msg.Attachments = append(msg.Attachments, evt.Message.FileURL)
	}
	msg.Attachments = append(msg.Attachments, evt.Message.Files...)

	return entities.ParseResult{Status: entities.ParseMessage, Message: msg}, nil
}

// extractWidgetPayload unwraps the three accepted envelope shapes.
func extractWidgetPayload(raw []byte) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, fmt.Errorf("widget payload is empty")
	}

	if strings.HasPrefix(trimmed, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode widget envelope array: %w", err)
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("widget envelope array is empty")
		}
		return unwrapBody(items[0])
	}
	return unwrapBody(raw)
}

func unwrapBody(raw json.RawMessage) (json.RawMessage, error) {
	var wrapper struct {
		Body json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("decode widget envelope: %w", err)
	}
	if len(wrapper.Body) > 0 && string(wrapper.Body) != "null" {
		return wrapper.Body, nil
	}
	return raw, nil
}
