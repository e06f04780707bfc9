package usecases

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"supportdesk/internal/entities"
	"supportdesk/internal/infrastructure"
	"supportdesk/internal/interfaces"
)

// IntentDispatcher routes an outbound reply to the delivery adapter for
// its channel type. All adapters are registered at startup.
type IntentDispatcher struct {
	adapters map[entities.ChannelType]interfaces.DeliveryAdapter
}

func NewIntentDispatcher(adapters ...interfaces.DeliveryAdapter) *IntentDispatcher {
	d := &IntentDispatcher{adapters: make(map[entities.ChannelType]interfaces.DeliveryAdapter)}
	for _, a := range adapters {
		if _, dup := d.adapters[a.ChannelType()]; dup {
			panic(fmt.Sprintf("delivery adapter already registered for channel type %q", a.ChannelType()))
		}
		d.adapters[a.ChannelType()] = a
	}
	return d
}

func (d *IntentDispatcher) Deliver(ctx context.Context, out entities.OutboundMessage) error {
	a, ok := d.adapters[out.Channel.ChannelType]
	if !ok {
		return fmt.Errorf("no delivery adapter for channel type %q", out.Channel.ChannelType)
	}
	return a.Deliver(ctx, out)
}

// TelegramDeliveryAdapter sends replies through the bot API. Buttons
// intents become inline keyboards, everything else plain text.
type TelegramDeliveryAdapter struct {
	client *infrastructure.TelegramClient
}

func NewTelegramDeliveryAdapter(client *infrastructure.TelegramClient) *TelegramDeliveryAdapter {
	return &TelegramDeliveryAdapter{client: client}
}

func (a *TelegramDeliveryAdapter) ChannelType() entities.ChannelType { return entities.ChannelTelegram }

func (a *TelegramDeliveryAdapter) Deliver(_ context.Context, out entities.OutboundMessage) error {
	if buttons, ok := out.Intent.(entities.ButtonsIntent); ok {
		return a.client.SendMessageWithButtons(out.ChatID, buttons.Text, buttons.Buttons)
	}
	text := out.Intent.ReplyText()
	if text == "" {
		return nil
	}
	return a.client.SendMessage(out.ChatID, text)
}

// webhookDeliveryTimeout bounds one callback POST.
const webhookDeliveryTimeout = 15 * time.Second

type webhookSettings struct {
	CallbackURL string `json:"callback_url"`
}

// WebhookDeliveryAdapter POSTs replies to the callback URL stored in the
// channel settings.
type WebhookDeliveryAdapter struct {
	httpClient *http.Client
}

func NewWebhookDeliveryAdapter() *WebhookDeliveryAdapter {
	return &WebhookDeliveryAdapter{httpClient: &http.Client{Timeout: webhookDeliveryTimeout}}
}

func (a *WebhookDeliveryAdapter) ChannelType() entities.ChannelType { return entities.ChannelWebhook }

func (a *WebhookDeliveryAdapter) Deliver(ctx context.Context, out entities.OutboundMessage) error {
	var settings webhookSettings
	if len(out.Channel.Settings) > 0 {
		if err := json.Unmarshal(out.Channel.Settings, &settings); err != nil {
			return fmt.Errorf("decode channel settings: %w", err)
		}
	}
	if settings.CallbackURL == "" {
		return fmt.Errorf("webhook channel %d has no callback_url configured", out.Channel.ChannelID)
	}

	body := map[string]string{
		"chat_id": out.ChatID,
		"text":    out.Intent.ReplyText(),
	}
	if _, ok := out.Intent.(entities.HandoffIntent); ok {
		body["event"] = "handoff"
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, settings.CallbackURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver callback: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}

// WidgetDeliveryAdapter records replies for the widget to pick up over
// its own polling endpoint; there is no push transport, so delivery here
// only logs. The reply is already persisted as an outbound message.
type WidgetDeliveryAdapter struct {
	log zerolog.Logger
}

func NewWidgetDeliveryAdapter(log zerolog.Logger) *WidgetDeliveryAdapter {
	return &WidgetDeliveryAdapter{log: log}
}

func (a *WidgetDeliveryAdapter) ChannelType() entities.ChannelType { return entities.ChannelWidget }

func (a *WidgetDeliveryAdapter) Deliver(_ context.Context, out entities.OutboundMessage) error {
	a.log.Info().
		Str("chat_id", out.ChatID).
		Int("channel_id", out.Channel.ChannelID).
		Str("text", out.Intent.ReplyText()).
		Msg("widget reply stored for pickup")
	return nil
}
