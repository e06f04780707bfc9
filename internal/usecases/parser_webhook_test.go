package usecases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"supportdesk/internal/entities"
)

func TestWebhookParserMessage(t *testing.T) {
	p := NewWebhookParser()

	result, err := p.Parse([]byte(`{
		"event": "message",
		"user_id": "u-1",
		"chat_id": "c-1",
		"text": "hi",
		"email": "u@example.com",
		"phone": "+111",
		"name": "Uri",
		"timestamp": 1700000000
	}`))
	require.NoError(t, err)
	require.Equal(t, entities.ParseMessage, result.Status)
	require.Equal(t, "u-1", result.Message.ExternalUserID)
	require.Equal(t, "c-1", result.Message.ChatID)
	require.Equal(t, "hi", result.Message.Text)
	require.Equal(t, "u@example.com", result.Message.Email)
	require.Equal(t, "+111", result.Message.Phone)
	require.Equal(t, "Uri", result.Message.DisplayName)
	require.Equal(t, time.Unix(1700000000, 0).UTC(), result.Message.Timestamp)
}

func TestWebhookParserDefaults(t *testing.T) {
	p := NewWebhookParser()

	// No event field means a plain message; chat id falls back to the
	// user id.
	result, err := p.Parse([]byte(`{"user_id": "u-1", "text": "hi"}`))
	require.NoError(t, err)
	require.Equal(t, entities.ParseMessage, result.Status)
	require.Equal(t, "u-1", result.Message.ChatID)
	require.False(t, result.Message.Timestamp.IsZero())
}

func TestWebhookParserChatClosed(t *testing.T) {
	p := NewWebhookParser()

	result, err := p.Parse([]byte(`{"event": "chat_closed", "user_id": "u-1"}`))
	require.NoError(t, err)
	require.Equal(t, entities.ParseChatClosed, result.Status)
}

func TestWebhookParserRejectsBadPayloads(t *testing.T) {
	p := NewWebhookParser()

	_, err := p.Parse([]byte(`{"text": "no user id"}`))
	require.Error(t, err)

	_, err = p.Parse([]byte(`{"event": "typing", "user_id": "u-1"}`))
	require.Error(t, err)

	_, err = p.Parse([]byte(`not json`))
	require.Error(t, err)
}
