package usecases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"supportdesk/internal/entities"
)

const widgetMessageJSON = `{
	"event": "CLIENT_MESSAGE",
	"client_id": "visitor-17",
	"chat_id": "chat-9",
	"message": {"type": "TEXT", "text": "hello there", "timestamp": 1700000000}
}`

func TestWidgetParserBareMessage(t *testing.T) {
	p := NewWidgetParser()

	result, err := p.Parse([]byte(widgetMessageJSON))
	require.NoError(t, err)
	require.Equal(t, entities.ParseMessage, result.Status)
	require.Equal(t, "visitor-17", result.Message.ExternalUserID)
	require.Equal(t, "chat-9", result.Message.ChatID)
	require.Equal(t, "hello there", result.Message.Text)
	require.Equal(t, time.Unix(1700000000, 0).UTC(), result.Message.Timestamp)
	require.JSONEq(t, widgetMessageJSON, string(result.Message.RawJSON))
}

func TestWidgetParserEnvelopeShapes(t *testing.T) {
	p := NewWidgetParser()

	wrapped := `{"body": ` + widgetMessageJSON + `}`
	array := `[{"body": ` + widgetMessageJSON + `}]`

	for _, raw := range []string{widgetMessageJSON, wrapped, array} {
		result, err := p.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, entities.ParseMessage, result.Status)
		require.Equal(t, "visitor-17", result.Message.ExternalUserID)
		require.Equal(t, "hello there", result.Message.Text)
	}
}

func TestWidgetParserIsDeterministic(t *testing.T) {
	p := NewWidgetParser()

	first, err := p.Parse([]byte(widgetMessageJSON))
	require.NoError(t, err)

	// Re-parsing the stored raw payload reproduces the same message;
	// workers rely on this to resume from persisted state.
	second, err := p.Parse(first.Message.RawJSON)
	require.NoError(t, err)
	require.Equal(t, first.Message, second.Message)
}

func TestWidgetParserChatClosed(t *testing.T) {
	p := NewWidgetParser()

	result, err := p.Parse([]byte(`{"event": "CHAT_CLOSED", "client_id": "visitor-17", "chat_id": "chat-9"}`))
	require.NoError(t, err)
	require.Equal(t, entities.ParseChatClosed, result.Status)
	require.Equal(t, "visitor-17", result.Message.ExternalUserID)
	require.Equal(t, "chat-9", result.Message.ChatID)
}

func TestWidgetParserNonTextMessageKeepsEmptyText(t *testing.T) {
	p := NewWidgetParser()

	result, err := p.Parse([]byte(`{
		"event": "CLIENT_MESSAGE",
		"client_id": "visitor-17",
		"message": {"type": "FILE", "text": "should be ignored", "file_url": "https://cdn.example/f.pdf"}
	}`))
	require.NoError(t, err)
	require.Empty(t, result.Message.Text)
	require.Equal(t, []string{"https://cdn.example/f.pdf"}, result.Message.Attachments)
}

func TestWidgetParserRejectsBadPayloads(t *testing.T) {
	p := NewWidgetParser()

	cases := []string{
		``,
		`not json`,
		`[]`,
		`{"event": "CLIENT_MESSAGE"}`,
		`{"event": "AGENT_TYPING", "client_id": "visitor-17"}`,
	}
	for _, raw := range cases {
		_, err := p.Parse([]byte(raw))
		require.Error(t, err, "payload: %s", raw)
	}
}
