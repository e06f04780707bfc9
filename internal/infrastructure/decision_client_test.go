package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"supportdesk/internal/entities"
)

func completionResponse(content string) string {
	return fmt.Sprintf(`{"choices": [{"message": {"content": %q}}]}`, content)
}

func decisionServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
}

func TestDecideParsesContract(t *testing.T) {
	srv := decisionServer(t, http.StatusOK, completionResponse(
		`{"step_kind": "answer", "confidence": 0.92, "proposed_text": "it ships Monday", "slots": {"order_id": "42"}}`))
	defer srv.Close()

	c := NewDecisionClient("test-key", srv.URL, "test-model", zerolog.Nop())
	result, err := c.Decide(context.Background(), entities.DecisionContext{
		Inbound: entities.UnifiedInboundMessage{Text: "when does order 42 ship?"},
	})
	require.NoError(t, err)
	require.Equal(t, entities.StepAnswer, result.StepKind)
	require.Equal(t, 0.92, result.Confidence)
	require.Equal(t, "it ships Monday", result.ProposedText)
	require.Equal(t, map[string]string{"order_id": "42"}, result.Slots)
}

func TestDecideEmptyTextAsksClarificationWithoutCalling(t *testing.T) {
	c := NewDecisionClient("test-key", "http://127.0.0.1:1", "test-model", zerolog.Nop())

	result, err := c.Decide(context.Background(), entities.DecisionContext{})
	require.NoError(t, err)
	require.Equal(t, entities.StepAskClarification, result.StepKind)
}

func TestDecideFallsBackToHandoff(t *testing.T) {
	cases := []string{
		completionResponse(`this is not json`),
		completionResponse(`{"step_kind": "reboot_user", "confidence": 1}`),
		`{"choices": []}`,
	}
	for _, body := range cases {
		srv := decisionServer(t, http.StatusOK, body)
		c := NewDecisionClient("test-key", srv.URL, "test-model", zerolog.Nop())

		result, err := c.Decide(context.Background(), entities.DecisionContext{
			Inbound: entities.UnifiedInboundMessage{Text: "hello"},
		})
		srv.Close()
		require.NoError(t, err)
		require.Equal(t, entities.StepHandoff, result.StepKind)
		require.Zero(t, result.Confidence)
	}
}

func TestDecideSurfacesTransportErrors(t *testing.T) {
	srv := decisionServer(t, http.StatusTooManyRequests, `{"error": "rate limited"}`)
	defer srv.Close()

	c := NewDecisionClient("test-key", srv.URL, "test-model", zerolog.Nop())
	_, err := c.Decide(context.Background(), entities.DecisionContext{
		Inbound: entities.UnifiedInboundMessage{Text: "hello"},
	})
	require.Error(t, err)
}
