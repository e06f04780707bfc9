package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"supportdesk/internal/entities"
)

const decisionSystemPrompt = `You are a support chat bot. For every user message return a decision as JSON only (no markdown, no commentary):
{
  "step_kind": "answer" | "ask_clarification" | "handoff",
  "confidence": number between 0 and 1,
  "proposed_text": "reply text" (required for answer),
  "clarification_question": "question" (required for ask_clarification),
  "slots": {}
}
Rules:
- answer when you can give a useful, on-topic reply.
- ask_clarification when the request is unclear or data is missing.
- handoff when the user asks for a human or the request is out of scope.
Keep replies short.`

// DecisionClient calls an OpenAI-compatible chat-completions endpoint and
// maps the JSON contract onto a DecisionResult. Unusable responses fall
// back to a handoff so a turn never disappears silently.
type DecisionClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	log     zerolog.Logger
}

func NewDecisionClient(apiKey, baseURL, model string, log zerolog.Logger) *DecisionClient {
	return &DecisionClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("component", "decision_client").Logger(),
	}
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (d *DecisionClient) Decide(ctx context.Context, dc entities.DecisionContext) (entities.DecisionResult, error) {
	userContent := dc.Inbound.Text
	if dc.Conversation != nil && dc.Conversation.LastMessage != "" {
		userContent = fmt.Sprintf("Previous message: %s\n\nCurrent: %s", dc.Conversation.LastMessage, dc.Inbound.Text)
	}
	if userContent == "" {
		return entities.DecisionResult{
			StepKind:              entities.StepAskClarification,
			Confidence:            0.9,
			ClarificationQuestion: "I did not receive a message. What did you want to say?",
		}, nil
	}

	body := map[string]interface{}{
		"model": d.model,
		"messages": []map[string]string{
			{"role": "system", "content": decisionSystemPrompt},
			{"role": "user", "content": userContent},
		},
		"response_format": map[string]string{"type": "json_object"},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return entities.DecisionResult{}, fmt.Errorf("marshal decision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return entities.DecisionResult{}, fmt.Errorf("build decision request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return entities.DecisionResult{}, fmt.Errorf("decision request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entities.DecisionResult{}, fmt.Errorf("decision service returned status %d", resp.StatusCode)
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return entities.DecisionResult{}, fmt.Errorf("decode decision response: %w", err)
	}
	if len(completion.Choices) == 0 {
		d.log.Warn().Msg("decision service returned no choices, falling back to handoff")
		return fallbackDecision(), nil
	}

	var result entities.DecisionResult
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &result); err != nil {
		d.log.Warn().Err(err).Msg("decision content is not the expected JSON, falling back to handoff")
		return fallbackDecision(), nil
	}

	switch result.StepKind {
	case entities.StepAnswer, entities.StepAskClarification, entities.StepHandoff:
	default:
		d.log.Warn().Str("step_kind", string(result.StepKind)).Msg("unknown step kind from decision service, falling back to handoff")
		return fallbackDecision(), nil
	}

	return result, nil
}

func fallbackDecision() entities.DecisionResult {
	return entities.DecisionResult{StepKind: entities.StepHandoff, Confidence: 0}
}
