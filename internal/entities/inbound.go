package entities

import "time"

// UnifiedInboundMessage is the channel-agnostic form every parser produces.
// After parsing, the pipeline only works with this model.
type UnifiedInboundMessage struct {
	// ExternalUserID is the user's id in the channel (client_id, from.id).
	ExternalUserID string
	// ChatID is where replies go; stored on the conversation.
	ChatID string
	// Text is the message content, empty for non-text messages.
	Text string
	// Email and Phone, when the channel supplies them, feed client
	// deduplication.
	Email string
	Phone string
	// DisplayName is the channel-reported client name, if any.
	DisplayName string
	// Attachments are URLs/ids of files the message carried.
	Attachments []string
	// Timestamp is the channel-reported send time.
	Timestamp time.Time
	// RawJSON is the original payload, persisted for audit and crash
	// recovery; re-parsing it must yield an equivalent message.
	RawJSON []byte
}

// ParseStatus distinguishes a normal message from a chat-closed signal.
type ParseStatus int

const (
	ParseMessage ParseStatus = iota
	ParseChatClosed
)

// ParseResult is the outcome of parsing one raw channel payload.
type ParseResult struct {
	Status  ParseStatus
	Message *UnifiedInboundMessage
}
