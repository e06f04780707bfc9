package entities

import (
	"encoding/json"
	"time"
)

// ConversationStatus is the dialogue state.
type ConversationStatus string

const (
	ConversationActive ConversationStatus = "active"
	ConversationClosed ConversationStatus = "closed"
)

// MessageDirection marks who sent a message.
type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

// Conversation is one running dialogue per (channel, client) pair, unique
// on that pair within the tenant schema.
type Conversation struct {
	ID            int64              `json:"id"`
	ChannelID     int                `json:"channel_id"`
	ClientID      int64              `json:"client_id"`
	ChatID        string             `json:"chat_id,omitempty"`
	LastMessage   string             `json:"last_message,omitempty"`
	MessagesCount int                `json:"messages_count"`
	Status        ConversationStatus `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Message is one append-only turn in a conversation. RawJSON keeps the
// original channel payload so the dispatcher can re-parse it when
// processing resumes after a crash.
type Message struct {
	ID             int64            `json:"id"`
	ConversationID int64            `json:"conversation_id"`
	Direction      MessageDirection `json:"direction"`
	Content        string           `json:"content"`
	RawJSON        json.RawMessage  `json:"raw_json,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}
