package usecases

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"supportdesk/internal/entities"
)

// TelegramParser reads bot API webhook updates. Only the fields the
// pipeline needs are decoded; the full update stays in RawJSON.
type TelegramParser struct{}

func NewTelegramParser() *TelegramParser { return &TelegramParser{} }

func (p *TelegramParser) ChannelType() entities.ChannelType { return entities.ChannelTelegram }

type telegramUpdate struct {
	Message struct {
		From struct {
			ID int64 `json:"id"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Date     int64  `json:"date"`
		Text     string `json:"text"`
		Document *struct {
			FileID string `json:"file_id"`
		} `json:"document"`
		Photo []struct {
			FileID string `json:"file_id"`
		} `json:"photo"`
	} `json:"message"`
}

func (p *TelegramParser) Parse(raw []byte) (entities.ParseResult, error) {
	var update telegramUpdate
	if err := json.Unmarshal(raw, &update); err != nil {
		return entities.ParseResult{}, fmt.Errorf("decode telegram update: %w", err)
	}
	if update.Message.From.ID == 0 {
		return entities.ParseResult{}, fmt.Errorf("telegram update has no message sender")
	}

	msg := &entities.UnifiedInboundMessage{
		ExternalUserID: strconv.FormatInt(update.Message.From.ID, 10),
		ChatID:         strconv.FormatInt(update.Message.Chat.ID, 10),
		Text:           update.Message.Text,
		Timestamp:      time.Unix(update.Message.Date, 0).UTC(),
		RawJSON:        raw,
	}
	if update.Message.Document != nil {
		msg.Attachments = append(msg.Attachments, update.Message.Document.FileID)
	}
	for _, photo := range update.Message.Photo {
		msg.Attachments = append(msg.Attachments, photo.FileID)
	}

	return entities.ParseResult{Status: entities.ParseMessage, Message: msg}, nil
}
