package infrastructure

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramClient wraps the bot API for outbound delivery. A nil Bot means
// the token was missing or invalid; sends then fail with a clear error
// instead of panicking.
type TelegramClient struct {
	Bot *tgbotapi.BotAPI
}

func NewTelegramClient(token string) *TelegramClient {
	if token == "" {
		return &TelegramClient{}
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		fmt.Printf("Warning: Telegram Bot Token issue: %v. Telegram delivery disabled.\n", err)
		return &TelegramClient{}
	}
	return &TelegramClient{Bot: bot}
}

func (t *TelegramClient) SendMessage(to, content string) error {
	if t.Bot == nil {
		return fmt.Errorf("telegram bot is not configured")
	}
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", to, err)
	}
	msg := tgbotapi.NewMessage(chatID, content)
	_, err = t.Bot.Send(msg)
	return err
}

// SendMessageWithButtons sends text with a one-column inline keyboard.
func (t *TelegramClient) SendMessageWithButtons(to, content string, buttons []string) error {
	if t.Bot == nil {
		return fmt.Errorf("telegram bot is not configured")
	}
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", to, err)
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, label := range buttons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, label),
		))
	}

	msg := tgbotapi.NewMessage(chatID, content)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = t.Bot.Send(msg)
	return err
}
