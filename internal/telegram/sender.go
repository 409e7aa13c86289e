// Package telegram provides the chat transport and message formatting.
package telegram

import (
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/user/issuebot/pkg/logger"
)

// Sender delivers messages to the single configured Telegram chat.
type Sender struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewSender authorizes the bot and binds it to the target chat.
func NewSender(token string, chatID int64, debug bool) (*Sender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = debug

	logger.Info().Str("username", api.Self.UserName).Msg("Telegram bot authorized")

	return &Sender{api: api, chatID: chatID}, nil
}

// Send delivers one HTML-formatted message to the configured chat.
func (s *Sender) Send(text string) error {
	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	_, err := s.api.Send(msg)
	return err
}

// Retryable reports whether a send error is transient. Rate-limit and
// server-side responses are worth retrying; other API rejections (bad
// markup, bot kicked from the chat) are permanent. Anything that is
// not a Telegram API error is a network failure and transient.
func (s *Sender) Retryable(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return true
		case apiErr.Code >= 500:
			return true
		case apiErr.Code >= 400:
			return false
		}
	}
	return true
}
