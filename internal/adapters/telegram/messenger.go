package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"chess-puzzle-bot/internal/domain"
	"chess-puzzle-bot/internal/infra/metrics"
)

// Sender описывает часть *tgbotapi.BotAPI, которой пользуется бот.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Messenger отправляет сообщения через Bot API.
type Messenger struct {
	api Sender
	log zerolog.Logger
}

var _ domain.Messenger = (*Messenger)(nil)

// NewMessenger создаёт транспорт поверх клиента Bot API.
func NewMessenger(api Sender, log zerolog.Logger) *Messenger {
	return &Messenger{api: api, log: log.With().Str("component", "telegram").Logger()}
}

// SendMessage отправляет обычный текст, при необходимости несколькими сообщениями.
func (m *Messenger) SendMessage(ctx context.Context, chatID int64, text string) error {
	for _, part := range Split(text, MessageLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.send(chatID, "send_message", tgbotapi.NewMessage(chatID, part)); err != nil {
			return err
		}
	}
	return nil
}

// SendPhoto отправляет файл с подписью в MarkdownV2. Слишком длинная подпись уходит отдельным сообщением.
func (m *Messenger) SendPhoto(ctx context.Context, chatID int64, path, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	long := runeLen(caption) > CaptionLimit
	if !long {
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeMarkdownV2
	}
	if err := m.send(chatID, "send_photo", photo); err != nil {
		return err
	}
	if !long {
		return nil
	}
	for _, part := range Split(caption, MessageLimit) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		if err := m.send(chatID, "send_message", msg); err != nil {
			return err
		}
	}
	return nil
}

// SetCommands регистрирует меню команд бота.
func (m *Messenger) SetCommands(commands []tgbotapi.BotCommand) error {
	start := time.Now()
	_, err := m.api.Request(tgbotapi.NewSetMyCommands(commands...))
	metrics.ObserveNetworkRequest("telegram_bot", "set_my_commands", start, err)
	if err != nil {
		return fmt.Errorf("setMyCommands: %w", err)
	}
	return nil
}

func (m *Messenger) send(chatID int64, operation string, c tgbotapi.Chattable) error {
	start := time.Now()
	_, err := m.api.Send(c)
	metrics.ObserveNetworkRequest("telegram_bot", operation, start, err)
	if err != nil {
		metrics.BotSendErrors.Inc()
		m.log.Error().Err(err).Int64("chat_id", chatID).Str("operation", operation).Msg("не удалось отправить сообщение")
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}
