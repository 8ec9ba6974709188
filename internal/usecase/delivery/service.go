package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"chess-puzzle-bot/internal/domain"
	"chess-puzzle-bot/internal/infra/metrics"
)

// Service доставляет задачу в чат: запись в историю, отрисовка, подпись, отправка.
type Service struct {
	registry  domain.ChatRegistry
	renderer  domain.Renderer
	messenger domain.Messenger
	baseURL   string
	log       zerolog.Logger
}

var _ domain.Deliverer = (*Service)(nil)

// NewService создаёт сервис доставки.
func NewService(registry domain.ChatRegistry, renderer domain.Renderer, messenger domain.Messenger, baseURL string, log zerolog.Logger) *Service {
	return &Service{
		registry:  registry,
		renderer:  renderer,
		messenger: messenger,
		baseURL:   baseURL,
		log:       log.With().Str("component", "delivery").Logger(),
	}
}

// Deliver отправляет задачу. Повторов нет: ошибка отправки возвращается как есть.
// Временный PNG удаляется на любом пути выхода.
func (s *Service) Deliver(ctx context.Context, chatID int64, puzzle domain.Puzzle, cause domain.DeliveryCause) error {
	logger := s.log.With().Int64("chat_id", chatID).Str("puzzle", puzzle.ID).Str("cause", string(cause)).Logger()

	if recorded, err := s.registry.RecordDelivery(chatID, puzzle.ID); err != nil {
		logger.Error().Err(err).Msg("не удалось записать доставку")
	} else if !recorded {
		logger.Debug().Msg("чат не зарегистрирован, история не ведётся")
	}

	path, err := s.renderer.Render(puzzle)
	if err != nil {
		metrics.IncDeliveryFailure("render")
		logger.Error().Err(err).Msg("отрисовка не удалась")
		return err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warn().Err(rmErr).Str("path", path).Msg("не удалось удалить временный файл")
		}
	}()

	caption, err := FormatCaption(puzzle, s.baseURL)
	if err != nil {
		metrics.IncDeliveryFailure("format")
		return err
	}

	if err := s.messenger.SendPhoto(ctx, chatID, path, caption.Text()); err != nil {
		metrics.IncDeliveryFailure("send")
		return fmt.Errorf("отправка задачи %s: %w", puzzle.ID, err)
	}
	metrics.IncDelivered(string(cause))
	logger.Info().Msg("задача доставлена")
	return nil
}
