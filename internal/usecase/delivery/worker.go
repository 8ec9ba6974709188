package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"chess-puzzle-bot/internal/domain"
)

// Worker разбирает очередь доставки.
type Worker struct {
	queue     domain.DeliveryQueue
	catalog   domain.PuzzleCatalog
	deliverer domain.Deliverer
	log       zerolog.Logger
	backoff   time.Duration
}

// NewWorker создаёт воркер очереди доставки.
func NewWorker(queue domain.DeliveryQueue, catalog domain.PuzzleCatalog, deliverer domain.Deliverer, log zerolog.Logger) *Worker {
	return &Worker{
		queue:     queue,
		catalog:   catalog,
		deliverer: deliverer,
		log:       log.With().Str("component", "delivery_worker").Logger(),
		backoff:   time.Second,
	}
}

// Run обрабатывает задания до отмены контекста.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, ack, err := w.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("ошибка чтения очереди")
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.backoff):
			}
			continue
		}
		err = w.Process(ctx, job)
		if ackErr := ack(err == nil); ackErr != nil {
			w.log.Warn().Err(ackErr).Str("job_id", job.ID).Msg("не удалось подтвердить задание")
		}
	}
}

// Process выполняет одно задание.
func (w *Worker) Process(ctx context.Context, job domain.DeliveryJob) error {
	logger := w.log.With().Str("job_id", job.ID).Int64("chat_id", job.ChatID).Str("puzzle", job.PuzzleID).Logger()
	puzzle, ok := w.catalog.Get(job.PuzzleID)
	if !ok {
		logger.Error().Msg("задача не найдена в каталоге")
		return domain.ErrPuzzleNotFound
	}
	if err := w.deliverer.Deliver(ctx, job.ChatID, puzzle, job.Cause); err != nil {
		logger.Error().Err(err).Msg("доставка не удалась")
		return err
	}
	return nil
}
