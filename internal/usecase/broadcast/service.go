package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"chess-puzzle-bot/internal/domain"
	"chess-puzzle-bot/internal/infra/metrics"
	"chess-puzzle-bot/internal/usecase/catalog"
)

// onceTTL держит ключ дня дольше суток, чтобы перевод часов не дал второй рассылки.
const onceTTL = 36 * time.Hour

// Claimer выдаёт неопубликованную задачу и сразу помечает её.
type Claimer interface {
	ClaimUnposted(policy catalog.Policy) (domain.Puzzle, error)
}

// Result описывает одну рассылку.
type Result struct {
	Puzzle     domain.Puzzle
	Recipients int
}

// Service рассылает задачу дня подписанным чатам через очередь доставки.
type Service struct {
	claimer  Claimer
	registry domain.ChatRegistry
	queue    domain.DeliveryQueue
	cache    domain.Cache
	policy   catalog.Policy
	loc      *time.Location
	log      zerolog.Logger
}

// NewService создаёт сервис рассылки.
func NewService(claimer Claimer, registry domain.ChatRegistry, queue domain.DeliveryQueue, cache domain.Cache, policy catalog.Policy, loc *time.Location, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		claimer:  claimer,
		registry: registry,
		queue:    queue,
		cache:    cache,
		policy:   policy,
		loc:      loc,
		log:      log.With().Str("component", "broadcast").Logger(),
	}
}

// Run запускает рассылку не чаще раза в календарный день.
func (s *Service) Run(ctx context.Context, now time.Time) error {
	key := "broadcast:" + now.In(s.loc).Format(time.DateOnly)
	return s.cache.Once(ctx, key, onceTTL, func() error {
		_, err := s.Broadcast(ctx)
		return err
	})
}

// Broadcast выбирает задачу и ставит доставку каждому подписанному чату.
// Когда опубликовано всё, рассылки нет и ошибки тоже.
func (s *Service) Broadcast(ctx context.Context) (Result, error) {
	puzzle, err := s.claimer.ClaimUnposted(s.policy)
	if errors.Is(err, domain.ErrEmptyResult) {
		s.log.Warn().Msg("все задачи уже опубликованы, рассылка пропущена")
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("выбор задачи дня: %w", err)
	}

	res := Result{Puzzle: puzzle}
	now := time.Now()
	for chatID, rec := range s.registry.All() {
		if !rec.DailyOptIn {
			continue
		}
		job := domain.NewDeliveryJob(chatID, puzzle.ID, domain.DeliveryCauseScheduled, now)
		if err := s.queue.Enqueue(ctx, job); err != nil {
			metrics.IncDeliveryFailure("enqueue")
			s.log.Error().Err(err).Int64("chat_id", chatID).Msg("не удалось поставить доставку в очередь")
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			continue
		}
		res.Recipients++
	}
	metrics.BroadcastRecipients.Set(float64(res.Recipients))
	s.log.Info().Str("puzzle", puzzle.ID).Int("recipients", res.Recipients).Msg("задача дня разослана")
	return res, nil
}
