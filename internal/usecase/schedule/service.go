package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidTimezone возвращается, если указан некорректный часовой пояс.
var ErrInvalidTimezone = errors.New("invalid timezone")

// Trigger запускает ежедневную рассылку. Повторный вызов в тот же день ничего не делает.
type Trigger interface {
	Run(ctx context.Context, now time.Time) error
}

// Scheduler раз в минуту сверяет локальное время с HH:MM рассылки.
type Scheduler struct {
	trigger Trigger
	hour    int
	minute  int
	loc     *time.Location
	log     zerolog.Logger
	tick    time.Duration
}

// LoadLocation находит часовой пояс по имени IANA. Регистр и пробелы вместо подчёркиваний не важны.
func LoadLocation(timezone string) (*time.Location, error) {
	name, err := normalizeTimezone(timezone)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, ErrInvalidTimezone
	}
	return loc, nil
}

// New создаёт планировщик. dailyTime задаётся как "HH:MM" в поясе loc.
func New(trigger Trigger, dailyTime string, loc *time.Location, log zerolog.Logger) (*Scheduler, error) {
	at, err := time.Parse("15:04", strings.TrimSpace(dailyTime))
	if err != nil {
		return nil, fmt.Errorf("время рассылки %q: %w", dailyTime, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		trigger: trigger,
		hour:    at.Hour(),
		minute:  at.Minute(),
		loc:     loc,
		log:     log.With().Str("component", "scheduler").Logger(),
		tick:    time.Minute,
	}, nil
}

// Due сообщает, совпадает ли минута now с временем рассылки.
func (s *Scheduler) Due(now time.Time) bool {
	local := now.In(s.loc)
	return local.Hour() == s.hour && local.Minute() == s.minute
}

// Run проверяет расписание каждую минуту до отмены контекста.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info().Str("at", fmt.Sprintf("%02d:%02d", s.hour, s.minute)).Str("tz", s.loc.String()).Msg("планировщик запущен")
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick выполняет одну проверку расписания.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	if !s.Due(now) {
		return
	}
	if err := s.trigger.Run(ctx, now); err != nil {
		s.log.Error().Err(err).Msg("ежедневная рассылка не удалась")
	}
}

func normalizeTimezone(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", ErrInvalidTimezone
	}
	candidate = strings.ReplaceAll(candidate, " ", "_")
	if _, err := time.LoadLocation(candidate); err == nil {
		return candidate, nil
	}

	lower := strings.ToLower(candidate)
	parts := strings.Split(lower, "/")
	for i, part := range parts {
		segments := strings.Split(part, "_")
		for j, segment := range segments {
			pieces := strings.Split(segment, "-")
			for k, piece := range pieces {
				if piece == "" {
					continue
				}
				pieces[k] = strings.ToUpper(piece[:1]) + piece[1:]
			}
			segments[j] = strings.Join(pieces, "-")
		}
		parts[i] = strings.Join(segments, "_")
	}
	normalized := strings.Join(parts, "/")
	if _, err := time.LoadLocation(normalized); err == nil {
		return normalized, nil
	}
	return "", ErrInvalidTimezone
}
