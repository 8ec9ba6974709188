package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeliveryCause описывает источник отправки задачи.
type DeliveryCause string

const (
	// DeliveryCauseManual: чат запросил задачу командой.
	DeliveryCauseManual DeliveryCause = "manual"
	// DeliveryCauseScheduled: задача из ежедневной рассылки.
	DeliveryCauseScheduled DeliveryCause = "scheduled"
)

// DeliveryJob содержит информацию о задаче доставки пазла в чат.
type DeliveryJob struct {
	ID          string        `json:"job_id"`
	ChatID      int64         `json:"chat_id"`
	PuzzleID    string        `json:"puzzle_id"`
	Cause       DeliveryCause `json:"cause"`
	RequestedAt time.Time     `json:"requested_at"`
}

// NewDeliveryJob создаёт задачу с новым идентификатором.
func NewDeliveryJob(chatID int64, puzzleID string, cause DeliveryCause, now time.Time) DeliveryJob {
	return DeliveryJob{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		PuzzleID:    puzzleID,
		Cause:       cause,
		RequestedAt: now.UTC(),
	}
}

// DeliveryQueue описывает очередь задач доставки.
type DeliveryQueue interface {
	Enqueue(ctx context.Context, job DeliveryJob) error
	Receive(ctx context.Context) (DeliveryJob, AckFunc, error)
}

// AckFunc подтверждает обработку задачи. Повторной доставки нет ни в одном бэкенде.
type AckFunc func(success bool) error
