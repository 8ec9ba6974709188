package queue

import (
	"context"

	"chess-puzzle-bot/internal/domain"
)

// MemoryDeliveryQueue держит очередь в памяти процесса на буферизованном канале.
type MemoryDeliveryQueue struct {
	jobs chan domain.DeliveryJob
}

var _ domain.DeliveryQueue = (*MemoryDeliveryQueue)(nil)

// NewMemoryDeliveryQueue создаёт очередь ёмкостью size.
func NewMemoryDeliveryQueue(size int) *MemoryDeliveryQueue {
	if size <= 0 {
		size = 1
	}
	return &MemoryDeliveryQueue{jobs: make(chan domain.DeliveryJob, size)}
}

// Enqueue кладёт задачу в очередь, ожидая свободного места.
func (q *MemoryDeliveryQueue) Enqueue(ctx context.Context, job domain.DeliveryJob) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive блокирующе читает задачу из очереди.
func (q *MemoryDeliveryQueue) Receive(ctx context.Context) (domain.DeliveryJob, domain.AckFunc, error) {
	select {
	case job := <-q.jobs:
		return job, noopAck, nil
	case <-ctx.Done():
		return domain.DeliveryJob{}, nil, ctx.Err()
	}
}

// Len возвращает количество ожидающих задач.
func (q *MemoryDeliveryQueue) Len() int {
	return len(q.jobs)
}

func noopAck(bool) error { return nil }
