package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chess-puzzle-bot/internal/domain"
	"chess-puzzle-bot/internal/infra/metrics"
)

// RedisDeliveryQueue реализует очередь задач на базе Redis lists.
type RedisDeliveryQueue struct {
	client *redis.Client
	key    string
}

var _ domain.DeliveryQueue = (*RedisDeliveryQueue)(nil)

// NewRedisDeliveryQueue создаёт очередь по указанному ключу.
func NewRedisDeliveryQueue(client *redis.Client, key string) *RedisDeliveryQueue {
	return &RedisDeliveryQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisDeliveryQueue) Enqueue(ctx context.Context, job domain.DeliveryJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", start, err)
	if err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди. Задача снимается с очереди сразу,
// поэтому подтверждение ничего не делает.
func (q *RedisDeliveryQueue) Receive(ctx context.Context) (domain.DeliveryJob, domain.AckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.DeliveryJob{}, nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.DeliveryJob{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.DeliveryJob{}, nil, err
		}
		if len(res) != 2 {
			return domain.DeliveryJob{}, nil, errors.New("redis queue: unexpected response")
		}
		job, err := decodeJob([]byte(res[1]))
		if err != nil {
			return domain.DeliveryJob{}, nil, err
		}
		return job, noopAck, nil
	}
}

func decodeJob(payload []byte) (domain.DeliveryJob, error) {
	var job domain.DeliveryJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return domain.DeliveryJob{}, fmt.Errorf("decode job: %w", err)
	}
	if job.ChatID == 0 || job.PuzzleID == "" {
		return domain.DeliveryJob{}, fmt.Errorf("decode job: missing chat or puzzle id")
	}
	return job, nil
}
