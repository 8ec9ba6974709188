package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"chess-puzzle-bot/internal/domain"
	"chess-puzzle-bot/internal/infra/metrics"
)

// RabbitDeliveryQueue реализует очередь задач поверх AMQP 0-9-1.
type RabbitDeliveryQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	once       sync.Once
	deliveries <-chan amqp.Delivery
	consumeErr error
}

var _ domain.DeliveryQueue = (*RabbitDeliveryQueue)(nil)

// NewRabbitDeliveryQueue подключается к брокеру и объявляет durable-очередь.
func NewRabbitDeliveryQueue(amqpURL, queue string) (*RabbitDeliveryQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &RabbitDeliveryQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Enqueue публикует задачу в очередь.
func (q *RabbitDeliveryQueue) Enqueue(ctx context.Context, job domain.DeliveryJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Timestamp:    job.RequestedAt,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу. Неуспешная обработка отбрасывается без повтора.
func (q *RabbitDeliveryQueue) Receive(ctx context.Context) (domain.DeliveryJob, domain.AckFunc, error) {
	q.once.Do(func() {
		q.deliveries, q.consumeErr = q.ch.Consume(q.queue, "", false, false, false, false, nil)
	})
	if q.consumeErr != nil {
		return domain.DeliveryJob{}, nil, fmt.Errorf("consume: %w", q.consumeErr)
	}
	for {
		select {
		case <-ctx.Done():
			return domain.DeliveryJob{}, nil, ctx.Err()
		case d, ok := <-q.deliveries:
			if !ok {
				return domain.DeliveryJob{}, nil, errors.New("rabbitmq: delivery channel closed")
			}
			job, err := decodeJob(d.Body)
			if err != nil {
				_ = d.Nack(false, false)
				return domain.DeliveryJob{}, nil, err
			}
			ack := func(success bool) error {
				if success {
					return d.Ack(false)
				}
				return d.Nack(false, false)
			}
			return job, ack, nil
		}
	}
}

// Close закрывает канал и соединение.
func (q *RabbitDeliveryQueue) Close() error {
	_ = q.ch.Close()
	return q.conn.Close()
}
