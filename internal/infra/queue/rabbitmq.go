package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Alexey777abakan/bothi/internal/domain"
)

// AMQPGenerationQueue реализует очередь задач генерации поверх RabbitMQ.
type AMQPGenerationQueue struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queue      string
	deliveries <-chan amqp.Delivery
}

// NewAMQPGenerationQueue подключается к RabbitMQ и объявляет durable-очередь.
func NewAMQPGenerationQueue(url, queue string) (*AMQPGenerationQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("подключение к rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("открытие канала rabbitmq: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("объявление очереди %s: %w", queue, err)
	}
	return &AMQPGenerationQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Enqueue публикует задачу в очередь.
func (q *AMQPGenerationQueue) Enqueue(ctx context.Context, job domain.GenerationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *AMQPGenerationQueue) Pop(ctx context.Context) (domain.GenerationJob, error) {
	if q.deliveries == nil {
		deliveries, err := q.ch.Consume(q.queue, "", true, false, false, false, nil)
		if err != nil {
			return domain.GenerationJob{}, fmt.Errorf("consume %s: %w", q.queue, err)
		}
		q.deliveries = deliveries
	}

	select {
	case <-ctx.Done():
		return domain.GenerationJob{}, ctx.Err()
	case msg, ok := <-q.deliveries:
		if !ok {
			return domain.GenerationJob{}, errors.New("amqp queue: канал доставки закрыт")
		}
		var job domain.GenerationJob
		if err := json.Unmarshal(msg.Body, &job); err != nil {
			return domain.GenerationJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}

// Close закрывает канал и соединение.
func (q *AMQPGenerationQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		return err
	}
	return q.conn.Close()
}
