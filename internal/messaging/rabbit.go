// internal/messaging/rabbit.go
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"testimonial-api/internal/logger"
	"testimonial-api/internal/model"
)

const EventFeedbackCreated = "feedback.created"

type RabbitClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	URL     string
	Queue   string

	mu sync.Mutex // serialises publishes on the shared channel
}

func NewRabbitClient(url, queue string) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return &RabbitClient{
		conn:    conn,
		channel: ch,
		URL:     url,
		Queue:   queue,
	}, nil
}

func (r *RabbitClient) GetConnection() *amqp.Connection {
	return r.conn
}

// DeadLetterQueue is the queue rejected events are routed to.
func DeadLetterQueue(queue string) string {
	return queue + "_dlq"
}

// DeclareQueue creates the durable event queue and its dead-letter queue.
func (r *RabbitClient) DeclareQueue() error {
	dlqName := DeadLetterQueue(r.Queue)

	_, err := r.channel.QueueDeclare(
		dlqName,
		true, false, false, false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqName,
	}
	_, err = r.channel.QueueDeclare(
		r.Queue,
		true, false, false, false,
		args,
	)
	if err != nil {
		return fmt.Errorf("declare main queue: %w", err)
	}

	logger.GetLogger().Infow("Queues declared", "queue", r.Queue, "dlq", dlqName)
	return nil
}

// PublishFeedbackCreated sends a feedback.created event to the event queue.
func (r *RabbitClient) PublishFeedbackCreated(ev model.CreatedEvent) error {
	msg, err := newPublishing(ev)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.channel.Publish(
		"",      // default exchange
		r.Queue, // routing key (queue name)
		false,
		false,
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", r.Queue, err)
	}
	return nil
}

func newPublishing(ev model.CreatedEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         EventFeedbackCreated,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}

// Close cleans up connection and channel
func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	if err := r.conn.Close(); err != nil {
		return err
	}
	return nil
}
