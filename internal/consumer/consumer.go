// internal/consumer/consumer.go
package consumer

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"testimonial-api/internal/logger"
	"testimonial-api/internal/metrics"
	"testimonial-api/internal/model"
)

// HandlerFunc processes one decoded feedback.created event. A non-nil error
// dead-letters the delivery.
type HandlerFunc func(ev model.CreatedEvent) error

// Consumer runs a fixed set of workers over one queue subscription.
type Consumer struct {
	QueueName   string
	Channel     *amqp.Channel
	StopChan    chan struct{}
	Handler     HandlerFunc
	ConsumerTag string
	Workers     int

	wg  sync.WaitGroup
	log *zap.SugaredLogger
}

// StartConsumer subscribes to queueName and starts workers goroutines.
func StartConsumer(conn *amqp.Connection, queueName string, workers int, handler HandlerFunc) (*Consumer, error) {
	if workers < 1 {
		workers = 1
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("queue %s: failed to open channel: %w", queueName, err)
	}
	if err := ch.Qos(workers, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue %s: failed to set prefetch: %w", queueName, err)
	}

	consumerTag := fmt.Sprintf("consumer-%s", queueName)
	msgs, err := ch.Consume(
		queueName,
		consumerTag,
		false, // autoAck: false to handle manually
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue %s: failed to start consuming: %w", queueName, err)
	}

	c := newConsumer(queueName, consumerTag, workers, handler)
	c.Channel = ch
	c.run(msgs)

	c.log.Infow("Started consumer", "queue", queueName, "workers", workers)
	return c, nil
}

func newConsumer(queueName, tag string, workers int, handler HandlerFunc) *Consumer {
	return &Consumer{
		QueueName:   queueName,
		StopChan:    make(chan struct{}),
		Handler:     handler,
		ConsumerTag: tag,
		Workers:     workers,
		log:         logger.GetLogger(),
	}
}

func (c *Consumer) run(msgs <-chan amqp.Delivery) {
	for i := 0; i < c.Workers; i++ {
		c.wg.Add(1)
		go c.consumeLoop(msgs)
	}
}

// consumeLoop processes deliveries until StopChan is closed
func (c *Consumer) consumeLoop(msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				c.log.Infow("Delivery channel closed", "queue", c.QueueName)
				return
			}
			c.process(msg)

		case <-c.StopChan:
			return
		}
	}
}

func (c *Consumer) process(msg amqp.Delivery) {
	var ev model.CreatedEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		c.log.Warnw("Dropping malformed event", "queue", c.QueueName, "error", err)
		_ = msg.Reject(false)
		metrics.EventsProcessed.WithLabelValues("rejected").Inc()
		return
	}

	if err := c.Handler(ev); err != nil {
		c.log.Errorw("Event handler failed", "queue", c.QueueName, "id", ev.ID, "error", err)
		_ = msg.Reject(false) // send to DLQ
		metrics.EventsProcessed.WithLabelValues("failed").Inc()
		return
	}

	_ = msg.Ack(false)
	metrics.EventsProcessed.WithLabelValues("ok").Inc()
}

// Stop signals the workers to stop and waits for them
func (c *Consumer) Stop() {
	close(c.StopChan)
	if c.Channel != nil {
		_ = c.Channel.Cancel(c.ConsumerTag, false)
	}
	c.wg.Wait()
	if c.Channel != nil {
		_ = c.Channel.Close()
	}
	c.log.Infow("Stopped consumer", "queue", c.QueueName)
}

// LogHandler reports each new testimonial on the given logger so it can be
// picked up for moderation.
func LogHandler(log *zap.SugaredLogger) HandlerFunc {
	return func(ev model.CreatedEvent) error {
		if ev.ID == "" {
			return fmt.Errorf("event without id")
		}
		fields := []any{"id", ev.ID, "name", ev.Name, "created_at", ev.CreatedAt}
		if ev.Rating != nil {
			fields = append(fields, "rating", *ev.Rating)
		}
		log.Infow("New testimonial received", fields...)
		return nil
	}
}
