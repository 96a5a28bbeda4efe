package consumer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"testimonial-api/internal/model"
)

type fakeAcker struct {
	mu       sync.Mutex
	acked    []uint64
	rejected []uint64
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	return f.Reject(tag, requeue)
}

func (f *fakeAcker) Reject(tag uint64, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, tag)
	return nil
}

func (f *fakeAcker) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.acked), len(f.rejected)
}

func delivery(acker amqp.Acknowledger, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: acker, DeliveryTag: tag, Body: []byte(body)}
}

func TestProcess(t *testing.T) {
	var seen []model.CreatedEvent
	c := newConsumer("q", "tag", 1, func(ev model.CreatedEvent) error {
		if ev.ID == "bad" {
			return errors.New("boom")
		}
		seen = append(seen, ev)
		return nil
	})
	acker := &fakeAcker{}

	c.process(delivery(acker, 1, `{"id":"abc","name":"Ada","created_at":"2024-05-01T12:00:00Z"}`))
	c.process(delivery(acker, 2, `not json`))
	c.process(delivery(acker, 3, `{"id":"bad"}`))

	assert.Equal(t, []uint64{1}, acker.acked)
	assert.Equal(t, []uint64{2, 3}, acker.rejected)
	require.Len(t, seen, 1)
	assert.Equal(t, "Ada", seen[0].Name)
}

func TestRunAndStop(t *testing.T) {
	msgs := make(chan amqp.Delivery)
	acker := &fakeAcker{}

	c := newConsumer("q", "tag", 3, func(ev model.CreatedEvent) error { return nil })
	c.run(msgs)

	for i := uint64(1); i <= 10; i++ {
		msgs <- delivery(acker, i, `{"id":"x"}`)
	}

	require.Eventually(t, func() bool {
		acked, _ := acker.counts()
		return acked == 10
	}, time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestLogHandler(t *testing.T) {
	h := LogHandler(zap.NewNop().Sugar())
	rating := 5
	assert.NoError(t, h(model.CreatedEvent{ID: "abc", Name: "Ada", Rating: &rating}))
	assert.Error(t, h(model.CreatedEvent{}))
}
