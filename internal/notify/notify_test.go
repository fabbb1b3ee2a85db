package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_JSON(t *testing.T) {
	ev := Event{
		Type:    EventOrderPlaced,
		OrderID: "o1",
		UserID:  "alice",
		Status:  "pending",
		Total:   "67.98",
		At:      time.Date(2025, 9, 28, 12, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"order_placed","order_id":"o1","user_id":"alice","status":"pending","total":"67.98","at":"2025-09-28T12:00:00Z"}`, string(data))
}

func TestLogNotifier(t *testing.T) {
	var n Notifier = NewLogNotifier()
	assert.NoError(t, n.Notify(context.Background(), Event{Type: EventStatusChanged, OrderID: "o1"}))
	assert.NoError(t, n.Close(context.Background()))
}

// Produce is asynchronous: an unreachable broker never fails Notify.
func TestKafkaNotifier_NotifyDoesNotBlock(t *testing.T) {
	n, err := NewKafkaNotifier(KafkaConfig{Brokers: []string{"127.0.0.1:1"}, Topic: "order-events"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	assert.NoError(t, n.Notify(ctx, Event{Type: EventOrderPlaced, OrderID: "o1", At: time.Now()}))
	cancel()

	closeCtx, stop := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer stop()
	_ = n.Close(closeCtx)
}

// With the broker gone and the buffer full, Notify must still return at once
// and the surplus events are dropped.
func TestKafkaNotifier_FullBufferDrops(t *testing.T) {
	n, err := NewKafkaNotifier(KafkaConfig{
		Brokers:         []string{"127.0.0.1:1"},
		Topic:           "order-events",
		DeliveryTimeout: time.Hour,
		MaxBuffered:     1,
	})
	require.NoError(t, err)

	const events = 50
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < events; i++ {
			_ = n.Notify(context.Background(), Event{Type: EventOrderPlaced, OrderID: "o1", At: time.Now()})
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Notify blocked on a full buffer")
	}
	assert.Eventually(t, func() bool { return n.Dropped() >= events-1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = n.Close(ctx)
}
