package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerDeliversToAllSubscribers(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Shutdown()

	ctx := context.Background()
	first := broker.Subscribe(ctx)
	second := broker.Subscribe(ctx)
	assert.Equal(t, 2, broker.SubscriberCount())

	broker.Publish(SessionUpdated, "hello")

	for _, ch := range []<-chan Event[string]{first, second} {
		select {
		case event := <-ch:
			assert.Equal(t, SessionUpdated, event.Type)
			assert.Equal(t, "hello", event.Payload)
			assert.NotEmpty(t, event.ID)
			assert.False(t, event.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestBrokerPreservesPublishOrder(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Shutdown()

	ch := broker.Subscribe(context.Background())
	for i := 0; i < 10; i++ {
		broker.Publish(SessionUpdated, i)
	}

	for i := 0; i < 10; i++ {
		select {
		case event := <-ch:
			assert.Equal(t, i, event.Payload)
		case <-time.After(time.Second):
			t.Fatalf("missing event %d", i)
		}
	}
}

func TestBrokerDropsWhenSubscriberBufferFull(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Shutdown()

	ch := broker.Subscribe(context.Background())

	// Overfill the buffer without draining. Publish must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBufferSize*2; i++ {
			broker.Publish(SessionUpdated, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			assert.Equal(t, defaultBufferSize, received)
			return
		}
	}
}

func TestBrokerUnsubscribeOnContextCancel(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)
	require.Equal(t, 1, broker.SubscriberCount())

	cancel()

	require.Eventually(t, func() bool {
		return broker.SubscriberCount() == 0
	}, time.Second, time.Millisecond)

	_, open := <-ch
	assert.False(t, open)
}

func TestBrokerShutdownClosesSubscribers(t *testing.T) {
	broker := NewBroker[string]()
	ch := broker.Subscribe(context.Background())

	broker.Shutdown()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, broker.SubscriberCount())

	// Publishing and subscribing after shutdown are harmless no-ops.
	broker.Publish(SessionUpdated, "late")
	late := broker.Subscribe(context.Background())
	_, open = <-late
	assert.False(t, open)

	broker.Shutdown()
}
