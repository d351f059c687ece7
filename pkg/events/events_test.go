package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&Event{
		Type:     EventTaskQueued,
		Metadata: map[string]string{"task_id": "t1"},
	})

	select {
	case event := <-sub:
		assert.Equal(t, EventTaskQueued, event.Type)
		assert.Equal(t, "t1", event.Metadata["task_id"])
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub1 := broker.Subscribe()
	sub2 := broker.Subscribe()
	require.Equal(t, 2, broker.SubscriberCount())

	broker.Publish(&Event{Type: EventModuleAvailable})

	for _, sub := range []Subscriber{sub1, sub2} {
		select {
		case event := <-sub:
			assert.Equal(t, EventModuleAvailable, event.Type)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}

	broker.Unsubscribe(sub1)
	assert.Equal(t, 1, broker.SubscriberCount())
	broker.Unsubscribe(sub2)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	// Never read from this subscriber; its buffer fills and further
	// events are dropped rather than stalling the broker
	_ = broker.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			broker.Publish(&Event{Type: EventAssetAvailable})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("broker stalled on a slow subscriber")
	}
}
