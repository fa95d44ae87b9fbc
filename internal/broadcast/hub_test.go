package broadcast

import (
	"testing"
	"time"

	"lxcloud/internal/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitForTest()
	m.Run()
}

func TestPublishReachesSubscribers(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	event := ScreenUpdate{
		ScreenID:     uuid.New(),
		SerialNumber: "SN-100",
		OnlineStatus: true,
		Information:  "hello",
		Timestamp:    time.Now(),
	}
	hub.Publish(event)

	select {
	case got := <-sub.Events():
		assert.Equal(t, event.SerialNumber, got.SerialNumber)
		assert.Equal(t, event.Information, got.Information)
	case <-time.After(time.Second):
		t.Fatal("expected event was not delivered")
	}
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	// Nobody reads from sub; the buffer fills and further events drop.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(ScreenUpdate{SerialNumber: "SN-100"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// Exactly the buffered event is available.
	require.Len(t, sub.Events(), 1)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe()
	require.Equal(t, 1, hub.SubscriberCount())

	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.SubscriberCount())

	_, open := <-sub.Events()
	assert.False(t, open)

	// Unsubscribing twice is harmless.
	hub.Unsubscribe(sub)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(4)
	hub.Publish(ScreenUpdate{SerialNumber: "SN-100"})
}
