package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vindel10/vindel-api/internal/models"
)

func TestHubDeliversToUserOnly(t *testing.T) {
	hub := NewHub(4)
	a := hub.Subscribe("u1")
	b := hub.Subscribe("u2")
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)

	n := hub.Publish("u1", models.NotificationEvent{Type: models.EventCreated, Unread: 1})
	assert.Equal(t, 1, n)

	ev := <-a.Events
	assert.Equal(t, 1, ev.Unread)
	select {
	case <-b.Events:
		t.Fatal("u2 must not receive u1 events")
	default:
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe("u1")
	defer hub.Unsubscribe(sub)

	assert.Equal(t, 1, hub.Publish("u1", models.NotificationEvent{Unread: 1}))
	assert.Equal(t, 0, hub.Publish("u1", models.NotificationEvent{Unread: 2}))
	assert.EqualValues(t, 1, hub.Dropped())
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe("u1")
	require.Equal(t, 1, hub.Subscribers("u1"))

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	_, open := <-sub.Events
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers("u1"))
	assert.Equal(t, 0, hub.Publish("u1", models.NotificationEvent{}))
}

func TestHubConcurrentUse(t *testing.T) {
	hub := NewHub(8)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe("u1")
			hub.Publish("u1", models.NotificationEvent{})
			hub.Unsubscribe(sub)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.Subscribers("u1"))
}
