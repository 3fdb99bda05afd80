package messaging

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

func progressEvent() shared.ProgressChangedEvent {
	return shared.NewProgressChangedEvent(
		"user-1", "ws-1", "social", "post_created", 1, 5, 2,
		time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC),
	)
}

func TestSyncPublishDeliversToSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus(BusConfig{AsyncMode: false})
	defer bus.Close()

	var received []shared.Event
	err := bus.Subscribe(shared.EventProgressChanged, func(e shared.Event) error {
		received = append(received, e)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(progressEvent()))
	require.Len(t, received, 1)
	assert.Equal(t, shared.EventProgressChanged, received[0].EventType())
	assert.Equal(t, "user-1", received[0].AggregateID())
}

func TestPublishIgnoresUnsubscribedTypes(t *testing.T) {
	bus := NewInMemoryEventBus(BusConfig{AsyncMode: false})
	defer bus.Close()

	called := false
	require.NoError(t, bus.Subscribe(shared.EventAchievementEarned, func(e shared.Event) error {
		called = true
		return nil
	}))

	require.NoError(t, bus.Publish(progressEvent()))
	assert.False(t, called)
}

func TestSubscribeAllSeesEverything(t *testing.T) {
	bus := NewInMemoryEventBus(BusConfig{AsyncMode: false})
	defer bus.Close()

	var count int
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		count++
		return nil
	}))

	require.NoError(t, bus.Publish(progressEvent()))
	require.NoError(t, bus.Publish(shared.NewAchievementEarnedEvent(
		"user-1", "ws-1", "ach-1", "First Post", 10, time.Now())))
	assert.Equal(t, 2, count)
}

func TestHandlerErrorDoesNotStopOtherHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(BusConfig{AsyncMode: false})
	defer bus.Close()

	var secondRan bool
	require.NoError(t, bus.Subscribe(shared.EventProgressChanged, func(e shared.Event) error {
		return errors.New("boom")
	}))
	require.NoError(t, bus.Subscribe(shared.EventProgressChanged, func(e shared.Event) error {
		secondRan = true
		return nil
	}))

	require.NoError(t, bus.Publish(progressEvent()))
	assert.True(t, secondRan)
	assert.Equal(t, int64(1), bus.Metrics().Failed(shared.EventProgressChanged))
}

func TestAsyncPublishRunsHandlersBeforeClose(t *testing.T) {
	bus := NewInMemoryEventBus(BusConfig{AsyncMode: true, WorkerPoolSize: 4})

	var handled atomic.Int64
	var wg sync.WaitGroup
	wg.Add(10)
	require.NoError(t, bus.Subscribe(shared.EventProgressChanged, func(e shared.Event) error {
		defer wg.Done()
		handled.Add(1)
		return nil
	}))

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(progressEvent()))
	}
	wg.Wait()
	require.NoError(t, bus.Close())
	assert.Equal(t, int64(10), handled.Load())
}

func TestClosedBusRejectsPublishAndSubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(BusConfig{AsyncMode: false})
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(progressEvent()), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventProgressChanged, func(e shared.Event) error { return nil }), ErrEventBusClosed)
	assert.NoError(t, bus.Close(), "closing twice is a no-op")
}

func TestMetricsCountPublishes(t *testing.T) {
	bus := NewInMemoryEventBus(BusConfig{AsyncMode: false})
	defer bus.Close()

	require.NoError(t, bus.Publish(progressEvent()))
	require.NoError(t, bus.Publish(progressEvent()))
	assert.Equal(t, int64(2), bus.Metrics().Published(shared.EventProgressChanged))
}
