package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domoutbox "github.com/Zhima-Mochi/sportsphere/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent string

func (e testEvent) EventName() string { return string(e) }

func TestBusFansOutToSubscribers(t *testing.T) {
	bus := NewBus(nil, WithConcurrency(2))
	var mu sync.Mutex
	got := map[string]int{}
	var wg sync.WaitGroup
	wg.Add(3)
	record := func(tag string) domoutbox.Handler {
		return func(_ context.Context, e domoutbox.Event) error {
			mu.Lock()
			got[tag+":"+e.EventName()]++
			mu.Unlock()
			wg.Done()
			return nil
		}
	}
	bus.Subscribe("order.created", record("a"))
	bus.Subscribe("order.created", record("b"))
	bus.Subscribe("order.paid", record("a"))
	bus.Start(context.Background())

	require.NoError(t, bus.Publish(context.Background(), testEvent("order.created")))
	require.NoError(t, bus.Publish(context.Background(), testEvent("order.paid")))
	require.NoError(t, bus.Publish(context.Background(), testEvent("order.unheard")))
	wg.Wait()

	bus.Stop(context.Background())
	assert.Equal(t, map[string]int{"a:order.created": 1, "b:order.created": 1, "a:order.paid": 1}, got)
}

func TestBusSurvivesFailingHandlers(t *testing.T) {
	bus := NewBus(nil)
	done := make(chan struct{})
	bus.Subscribe("boom", func(context.Context, domoutbox.Event) error { panic("handler bug") })
	bus.Subscribe("boom", func(context.Context, domoutbox.Event) error { return errors.New("nope") })
	bus.Subscribe("ok", func(context.Context, domoutbox.Event) error { close(done); return nil })
	bus.Start(context.Background())

	require.NoError(t, bus.Publish(context.Background(), testEvent("boom")))
	require.NoError(t, bus.Publish(context.Background(), testEvent("ok")))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher stopped after a failing handler")
	}
	bus.Stop(context.Background())
}

func TestBusStopDrainsAndRejects(t *testing.T) {
	bus := NewBus(nil)
	var mu sync.Mutex
	count := 0
	bus.Subscribe("e", func(context.Context, domoutbox.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(context.Background(), testEvent("e")))
	}
	bus.Start(context.Background())
	bus.Stop(context.Background())

	mu.Lock()
	assert.Equal(t, 5, count)
	mu.Unlock()
	assert.ErrorIs(t, bus.Publish(context.Background(), testEvent("e")), ErrStopped)
}

func TestBusPublishHonoursContext(t *testing.T) {
	bus := NewBus(nil, WithQueueSize(1))
	require.NoError(t, bus.Publish(context.Background(), testEvent("e")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Publish(ctx, testEvent("e")), context.DeadlineExceeded)
	assert.NoError(t, bus.Publish(context.Background(), nil))
}
