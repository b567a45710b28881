package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)

	var mu sync.Mutex
	var got []string
	bus.SubscribeFunc(TransactionStatusChanged, func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.(TransactionEvent).Status)
		return nil
	})

	for _, status := range []string{"pending", "confirming", "confirmed"} {
		require.NoError(t, bus.Publish(TransactionEvent{BaseEvent: NewBase(TransactionStatusChanged), Status: status}))
	}
	require.NoError(t, bus.Shutdown(context.Background()))

	assert.Equal(t, []string{"pending", "confirming", "confirmed"}, got)
}

func TestBusWildcardAndUnsubscribe(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)
	defer bus.Shutdown(context.Background())

	var all, routes int
	sub := bus.SubscribeFunc(AllEvents, func(context.Context, Event) error {
		all++
		return nil
	})
	bus.SubscribeFunc(RouteCleared, func(context.Context, Event) error {
		routes++
		return nil
	})
	assert.NotEmpty(t, sub.ID())

	ctx := context.Background()
	require.NoError(t, bus.PublishSync(ctx, RouteClearedEvent{BaseEvent: NewBase(RouteCleared)}))
	require.NoError(t, bus.PublishSync(ctx, QuoteAppliedEvent{BaseEvent: NewBase(QuoteApplied)}))

	sub.Unsubscribe()
	require.NoError(t, bus.PublishSync(ctx, RouteClearedEvent{BaseEvent: NewBase(RouteCleared)}))

	assert.Equal(t, 2, all)
	assert.Equal(t, 2, routes)
}

func TestBusHandlerErrors(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 4)
	defer bus.Shutdown(context.Background())

	boom := errors.New("boom")
	bus.SubscribeFunc(RouteFailed, func(context.Context, Event) error { return boom })

	err := bus.PublishSync(context.Background(), RouteFailedEvent{BaseEvent: NewBase(RouteFailed)})
	assert.ErrorIs(t, err, boom)
}

func TestBusRejectsAfterShutdown(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 4)
	require.NoError(t, bus.Shutdown(context.Background()))

	err := bus.Publish(RouteClearedEvent{BaseEvent: NewBase(RouteCleared)})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 1)
	defer bus.Shutdown(context.Background())

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	bus.SubscribeFunc(RouteCleared, func(context.Context, Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})

	require.NoError(t, bus.Publish(RouteClearedEvent{BaseEvent: NewBase(RouteCleared)}))
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("handler did not start")
	}

	// The dispatcher is blocked: one event fits in the buffer, the next is dropped.
	require.NoError(t, bus.Publish(RouteClearedEvent{BaseEvent: NewBase(RouteCleared)}))
	assert.ErrorIs(t, bus.Publish(RouteClearedEvent{BaseEvent: NewBase(RouteCleared)}), ErrBufferFull)

	close(release)
}
