package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []EventType
	d.Subscribe(EventTalkAdded, func(_ context.Context, e Event) error {
		got = append(got, e.Type)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTalkAdded}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventEmailSent}))
	assert.Equal(t, []EventType{EventTalkAdded}, got)
}

func TestDispatcherRunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	calls := 0
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls++
		return errors.New("first")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated})
	require.ErrorContains(t, err, "first")
	assert.Equal(t, 2, calls)
}

func TestDispatcherWildcardSeesEveryType(t *testing.T) {
	d := NewInMemoryDispatcher()
	var order []string
	d.SubscribeAll(func(_ context.Context, e Event) error {
		order = append(order, "all:"+string(e.Type))
		return nil
	})
	d.Subscribe(EventEmailSent, func(_ context.Context, e Event) error {
		order = append(order, "typed:"+string(e.Type))
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventEmailSent}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventMailIngested}))
	assert.Equal(t, []string{
		"typed:" + string(EventEmailSent),
		"all:" + string(EventEmailSent),
		"all:" + string(EventMailIngested),
	}, order)
}

func TestDispatcherRecoversHandlerPanic(t *testing.T) {
	d := NewInMemoryDispatcher()
	delivered := false
	d.Subscribe(EventTalkAdded, func(context.Context, Event) error {
		panic("boom")
	})
	d.SubscribeAll(func(context.Context, Event) error {
		delivered = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTalkAdded})
	require.ErrorContains(t, err, "panicked: boom")
	assert.True(t, delivered)
}
