package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/events"
)

type capturePublisher struct {
	channel  string
	payloads [][]byte
	err      error
}

func (p *capturePublisher) Publish(_ context.Context, channel string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.channel = channel
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestNotificationFanOut(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	publisher := &capturePublisher{}
	svc := NewNotificationService(dispatcher, publisher, nil, config.NotificationConfig{RedisChannel: "helpdesk.events"})
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:       "evt-1",
		Type:     events.EventTalkAdded,
		TicketID: "t-1",
		Payload:  events.TalkAddedPayload{TalkID: "talk-1", Unread: true, BodyPreview: "hi"},
	})
	require.NoError(t, err)

	assert.Equal(t, "helpdesk.events", publisher.channel)
	require.Len(t, publisher.payloads, 1)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &decoded))
	assert.Equal(t, "t-1", decoded["ticket_id"])
	assert.Equal(t, string(events.EventTalkAdded), decoded["type"])
}

func TestNotificationWithoutPublisher(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, nil, nil, config.NotificationConfig{RedisChannel: "helpdesk.events"})
	svc.RegisterHandlers()

	assert.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventEmailSent}))
}

func TestNotificationPublishFailureSurfaces(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	publisher := &capturePublisher{err: errors.New("redis down")}
	svc := NewNotificationService(dispatcher, publisher, nil, config.NotificationConfig{RedisChannel: "helpdesk.events"})
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated})
	assert.ErrorContains(t, err, "redis down")
}
