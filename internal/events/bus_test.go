package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petalcrumb/pos-engine/internal/events"
)

type stubStore struct {
	nextID int64
	last   events.Event
}

func (s *stubStore) Insert(_ context.Context, topic, aggregateID string, payload []byte) (events.Event, error) {
	s.nextID++
	s.last = events.Event{
		ID:          s.nextID,
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now().UTC(),
	}
	return s.last, nil
}

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	bus := events.Bus{
		Store:     store,
		Notifiers: []events.Notifier{notifier},
	}

	payload := map[string]any{"orderId": "123"}
	ctx := context.Background()
	event, err := bus.Emit(ctx, events.TopicOrderSubmitted, "sess-1", payload)
	require.NoError(t, err)
	require.Equal(t, events.TopicOrderSubmitted, store.last.Topic)
	require.Equal(t, "sess-1", store.last.AggregateID)
	require.JSONEq(t, `{"orderId":"123"}`, string(store.last.Payload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, "123", decoded["orderId"])
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	store := &stubStore{}
	broken := &captureNotifier{err: errors.New("amqp down")}
	healthy := &captureNotifier{}
	bus := events.Bus{
		Store:     store,
		Notifiers: []events.Notifier{broken, healthy},
	}

	event, err := bus.Emit(context.Background(), events.TopicOrderParked, "sess-2", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "amqp down")

	// The event is still persisted and every notifier still runs.
	require.NotZero(t, event.ID)
	require.Len(t, broken.events, 1)
	require.Len(t, healthy.events, 1)
}

func TestEmitRejectsInvalidPayload(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), events.TopicPaymentRecorded, "sess-3", json.RawMessage("not json"))
	require.Error(t, err)
}
