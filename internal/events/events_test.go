package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	logger := zerolog.New(io.Discard)
	h := NewHub(16, &logger)
	t.Cleanup(h.Close)
	return h
}

func receive(t *testing.T, sub *Subscription) Envelope {
	t.Helper()
	select {
	case env, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Envelope{}
}

func TestEnvelope_MarshalJSON(t *testing.T) {
	env := Envelope{
		Event:     RoomAvailabilityChanged{RoomTypeID: 3, Date: "2026-03-01", Booked: 1, Max: 2, Remaining: 1, Available: true},
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(env)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "room_availability_changed", got["type"])
	assert.Equal(t, "2026-03-01T12:00:00Z", got["timestamp"])
	assert.Equal(t, float64(3), got["room_type_id"])
	assert.Equal(t, "2026-03-01", got["date"])
	assert.Equal(t, true, got["available"])
}

func TestHub_PublishOrderAndStamp(t *testing.T) {
	h := newTestHub(t)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	sub := h.Subscribe(8)
	defer sub.Close()

	h.Publish(BookingCreated{BookingID: 1, RoomTypeID: 1})
	h.Publish(RoomAvailabilityChanged{RoomTypeID: 1, Date: "2026-03-01"})
	h.Publish(RoomAvailabilityChanged{RoomTypeID: 1, Date: "2026-03-02"})

	first := receive(t, sub)
	assert.Equal(t, KindBookingCreated, first.Event.Kind())
	assert.Equal(t, fixed, first.Timestamp)

	second := receive(t, sub)
	third := receive(t, sub)
	assert.Less(t, first.Seq, second.Seq)
	assert.Less(t, second.Seq, third.Seq)
	assert.Equal(t, "2026-03-02", third.Event.(RoomAvailabilityChanged).Date)
}

func TestHub_LateSubscriberGetsNoReplay(t *testing.T) {
	h := newTestHub(t)
	early := h.Subscribe(4)
	h.Publish(BookingDeleted{BookingID: 1, RoomTypeID: 1})
	receive(t, early)

	late := h.Subscribe(4)
	h.Publish(BookingDeleted{BookingID: 2, RoomTypeID: 1})

	env := receive(t, late)
	assert.Equal(t, int64(2), env.Event.(BookingDeleted).BookingID)
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := newTestHub(t)
	slow := h.Subscribe(1)
	fast := h.Subscribe(16)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.Publish(BookingStatusChanged{BookingID: int64(i), RoomTypeID: 1, From: "pending", To: "confirmed"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	for i := 0; i < 10; i++ {
		env := receive(t, fast)
		assert.Equal(t, int64(i), env.Event.(BookingStatusChanged).BookingID)
	}
	receive(t, slow)
}

func TestHub_CloseDisconnects(t *testing.T) {
	logger := zerolog.New(io.Discard)
	h := NewHub(4, &logger)
	sub := h.Subscribe(4)
	assert.Equal(t, 1, h.Subscribers())

	h.Close()
	_, ok := <-sub.C()
	assert.False(t, ok)

	assert.NotPanics(t, func() {
		h.Publish(BookingDeleted{BookingID: 1})
		sub.Close()
		h.Close()
	})
}

type recordingTransport struct {
	mu   sync.Mutex
	seen []Kind
	err  error
}

func (r *recordingTransport) Name() string { return "recording" }

func (r *recordingTransport) Send(_ context.Context, env Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, env.Event.Kind())
	return r.err
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestHub_HandlersAndTransports(t *testing.T) {
	h := newTestHub(t)

	var mu sync.Mutex
	var handled []int64
	h.Handle(func(env Envelope) {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, env.Event.RoomType())
	})
	h.Handle(func(Envelope) { panic("handler bug") })

	ok := &recordingTransport{}
	failing := &recordingTransport{err: errors.New("down")}
	h.AddTransport(failing)
	h.AddTransport(ok)

	h.Publish(BookingCreated{BookingID: 1, RoomTypeID: 7})
	h.Publish(BookingCreated{BookingID: 2, RoomTypeID: 8})

	assert.Eventually(t, func() bool { return ok.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, failing.count())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{7, 8}, handled)
}

func TestRedisTransport(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	pubsub := client.Subscribe(ctx, "test:events")
	defer pubsub.Close()
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	tr := NewRedisTransport(client, "test:events")
	require.NoError(t, tr.Send(ctx, Envelope{
		Event:     BookingStatusChanged{BookingID: 5, Reference: "abc", RoomTypeID: 2, From: "pending", To: "cancelled"},
		Timestamp: time.Now(),
	}))

	select {
	case msg := <-pubsub.Channel():
		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "booking_status_changed", got["type"])
		assert.Equal(t, "cancelled", got["to"])
		assert.Contains(t, got, "timestamp")
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
