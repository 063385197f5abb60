package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hotelbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Name() string { return "mock" }

func (m *mockNotifier) Notify(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type flakyNotifier struct {
	failures int32
	calls    atomic.Int32
	block    time.Duration
}

func (f *flakyNotifier) Name() string { return "flaky" }

func (f *flakyNotifier) Notify(ctx context.Context, _ Notification) error {
	n := f.calls.Add(1)
	if f.block > 0 {
		select {
		case <-time.After(f.block):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n <= f.failures {
		return errors.New("temporary failure")
	}
	return nil
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func testBooking() *models.Booking {
	in, _ := models.ParseDate("2026-03-01")
	out, _ := models.ParseDate("2026-03-03")
	return &models.Booking{
		ID: 7, Reference: "ref-7", GuestName: "Ada", GuestEmail: "ada@example.com", GuestPhone: "+1 555",
		CheckIn: in, CheckOut: out, NumberOfGuests: 2, TotalPrice: 250, RoomTypeID: 1,
	}
}

func TestDispatcher_DeliversToEveryNotifier(t *testing.T) {
	first := new(mockNotifier)
	second := new(mockNotifier)
	n := Notification{Kind: KindBookingReceived, Audience: AudienceGuest, BookingID: 1}
	first.On("Notify", mock.Anything, n).Return(nil).Once()
	second.On("Notify", mock.Anything, n).Return(errors.New("down")).Once()

	d := NewDispatcher(DispatcherConfig{RatePerSecond: 1000}, testLogger(), first, second)
	d.Start(context.Background())
	assert.True(t, d.Enqueue(n))
	d.Close()

	first.AssertExpectations(t)
	second.AssertExpectations(t)
	assert.False(t, d.Enqueue(n), "closed dispatcher rejects notifications")
}

func TestDispatcher_Retries(t *testing.T) {
	f := &flakyNotifier{failures: 2}
	d := NewDispatcher(DispatcherConfig{MaxRetries: 2, RetryBackoff: time.Millisecond, RatePerSecond: 1000}, testLogger(), f)
	d.Start(context.Background())
	d.Enqueue(Notification{Kind: KindBookingConfirmed})
	d.Close()
	assert.Equal(t, int32(3), f.calls.Load())
}

func TestDispatcher_GivesUpAfterRetries(t *testing.T) {
	f := &flakyNotifier{failures: 100}
	d := NewDispatcher(DispatcherConfig{MaxRetries: 1, RetryBackoff: time.Millisecond, RatePerSecond: 1000}, testLogger(), f)
	d.Start(context.Background())
	d.Enqueue(Notification{Kind: KindBookingConfirmed})
	d.Close()
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestDispatcher_AttemptTimeout(t *testing.T) {
	f := &flakyNotifier{block: time.Second}
	d := NewDispatcher(DispatcherConfig{Timeout: 20 * time.Millisecond, RatePerSecond: 1000}, testLogger(), f)
	d.Start(context.Background())

	start := time.Now()
	d.Enqueue(Notification{Kind: KindBookingConfirmed})
	d.Close()
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDispatcher_EnqueueNeverBlocks(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{QueueSize: 1}, testLogger())
	assert.True(t, d.Enqueue(Notification{}))
	assert.False(t, d.Enqueue(Notification{}))
	d.Close()
}

func TestWebhookNotifier(t *testing.T) {
	var hits atomic.Int32
	var status atomic.Int32
	status.Store(http.StatusOK)
	var got Notification
	var mu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&got)
		mu.Unlock()
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	w := NewWebhookNotifier(srv.URL, srv.Client(), testLogger())
	ctx := context.Background()

	require.NoError(t, w.Notify(ctx, Notification{Kind: KindBookingCancelled, Reference: "abc"}))
	mu.Lock()
	assert.Equal(t, "abc", got.Reference)
	mu.Unlock()

	status.Store(http.StatusInternalServerError)
	for i := 0; i < 3; i++ {
		assert.Error(t, w.Notify(ctx, Notification{}))
	}
	assert.Equal(t, gobreaker.StateOpen, w.State())

	before := hits.Load()
	err := w.Notify(ctx, Notification{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, before, hits.Load(), "open breaker does not call the endpoint")
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []*gomail.Message
	err  error
}

func (f *fakeMailer) DialAndSend(m ...*gomail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m...)
	return f.err
}

func TestEmailNotifier(t *testing.T) {
	mailer := &fakeMailer{}
	e := &EmailNotifier{from: "hotel@example.com", staffEmail: "desk@example.com", sender: mailer}
	ctx := context.Background()

	require.NoError(t, e.Notify(ctx, Notification{Audience: AudienceGuest, To: "ada@example.com", Subject: "hi", Body: "b"}))
	require.NoError(t, e.Notify(ctx, Notification{Audience: AudienceStaff, Subject: "staff"}))
	require.NoError(t, e.Notify(ctx, Notification{Audience: AudienceGuest}))

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, []string{"ada@example.com"}, mailer.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"desk@example.com"}, mailer.sent[1].GetHeader("To"))

	mailer.err = errors.New("smtp down")
	assert.Error(t, e.Notify(ctx, Notification{To: "x@example.com"}))
}

type fakeTelegram struct {
	sent []tgbotapi.Chattable
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func TestTelegramNotifier(t *testing.T) {
	bot := &fakeTelegram{}
	tn := &TelegramNotifier{bot: bot, chatID: 42}
	ctx := context.Background()

	require.NoError(t, tn.Notify(ctx, Notification{Audience: AudienceGuest, Subject: "guest only"}))
	require.NoError(t, tn.Notify(ctx, Notification{Audience: AudienceStaff, Subject: "New booking", Body: "details"}))

	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "New booking\n\ndetails", msg.Text)
}

func TestForBooking(t *testing.T) {
	b := testBooking()

	received := ForBooking(KindBookingReceived, b, "Standard")
	require.Len(t, received, 2)
	assert.Equal(t, AudienceGuest, received[0].Audience)
	assert.Equal(t, "ada@example.com", received[0].To)
	assert.Equal(t, "We received your booking ref-7", received[0].Subject)
	assert.Contains(t, received[0].Body, "Room: Standard")
	assert.Contains(t, received[0].Body, "Check-out: 2026-03-03")
	assert.Equal(t, AudienceStaff, received[1].Audience)
	assert.Contains(t, received[1].Body, "Ada")

	deleted := ForBooking(KindBookingDeleted, b, "")
	require.Len(t, deleted, 1)
	assert.Equal(t, AudienceStaff, deleted[0].Audience)

	assert.Nil(t, ForBooking(Kind("unknown"), b, ""))

	summary := CheckOutSummary("2026-03-03", []*models.Booking{b})
	assert.Contains(t, summary.Body, "1 departure(s) on 2026-03-03")
	assert.Contains(t, summary.Body, "ref-7")
}
