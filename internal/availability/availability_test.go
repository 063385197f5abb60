package availability

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"hotelbook/internal/database"
	"hotelbook/internal/domain"
	"hotelbook/internal/events"
	"hotelbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func setupDB(t *testing.T, maxQty int) (*database.DB, *models.RoomType) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "availability.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rt := &models.RoomType{
		ID: 1, Code: "STD", Name: "Standard", DefaultMaxSalesQuantity: maxQty,
		WeekdayPrice: 100, WeekendPrice: 150, Capacity: 2, IsActive: true,
	}
	require.NoError(t, db.UpsertRoomType(context.Background(), rt))
	return db, rt
}

func addBooking(t *testing.T, db *database.DB, ref, in, out string, status models.BookingStatus) {
	t.Helper()
	require.NoError(t, db.CreateBooking(context.Background(), &models.Booking{
		Reference: ref, RoomTypeID: 1, GuestName: "G", GuestEmail: "g@example.com", GuestPhone: "1",
		CheckIn: day(in), CheckOut: day(out), NumberOfGuests: 1, Status: status,
	}))
}

func setBooked(t *testing.T, db *database.DB, date string, booked int) {
	t.Helper()
	ctx := context.Background()
	rec, err := db.EnsureInventory(ctx, 1, day(date))
	require.NoError(t, err)
	require.NoError(t, db.SetBookedQuantity(ctx, 1, day(date), booked, rec.Version))
}

func TestChecker_Check(t *testing.T) {
	ctx := context.Background()
	c := NewChecker()

	t.Run("free stay is quoted", func(t *testing.T) {
		db, rt := setupDB(t, 1)
		// Thu 2026-03-05, Fri 2026-03-06
		q, err := c.Check(ctx, db, rt, day("2026-03-05"), day("2026-03-07"))
		require.NoError(t, err)
		assert.Len(t, q.Nights, 2)
		assert.Equal(t, int64(250), q.TotalPrice)
	})

	t.Run("date price override wins", func(t *testing.T) {
		db, rt := setupDB(t, 1)
		price := int64(80)
		_, err := db.EnsureInventory(ctx, 1, day("2026-03-05"))
		require.NoError(t, err)
		require.NoError(t, db.ApplyOverride(ctx, 1, day("2026-03-05"), models.InventoryOverride{WeekdayPrice: &price}))

		q, err := c.Check(ctx, db, rt, day("2026-03-05"), day("2026-03-06"))
		require.NoError(t, err)
		assert.Equal(t, int64(80), q.TotalPrice)
	})

	t.Run("empty range", func(t *testing.T) {
		db, rt := setupDB(t, 1)
		_, err := c.Check(ctx, db, rt, day("2026-03-05"), day("2026-03-05"))
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})

	t.Run("inactive room type", func(t *testing.T) {
		db, rt := setupDB(t, 1)
		rt.IsActive = false
		_, err := c.Check(ctx, db, rt, day("2026-03-05"), day("2026-03-06"))
		assert.True(t, errors.Is(err, domain.ErrUnavailable))
	})

	t.Run("manual block overrides capacity", func(t *testing.T) {
		db, rt := setupDB(t, 10)
		closed := false
		reason := "maintenance"
		_, err := db.EnsureInventory(ctx, 1, day("2026-03-05"))
		require.NoError(t, err)
		require.NoError(t, db.ApplyOverride(ctx, 1, day("2026-03-05"), models.InventoryOverride{IsAvailable: &closed, Reason: &reason}))

		_, err = c.Check(ctx, db, rt, day("2026-03-03"), day("2026-03-07"))
		require.True(t, errors.Is(err, domain.ErrUnavailable))
		var aerr *domain.AvailabilityError
		require.True(t, errors.As(err, &aerr))
		require.Len(t, aerr.Dates, 1)
		assert.Equal(t, "2026-03-05", models.FormatDate(aerr.Dates[0]))
		assert.Equal(t, "maintenance", aerr.Reason)

		_, err = c.Check(ctx, db, rt, day("2026-03-03"), day("2026-03-05"))
		assert.NoError(t, err, "check-out day is not occupied")
	})

	t.Run("ledger at capacity", func(t *testing.T) {
		db, rt := setupDB(t, 1)
		setBooked(t, db, "2026-03-02", 1)
		_, err := c.Check(ctx, db, rt, day("2026-03-01"), day("2026-03-03"))
		assert.True(t, errors.Is(err, domain.ErrCapacityExceeded))
	})

	t.Run("override quantity below booked", func(t *testing.T) {
		db, rt := setupDB(t, 5)
		setBooked(t, db, "2026-03-02", 2)
		qty := 2
		require.NoError(t, db.ApplyOverride(ctx, 1, day("2026-03-02"), models.InventoryOverride{MaxSalesQuantity: &qty}))
		_, err := c.Check(ctx, db, rt, day("2026-03-02"), day("2026-03-03"))
		assert.True(t, errors.Is(err, domain.ErrCapacityExceeded))
	})

	t.Run("overlapping booking at capacity", func(t *testing.T) {
		db, rt := setupDB(t, 1)
		addBooking(t, db, "a", "2026-03-01", "2026-03-03", models.StatusConfirmed)

		_, err := c.Check(ctx, db, rt, day("2026-03-02"), day("2026-03-04"))
		assert.True(t, errors.Is(err, domain.ErrCapacityExceeded))

		_, err = c.Check(ctx, db, rt, day("2026-03-03"), day("2026-03-05"))
		assert.NoError(t, err, "back-to-back stays do not overlap")
	})

	t.Run("cancelled and completed bookings free the unit", func(t *testing.T) {
		db, rt := setupDB(t, 1)
		addBooking(t, db, "a", "2026-03-01", "2026-03-03", models.StatusCancelled)
		addBooking(t, db, "b", "2026-03-01", "2026-03-03", models.StatusCompleted)
		_, err := c.Check(ctx, db, rt, day("2026-03-01"), day("2026-03-03"))
		assert.NoError(t, err)
	})

	t.Run("multi unit counts per night", func(t *testing.T) {
		db, rt := setupDB(t, 2)
		addBooking(t, db, "a", "2026-03-01", "2026-03-03", models.StatusPending)
		addBooking(t, db, "b", "2026-03-02", "2026-03-04", models.StatusPaid)

		_, err := c.Check(ctx, db, rt, day("2026-03-01"), day("2026-03-02"))
		assert.NoError(t, err)

		_, err = c.Check(ctx, db, rt, day("2026-03-02"), day("2026-03-03"))
		var aerr *domain.AvailabilityError
		require.True(t, errors.As(err, &aerr))
		assert.Equal(t, domain.ErrCapacityExceeded, aerr.Kind)
	})
}

func TestCalendar_Days(t *testing.T) {
	db, _ := setupDB(t, 2)
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	cal := NewCalendar(db, nil, 10, &logger)

	setBooked(t, db, "2026-03-06", 2)
	closed := false
	require.NoError(t, db.ApplyOverride(ctx, 1, day("2026-03-06"), models.InventoryOverride{IsAvailable: &closed}))

	days, err := cal.Days(ctx, 1, day("2026-03-05"), day("2026-03-08"))
	require.NoError(t, err)
	require.Len(t, days, 3)

	assert.Equal(t, DayAvailability{Date: "2026-03-05", Max: 2, Booked: 0, Remaining: 2, Available: true, Price: 100}, days[0])
	assert.Equal(t, 0, days[1].Remaining)
	assert.False(t, days[1].Available)
	assert.Equal(t, int64(150), days[1].Price)
	assert.Equal(t, int64(150), days[2].Price)

	t.Run("range limits", func(t *testing.T) {
		_, err := cal.Days(ctx, 1, day("2026-03-05"), day("2026-03-05"))
		assert.True(t, errors.Is(err, domain.ErrValidation))

		_, err = cal.Days(ctx, 1, day("2026-03-01"), day("2026-03-20"))
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})

	t.Run("unknown room type", func(t *testing.T) {
		_, err := cal.Days(ctx, 9, day("2026-03-05"), day("2026-03-06"))
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestCalendar_RedisCache(t *testing.T) {
	db, _ := setupDB(t, 2)
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cal := NewCalendar(db, NewRedisCache(client, time.Minute), 90, &logger)

	days, err := cal.Days(ctx, 1, day("2026-03-05"), day("2026-03-06"))
	require.NoError(t, err)
	assert.Equal(t, 0, days[0].Booked)

	// Change the ledger behind the cache's back: the cached calendar is served.
	setBooked(t, db, "2026-03-05", 1)
	days, err = cal.Days(ctx, 1, day("2026-03-05"), day("2026-03-06"))
	require.NoError(t, err)
	assert.Equal(t, 0, days[0].Booked)

	// An availability event invalidates it.
	cal.HandleEvent(events.Envelope{Event: events.RoomAvailabilityChanged{RoomTypeID: 1, Date: "2026-03-05"}})
	days, err = cal.Days(ctx, 1, day("2026-03-05"), day("2026-03-06"))
	require.NoError(t, err)
	assert.Equal(t, 1, days[0].Booked)

	gen, err := client.Get(ctx, "availability:gen:1").Int()
	require.NoError(t, err)
	assert.Equal(t, 1, gen)

	// Other event kinds leave the cache alone.
	cal.HandleEvent(events.Envelope{Event: events.BookingDeleted{RoomTypeID: 1}})
	gen, err = client.Get(ctx, "availability:gen:1").Int()
	require.NoError(t, err)
	assert.Equal(t, 1, gen)
}
