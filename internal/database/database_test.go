package database

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hotelbook/internal/config"
	"hotelbook/internal/domain"
	"hotelbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.UpsertRoomType(context.Background(), &models.RoomType{
		ID: 1, Code: "STD", Name: "Standard", DefaultMaxSalesQuantity: 2,
		WeekdayPrice: 100, WeekendPrice: 150, Capacity: 2, IsActive: true,
	}))
	return db
}

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newBooking(ref, in, out string, status models.BookingStatus) *models.Booking {
	return &models.Booking{
		Reference:      ref,
		RoomTypeID:     1,
		GuestName:      "Ada",
		GuestEmail:     "ada@example.com",
		GuestPhone:     "+1 555 0100",
		CheckIn:        day(in),
		CheckOut:       day(out),
		NumberOfGuests: 1,
		TotalPrice:     200,
		Status:         status,
	}
}

func TestRoomTypes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rt, err := db.GetRoomType(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "STD", rt.Code)
	assert.True(t, rt.IsActive)
	assert.False(t, rt.CreatedAt.IsZero())

	_, err = db.GetRoomType(ctx, 99)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	t.Run("SyncRoomTypes deactivates missing", func(t *testing.T) {
		cfg := &config.RoomTypesConfig{RoomTypes: []config.RoomTypeConfig{
			{ID: 2, Code: "STE", Name: "Suite", DefaultMaxSalesQuantity: 1, WeekdayPrice: 300, WeekendPrice: 320, Capacity: 4, IsActive: true},
		}}
		require.NoError(t, db.SyncRoomTypes(ctx, cfg))

		active, err := db.ListRoomTypes(ctx, false)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, int64(2), active[0].ID)

		all, err := db.ListRoomTypes(ctx, true)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestInventory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rec, err := db.EnsureInventory(ctx, 1, day("2026-03-01"))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.BookedQuantity)
	assert.True(t, rec.IsAvailable)
	assert.Nil(t, rec.MaxSalesQuantity)

	t.Run("ensure is idempotent", func(t *testing.T) {
		again, err := db.EnsureInventory(ctx, 1, day("2026-03-01"))
		require.NoError(t, err)
		assert.Equal(t, rec.Version, again.Version)
	})

	t.Run("compare and swap", func(t *testing.T) {
		require.NoError(t, db.SetBookedQuantity(ctx, 1, day("2026-03-01"), 1, rec.Version))
		err := db.SetBookedQuantity(ctx, 1, day("2026-03-01"), 2, rec.Version)
		assert.True(t, errors.Is(err, ErrConcurrentModification))

		got, err := db.GetInventory(ctx, 1, day("2026-03-01"))
		require.NoError(t, err)
		assert.Equal(t, 1, got.BookedQuantity)
		assert.Equal(t, rec.Version+1, got.Version)
	})

	t.Run("negative booked rejected by schema", func(t *testing.T) {
		got, err := db.GetInventory(ctx, 1, day("2026-03-01"))
		require.NoError(t, err)
		err = db.SetBookedQuantity(ctx, 1, day("2026-03-01"), -1, got.Version)
		assert.True(t, errors.Is(err, domain.ErrStorage))
	})

	t.Run("override merges fields", func(t *testing.T) {
		closed := false
		reason := "maintenance"
		price := int64(500)
		require.NoError(t, db.ApplyOverride(ctx, 1, day("2026-03-01"), models.InventoryOverride{
			IsAvailable: &closed, Reason: &reason, WeekdayPrice: &price,
		}))
		qty := 5
		require.NoError(t, db.ApplyOverride(ctx, 1, day("2026-03-01"), models.InventoryOverride{MaxSalesQuantity: &qty}))

		got, err := db.GetInventory(ctx, 1, day("2026-03-01"))
		require.NoError(t, err)
		assert.False(t, got.IsAvailable)
		assert.Equal(t, "maintenance", got.Reason)
		require.NotNil(t, got.WeekdayPrice)
		assert.Equal(t, int64(500), *got.WeekdayPrice)
		require.NotNil(t, got.MaxSalesQuantity)
		assert.Equal(t, 5, *got.MaxSalesQuantity)
		assert.Nil(t, got.WeekendPrice)
	})

	t.Run("list range is half open", func(t *testing.T) {
		_, err := db.EnsureInventory(ctx, 1, day("2026-03-02"))
		require.NoError(t, err)
		_, err = db.EnsureInventory(ctx, 1, day("2026-03-03"))
		require.NoError(t, err)

		recs, err := db.ListInventory(ctx, 1, day("2026-03-01"), day("2026-03-03"))
		require.NoError(t, err)
		assert.Len(t, recs, 2)
		assert.Contains(t, recs, "2026-03-02")
		assert.NotContains(t, recs, "2026-03-03")
	})
}

func TestBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := newBooking("ref-1", "2026-03-01", "2026-03-03", models.StatusPending)
	require.NoError(t, db.CreateBooking(ctx, b))
	assert.NotZero(t, b.ID)

	got, err := db.GetBookingByReference(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, "2026-03-01", models.FormatDate(got.CheckIn))
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.PaidAt)

	t.Run("update with version check", func(t *testing.T) {
		stale := *got
		got.Status = models.StatusConfirmed
		require.NoError(t, db.UpdateBooking(ctx, got))
		assert.Equal(t, int64(2), got.Version)

		stale.Status = models.StatusCancelled
		err := db.UpdateBooking(ctx, &stale)
		assert.True(t, errors.Is(err, ErrConcurrentModification))
	})

	t.Run("paid at round trip", func(t *testing.T) {
		paid := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
		got.PaidAt = &paid
		got.PaymentMethod = models.PaymentCashOnSite
		require.NoError(t, db.UpdateBooking(ctx, got))

		reloaded, err := db.GetBooking(ctx, got.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.PaidAt)
		assert.True(t, paid.Equal(*reloaded.PaidAt))
		assert.Equal(t, models.PaymentCashOnSite, reloaded.PaymentMethod)
	})

	t.Run("overlap query", func(t *testing.T) {
		require.NoError(t, db.CreateBooking(ctx, newBooking("ref-2", "2026-03-03", "2026-03-05", models.StatusPending)))
		require.NoError(t, db.CreateBooking(ctx, newBooking("ref-3", "2026-03-02", "2026-03-04", models.StatusCancelled)))
		require.NoError(t, db.CreateBooking(ctx, newBooking("ref-4", "2026-03-02", "2026-03-04", models.StatusCompleted)))

		overlapping, err := db.ListOverlappingBookings(ctx, 1, day("2026-03-02"), day("2026-03-03"))
		require.NoError(t, err)
		require.Len(t, overlapping, 1)
		assert.Equal(t, "ref-1", overlapping[0].Reference)

		overlapping, err = db.ListOverlappingBookings(ctx, 1, day("2026-03-01"), day("2026-03-06"))
		require.NoError(t, err)
		assert.Len(t, overlapping, 2)
	})

	t.Run("list with filter", func(t *testing.T) {
		all, err := db.ListBookings(ctx, models.BookingFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 4)

		cancelled, err := db.ListBookings(ctx, models.BookingFilter{Statuses: []models.BookingStatus{models.StatusCancelled}})
		require.NoError(t, err)
		require.Len(t, cancelled, 1)
		assert.Equal(t, "ref-3", cancelled[0].Reference)

		from, to := day("2026-03-03"), day("2026-03-04")
		byCheckIn, err := db.ListBookings(ctx, models.BookingFilter{CheckInFrom: &from, CheckInTo: &to})
		require.NoError(t, err)
		require.Len(t, byCheckIn, 1)
		assert.Equal(t, "ref-2", byCheckIn[0].Reference)

		out := day("2026-03-05")
		byCheckOut, err := db.ListBookings(ctx, models.BookingFilter{CheckOutOn: &out})
		require.NoError(t, err)
		assert.Len(t, byCheckOut, 1)

		paged, err := db.ListBookings(ctx, models.BookingFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Len(t, paged, 2)

		future := time.Now().Add(time.Hour)
		old, err := db.ListBookings(ctx, models.BookingFilter{CreatedBefore: &future})
		require.NoError(t, err)
		assert.Len(t, old, 4)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, db.DeleteBooking(ctx, b.ID))
		_, err := db.GetBooking(ctx, b.ID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.True(t, errors.Is(db.DeleteBooking(ctx, b.ID), domain.ErrNotFound))
	})
}

func TestWithTx_RollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.EnsureInventory(ctx, 1, day("2026-04-01")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = db.GetInventory(ctx, 1, day("2026-04-01"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.EnsureInventory(ctx, 1, day("2026-04-01"))
		return err
	}))
	_, err = db.GetInventory(ctx, 1, day("2026-04-01"))
	assert.NoError(t, err)
}

func TestBackupService(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "backups")
	logger := zerolog.New(io.Discard)

	svc := NewBackupService(db, config.BackupConfig{Enabled: true, StoragePath: dir, RetentionDays: 1}, &logger)
	path, err := svc.PerformBackup(ctx)
	require.NoError(t, err)
	assert.FileExists(t, path)

	snapshot, err := NewDB(path)
	require.NoError(t, err)
	defer snapshot.Close()
	rt, err := snapshot.GetRoomType(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "STD", rt.Code)

	old := time.Now().AddDate(0, 0, -3)
	require.NoError(t, os.Chtimes(path, old, old))
	assert.Equal(t, 1, svc.CleanupOldBackups())
	assert.NoFileExists(t, path)
}
