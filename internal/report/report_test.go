package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"hotelbook/internal/database"
	"hotelbook/internal/domain"
	"hotelbook/internal/inventory"
	"hotelbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func setupExporter(t *testing.T) (*Exporter, *database.DB, *inventory.Ledger) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "report.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.UpsertRoomType(context.Background(), &models.RoomType{
		ID: 1, Code: "STD", Name: "Standard", DefaultMaxSalesQuantity: 2,
		WeekdayPrice: 100, WeekendPrice: 150, Capacity: 2, IsActive: true,
	}))

	logger := zerolog.New(io.Discard)
	ledger := inventory.NewLedger(db, nil, &logger)
	return NewExporter(db, ledger, &logger), db, ledger
}

func TestExporter_Write(t *testing.T) {
	e, db, ledger := setupExporter(t)
	ctx := context.Background()

	_, err := ledger.AdjustBooked(ctx, db, 1, day("2026-03-02"), 1)
	require.NoError(t, err)
	closed := false
	reason := "painting"
	_, err = ledger.SetOverride(ctx, 1, []time.Time{day("2026-03-03")}, models.InventoryOverride{
		IsAvailable: &closed,
		Reason:      &reason,
	})
	require.NoError(t, err)

	require.NoError(t, db.CreateBooking(ctx, &models.Booking{
		Reference: "in-range", RoomTypeID: 1, GuestName: "Ada", GuestEmail: "ada@example.com",
		GuestPhone: "555", CheckIn: day("2026-03-02"), CheckOut: day("2026-03-03"),
		NumberOfGuests: 1, TotalPrice: 100, Status: models.StatusConfirmed,
	}))
	require.NoError(t, db.CreateBooking(ctx, &models.Booking{
		Reference: "out-of-range", RoomTypeID: 1, GuestName: "Bob", GuestEmail: "bob@example.com",
		GuestPhone: "556", CheckIn: day("2026-04-02"), CheckOut: day("2026-04-03"),
		NumberOfGuests: 1, TotalPrice: 100, Status: models.StatusPending,
	}))

	var buf bytes.Buffer
	require.NoError(t, e.Write(ctx, &buf, day("2026-03-01"), day("2026-03-04")))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetInventory, SheetBookings}, f.GetSheetList())

	inv, err := f.GetRows(SheetInventory)
	require.NoError(t, err)
	require.Len(t, inv, 4)
	assert.Equal(t, inventoryColumns, inv[0])
	assert.Equal(t, []string{"2026-03-01", "Standard", "STD", "2", "0", "2", "yes", "100"}, inv[1])
	assert.Equal(t, "1", inv[2][4])
	assert.Equal(t, []string{"2026-03-03", "Standard", "STD", "2", "0", "2", "no", "100", "painting"}, inv[3])

	rows, err := f.GetRows(SheetBookings)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "in-range", rows[1][1])
	assert.Equal(t, "Standard", rows[1][2])
	assert.Equal(t, "confirmed", rows[1][11])
}

func TestExporter_WriteRejectsBadRange(t *testing.T) {
	e, _, _ := setupExporter(t)

	tests := []struct {
		name     string
		from, to string
	}{
		{"empty", "2026-03-01", "2026-03-01"},
		{"reversed", "2026-03-05", "2026-03-01"},
		{"too long", "2026-01-01", "2027-06-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := e.Write(context.Background(), &buf, day(tt.from), day(tt.to))
			assert.True(t, errors.Is(err, domain.ErrValidation))
			assert.Zero(t, buf.Len())
		})
	}
}
