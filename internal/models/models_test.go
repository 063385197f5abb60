package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDateRange(t *testing.T) {
	t.Run("half open", func(t *testing.T) {
		dates := DateRange(date("2026-03-01"), date("2026-03-03"))
		require.Len(t, dates, 2)
		assert.Equal(t, "2026-03-01", FormatDate(dates[0]))
		assert.Equal(t, "2026-03-02", FormatDate(dates[1]))
	})

	t.Run("empty when reversed", func(t *testing.T) {
		assert.Nil(t, DateRange(date("2026-03-03"), date("2026-03-01")))
		assert.Nil(t, DateRange(date("2026-03-03"), date("2026-03-03")))
	})

	t.Run("crosses month", func(t *testing.T) {
		dates := DateRange(date("2026-02-27"), date("2026-03-02"))
		assert.Len(t, dates, 3)
	})
}

func TestRoomType_PriceFor(t *testing.T) {
	rt := &RoomType{WeekdayPrice: 100, WeekendPrice: 150}

	tests := []struct {
		day  string
		want int64
	}{
		{"2026-03-05", 100}, // Thursday
		{"2026-03-06", 150}, // Friday
		{"2026-03-07", 150}, // Saturday
		{"2026-03-08", 100}, // Sunday
	}
	for _, tt := range tests {
		t.Run(tt.day, func(t *testing.T) {
			assert.Equal(t, tt.want, rt.PriceFor(date(tt.day)))
		})
	}
}

func TestInventoryRecord_Helpers(t *testing.T) {
	rt := &RoomType{DefaultMaxSalesQuantity: 3, WeekdayPrice: 100, WeekendPrice: 150}

	t.Run("defaults", func(t *testing.T) {
		rec := NewInventoryRecord(1, date("2026-03-05"))
		assert.True(t, rec.IsAvailable)
		assert.Equal(t, 3, rec.EffectiveMax(rt))
		assert.Equal(t, 3, rec.Remaining(rt))
		assert.Equal(t, int64(100), rec.PriceFor(rt))
	})

	t.Run("overrides", func(t *testing.T) {
		maxQty := 1
		weekend := int64(300)
		rec := NewInventoryRecord(1, date("2026-03-06"))
		rec.MaxSalesQuantity = &maxQty
		rec.WeekendPrice = &weekend
		rec.BookedQuantity = 2

		assert.Equal(t, 1, rec.EffectiveMax(rt))
		assert.Equal(t, 0, rec.Remaining(rt))
		assert.Equal(t, int64(300), rec.PriceFor(rt))
	})
}

func TestBooking_Helpers(t *testing.T) {
	b := &Booking{CheckIn: date("2026-03-01"), CheckOut: date("2026-03-03"), Status: StatusConfirmed}

	assert.Len(t, b.Nights(), 2)
	assert.True(t, b.OverlapsWith(date("2026-03-02"), date("2026-03-04")))
	assert.False(t, b.OverlapsWith(date("2026-03-03"), date("2026-03-05")))
	assert.False(t, b.OverlapsWith(date("2026-02-27"), date("2026-03-01")))

	assert.True(t, b.CountsAgainstCapacity())
	assert.True(t, b.HoldsInventory())

	b.Status = StatusCompleted
	assert.False(t, b.CountsAgainstCapacity())
	assert.True(t, b.HoldsInventory())

	b.Status = StatusCancelled
	assert.False(t, b.CountsAgainstCapacity())
	assert.False(t, b.HoldsInventory())
}

func TestStatusAndPaymentValid(t *testing.T) {
	assert.True(t, StatusPendingPayment.Valid())
	assert.False(t, BookingStatus("archived").Valid())
	assert.True(t, PaymentCashOnSite.Valid())
	assert.False(t, PaymentMethod("card").Valid())
}
