// Package availability decides whether a stay can be sold and renders the
// per-date availability calendar.
package availability

import (
	"context"
	"time"

	"hotelbook/internal/domain"
	"hotelbook/internal/models"
)

// Reader is the read side needed to check a stay. *database.DB and *database.Tx satisfy it.
type Reader interface {
	ListInventory(ctx context.Context, roomTypeID int64, from, to time.Time) (map[string]*models.InventoryRecord, error)
	ListOverlappingBookings(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) ([]*models.Booking, error)
}

// Quote is the outcome of a successful check.
type Quote struct {
	Nights     []time.Time
	Records    []*models.InventoryRecord
	TotalPrice int64
}

// Checker combines the manual-block, ledger-capacity and overlap checks.
type Checker struct{}

func NewChecker() *Checker {
	return &Checker{}
}

// Check validates [checkIn, checkOut) for one more unit of rt.
//
// A stay is rejected with ErrUnavailable when the room type is inactive or any
// night is manually blocked. It is rejected with ErrCapacityExceeded when, for
// any night, the ledger's booked quantity or the number of overlapping bookings
// that still count against capacity has reached the effective maximum.
// The caller must hold the room type lock and pass the transaction it will
// write through, so the answer cannot go stale before the increment.
func (c *Checker) Check(ctx context.Context, r Reader, rt *models.RoomType, checkIn, checkOut time.Time) (*Quote, error) {
	nights := models.DateRange(checkIn, checkOut)
	if len(nights) == 0 {
		verr := domain.NewValidationError()
		verr.Add("check_out", "must be after check_in")
		return nil, verr
	}

	if !rt.IsActive {
		return nil, &domain.AvailabilityError{
			Kind: domain.ErrUnavailable, RoomTypeID: rt.ID, Reason: "room type is not on sale",
		}
	}

	existing, err := r.ListInventory(ctx, rt.ID, nights[0], checkOut)
	if err != nil {
		return nil, err
	}
	records := make([]*models.InventoryRecord, len(nights))
	for i, d := range nights {
		if rec, ok := existing[models.FormatDate(d)]; ok {
			records[i] = rec
			continue
		}
		rec := models.NewInventoryRecord(rt.ID, d)
		records[i] = &rec
	}

	var blocked []time.Time
	reason := ""
	for _, rec := range records {
		if !rec.IsAvailable {
			blocked = append(blocked, rec.Date)
			if reason == "" {
				reason = rec.Reason
			}
		}
	}
	if len(blocked) > 0 {
		return nil, &domain.AvailabilityError{
			Kind: domain.ErrUnavailable, RoomTypeID: rt.ID, Dates: blocked, Reason: reason,
		}
	}

	overlapping, err := r.ListOverlappingBookings(ctx, rt.ID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	occupied := occupancy(overlapping, nights)

	var full []time.Time
	var total int64
	for i, rec := range records {
		limit := rec.EffectiveMax(rt)
		if rec.BookedQuantity >= limit || occupied[i] >= limit {
			full = append(full, rec.Date)
		}
		total += rec.PriceFor(rt)
	}
	if len(full) > 0 {
		return nil, &domain.AvailabilityError{
			Kind: domain.ErrCapacityExceeded, RoomTypeID: rt.ID, Dates: full,
		}
	}

	return &Quote{Nights: nights, Records: records, TotalPrice: total}, nil
}

// occupancy counts, per night, the bookings that still hold a unit.
func occupancy(bookings []*models.Booking, nights []time.Time) []int {
	counts := make([]int, len(nights))
	for _, b := range bookings {
		if !b.CountsAgainstCapacity() {
			continue
		}
		for i, d := range nights {
			if b.OverlapsWith(d, d.AddDate(0, 0, 1)) {
				counts[i]++
			}
		}
	}
	return counts
}
