package models

import (
	"fmt"
	"time"
)

// InventoryRecord is the ledger entry for one room type on one date.
// Nil override fields fall back to the room type defaults.
type InventoryRecord struct {
	RoomTypeID       int64     `json:"room_type_id"`
	Date             time.Time `json:"date"`
	MaxSalesQuantity *int      `json:"max_sales_quantity,omitempty"`
	BookedQuantity   int       `json:"booked_quantity"`
	IsAvailable      bool      `json:"is_available"`
	WeekdayPrice     *int64    `json:"weekday_price,omitempty"`
	WeekendPrice     *int64    `json:"weekend_price,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	Version          int64     `json:"version"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewInventoryRecord builds the lazily created default record for a date.
func NewInventoryRecord(roomTypeID int64, date time.Time) InventoryRecord {
	return InventoryRecord{
		RoomTypeID:  roomTypeID,
		Date:        TruncateDate(date),
		IsAvailable: true,
	}
}

// EffectiveMax returns the per-date override if present, otherwise the room type default.
func (r *InventoryRecord) EffectiveMax(rt *RoomType) int {
	if r.MaxSalesQuantity != nil {
		return *r.MaxSalesQuantity
	}
	if rt == nil {
		return 0
	}
	return rt.DefaultMaxSalesQuantity
}

// Remaining returns how many units are still sellable, never negative.
func (r *InventoryRecord) Remaining(rt *RoomType) int {
	left := r.EffectiveMax(rt) - r.BookedQuantity
	if left < 0 {
		return 0
	}
	return left
}

// PriceFor returns the nightly price, preferring date-specific overrides.
func (r *InventoryRecord) PriceFor(rt *RoomType) int64 {
	if IsWeekend(r.Date) {
		if r.WeekendPrice != nil {
			return *r.WeekendPrice
		}
	} else if r.WeekdayPrice != nil {
		return *r.WeekdayPrice
	}
	if rt == nil {
		return 0
	}
	return rt.PriceFor(r.Date)
}

// InventoryOverride is a staff edit applied to ledger rows. Nil fields are left untouched.
// The Clear flags drop a date-specific value so the date follows the room type default again.
type InventoryOverride struct {
	IsAvailable      *bool   `json:"is_available,omitempty"`
	MaxSalesQuantity *int    `json:"max_sales_quantity,omitempty"`
	WeekdayPrice     *int64  `json:"weekday_price,omitempty"`
	WeekendPrice     *int64  `json:"weekend_price,omitempty"`
	Reason           *string `json:"reason,omitempty"`

	ClearMaxSalesQuantity bool `json:"clear_max_sales_quantity,omitempty"`
	ClearWeekdayPrice     bool `json:"clear_weekday_price,omitempty"`
	ClearWeekendPrice     bool `json:"clear_weekend_price,omitempty"`
}

// IsEmpty reports whether the override changes nothing.
func (o InventoryOverride) IsEmpty() bool {
	return o.IsAvailable == nil && o.MaxSalesQuantity == nil &&
		o.WeekdayPrice == nil && o.WeekendPrice == nil && o.Reason == nil &&
		!o.ClearMaxSalesQuantity && !o.ClearWeekdayPrice && !o.ClearWeekendPrice
}

// Blackout is a date closed for sale by the room type catalog file.
type Blackout struct {
	RoomTypeID int64
	Date       time.Time
	Reason     string
}

// Key identifies the ledger row a blackout applies to.
func (b Blackout) Key() string {
	return fmt.Sprintf("%d/%s", b.RoomTypeID, FormatDate(b.Date))
}
