package models

import "time"

// RoomType is a bookable category of room with its own price and daily sellable quantity.
type RoomType struct {
	ID                      int64     `json:"id"`
	Code                    string    `json:"code"`
	Name                    string    `json:"name"`
	DefaultMaxSalesQuantity int       `json:"default_max_sales_quantity"`
	WeekdayPrice            int64     `json:"weekday_price"`
	WeekendPrice            int64     `json:"weekend_price"`
	Capacity                int       `json:"capacity"`
	IsActive                bool      `json:"is_active"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// PriceFor returns the base nightly price for a night starting on date.
func (rt *RoomType) PriceFor(date time.Time) int64 {
	if IsWeekend(date) {
		return rt.WeekendPrice
	}
	return rt.WeekdayPrice
}
