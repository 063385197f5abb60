package api

import (
	"time"

	"hotelbook/internal/models"
)

type createBookingRequest struct {
	RoomTypeID     int64  `json:"room_type_id" validate:"required,gt=0"`
	GuestName      string `json:"guest_name" validate:"required,max=200"`
	GuestEmail     string `json:"guest_email" validate:"required,email,max=254"`
	GuestPhone     string `json:"guest_phone" validate:"required,max=32"`
	Message        string `json:"message" validate:"max=2000"`
	CheckIn        string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut       string `json:"check_out" validate:"required,datetime=2006-01-02"`
	NumberOfGuests int    `json:"number_of_guests" validate:"required,min=1"`
}

type guestCancelRequest struct {
	Phone string `json:"phone" validate:"required,max=32"`
}

type roomTypeRequest struct {
	ID                      int64  `json:"id" validate:"required,gt=0"`
	Code                    string `json:"code" validate:"required,max=32"`
	Name                    string `json:"name" validate:"required,max=200"`
	DefaultMaxSalesQuantity int    `json:"default_max_sales_quantity" validate:"gte=0"`
	WeekdayPrice            int64  `json:"weekday_price" validate:"gte=0"`
	WeekendPrice            int64  `json:"weekend_price" validate:"gte=0"`
	Capacity                int    `json:"capacity" validate:"required,min=1"`
	IsActive                *bool  `json:"is_active"`
}

// inventoryOverrideRequest selects dates either by an explicit list or by the
// half-open range [start, end).
type inventoryOverrideRequest struct {
	Dates            []string `json:"dates" validate:"omitempty,max=366,dive,datetime=2006-01-02"`
	Start            string   `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End              string   `json:"end" validate:"omitempty,datetime=2006-01-02"`
	IsAvailable      *bool    `json:"is_available"`
	MaxSalesQuantity *int     `json:"max_sales_quantity" validate:"omitempty,gte=0"`
	WeekdayPrice     *int64   `json:"weekday_price" validate:"omitempty,gte=0"`
	WeekendPrice     *int64   `json:"weekend_price" validate:"omitempty,gte=0"`
	Reason           *string  `json:"reason" validate:"omitempty,max=200"`

	ClearMaxSalesQuantity bool `json:"clear_max_sales_quantity"`
	ClearWeekdayPrice     bool `json:"clear_weekday_price"`
	ClearWeekendPrice     bool `json:"clear_weekend_price"`
}

type bookingActionRequest struct {
	Memo          string `json:"memo" validate:"max=2000"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=bank_transfer cash_on_site"`
}

type bookingResponse struct {
	ID             int64      `json:"id"`
	Reference      string     `json:"reference"`
	RoomTypeID     int64      `json:"room_type_id"`
	GuestName      string     `json:"guest_name"`
	GuestEmail     string     `json:"guest_email"`
	GuestPhone     string     `json:"guest_phone"`
	Message        string     `json:"message,omitempty"`
	CheckIn        string     `json:"check_in"`
	CheckOut       string     `json:"check_out"`
	Nights         int        `json:"nights"`
	NumberOfGuests int        `json:"number_of_guests"`
	TotalPrice     int64      `json:"total_price"`
	Status         string     `json:"status"`
	PaymentMethod  string     `json:"payment_method,omitempty"`
	AdminMemo      string     `json:"admin_memo,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// toBookingResponse renders a booking. Guests do not see staff memos.
func toBookingResponse(b *models.Booking, admin bool) bookingResponse {
	resp := bookingResponse{
		ID:             b.ID,
		Reference:      b.Reference,
		RoomTypeID:     b.RoomTypeID,
		GuestName:      b.GuestName,
		GuestEmail:     b.GuestEmail,
		GuestPhone:     b.GuestPhone,
		Message:        b.Message,
		CheckIn:        models.FormatDate(b.CheckIn),
		CheckOut:       models.FormatDate(b.CheckOut),
		Nights:         len(b.Nights()),
		NumberOfGuests: b.NumberOfGuests,
		TotalPrice:     b.TotalPrice,
		Status:         string(b.Status),
		PaymentMethod:  string(b.PaymentMethod),
		PaidAt:         b.PaidAt,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	if admin {
		resp.AdminMemo = b.AdminMemo
	}
	return resp
}

type inventoryRecordResponse struct {
	Date             string `json:"date"`
	MaxSalesQuantity *int   `json:"max_sales_quantity,omitempty"`
	BookedQuantity   int    `json:"booked_quantity"`
	IsAvailable      bool   `json:"is_available"`
	WeekdayPrice     *int64 `json:"weekday_price,omitempty"`
	WeekendPrice     *int64 `json:"weekend_price,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

func toInventoryResponse(recs []*models.InventoryRecord) []inventoryRecordResponse {
	out := make([]inventoryRecordResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, inventoryRecordResponse{
			Date:             models.FormatDate(r.Date),
			MaxSalesQuantity: r.MaxSalesQuantity,
			BookedQuantity:   r.BookedQuantity,
			IsAvailable:      r.IsAvailable,
			WeekdayPrice:     r.WeekdayPrice,
			WeekendPrice:     r.WeekendPrice,
			Reason:           r.Reason,
		})
	}
	return out
}
