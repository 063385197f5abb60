package models

import "time"

// BookingStatus is a state of the booking lifecycle.
type BookingStatus string

const (
	StatusPending        BookingStatus = "pending"
	StatusConfirmed      BookingStatus = "confirmed"
	StatusPendingPayment BookingStatus = "pending_payment"
	StatusCashOnSite     BookingStatus = "cash_on_site"
	StatusPaid           BookingStatus = "paid"
	StatusCompleted      BookingStatus = "completed"
	StatusCancelled      BookingStatus = "cancelled"
)

// AllStatuses lists every known status in lifecycle order.
var AllStatuses = []BookingStatus{
	StatusPending,
	StatusConfirmed,
	StatusPendingPayment,
	StatusCashOnSite,
	StatusPaid,
	StatusCompleted,
	StatusCancelled,
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// PaymentMethod is how the guest settles the bill. Payment itself is tracked manually.
type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCashOnSite   PaymentMethod = "cash_on_site"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentBankTransfer || m == PaymentCashOnSite
}

// Booking is a guest reservation of one unit of a room type for [CheckIn, CheckOut).
type Booking struct {
	ID             int64         `json:"id"`
	Reference      string        `json:"reference"`
	RoomTypeID     int64         `json:"room_type_id"`
	GuestName      string        `json:"guest_name"`
	GuestEmail     string        `json:"guest_email"`
	GuestPhone     string        `json:"guest_phone"`
	Message        string        `json:"message,omitempty"`
	CheckIn        time.Time     `json:"check_in"`
	CheckOut       time.Time     `json:"check_out"`
	NumberOfGuests int           `json:"number_of_guests"`
	TotalPrice     int64         `json:"total_price"`
	Status         BookingStatus `json:"status"`
	PaymentMethod  PaymentMethod `json:"payment_method,omitempty"`
	AdminMemo      string        `json:"admin_memo,omitempty"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	Version        int64         `json:"version"`
}

// Nights returns the occupied dates of the stay. The check-out date is not included.
func (b *Booking) Nights() []time.Time {
	return DateRange(b.CheckIn, b.CheckOut)
}

// OverlapsWith reports whether the stay intersects [checkIn, checkOut).
// Uses half-open interval semantics: back-to-back stays do not overlap.
func (b *Booking) OverlapsWith(checkIn, checkOut time.Time) bool {
	return checkIn.Before(b.CheckOut) && checkOut.After(b.CheckIn)
}

// CountsAgainstCapacity reports whether the booking occupies a unit for overlap checks.
func (b *Booking) CountsAgainstCapacity() bool {
	return b.Status != StatusCancelled && b.Status != StatusCompleted
}

// HoldsInventory reports whether the booking is still counted in the ledger.
// Cancelled is the single source of truth for "already reversed".
func (b *Booking) HoldsInventory() bool {
	return b.Status != StatusCancelled
}

// BookingFilter narrows admin booking listings. Zero values mean "no constraint".
// CheckInFrom is inclusive and CheckInTo exclusive. StayFrom/StayTo select
// bookings whose stay intersects [StayFrom, StayTo).
type BookingFilter struct {
	Statuses      []BookingStatus
	RoomTypeID    int64
	CheckInFrom   *time.Time
	CheckInTo     *time.Time
	CheckOutOn    *time.Time
	StayFrom      *time.Time
	StayTo        *time.Time
	CreatedBefore *time.Time
	Limit         int
	Offset        int
}
