// Package notify delivers best-effort outbound notifications about bookings.
// Nothing here is on the transactional path: callers enqueue after commit and
// failures are logged and counted, never returned to the booking operation.
package notify

import "context"

// Audience selects who a notification is for.
type Audience string

const (
	AudienceGuest Audience = "guest"
	AudienceStaff Audience = "staff"
)

// Kind identifies the template of a notification.
type Kind string

const (
	KindBookingReceived     Kind = "booking_received"
	KindBookingConfirmed    Kind = "booking_confirmed"
	KindPaymentInstructions Kind = "payment_instructions"
	KindPayOnArrival        Kind = "pay_on_arrival"
	KindPaymentReceived     Kind = "payment_received"
	KindBookingCompleted    Kind = "booking_completed"
	KindBookingCancelled    Kind = "booking_cancelled"
	KindBookingDeleted      Kind = "booking_deleted"
	KindCheckInReminder     Kind = "check_in_reminder"
	KindPendingExpired      Kind = "pending_expired"
	KindCheckOutSummary     Kind = "check_out_summary"
)

// Notification is one outbound message.
type Notification struct {
	Kind      Kind     `json:"kind"`
	Audience  Audience `json:"audience"`
	BookingID int64    `json:"booking_id,omitempty"`
	Reference string   `json:"reference,omitempty"`
	To        string   `json:"to,omitempty"`
	Subject   string   `json:"subject"`
	Body      string   `json:"body"`
}

// Notifier sends a notification over one channel.
// Notifiers return nil for notifications that do not apply to their channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

// Sink accepts notifications for asynchronous delivery.
type Sink interface {
	Enqueue(n Notification) bool
}
