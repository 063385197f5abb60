package notify

import (
	"fmt"
	"strings"

	"hotelbook/internal/models"
)

type template struct {
	guest string
	staff string
	body  string
}

var templates = map[Kind]template{
	KindBookingReceived: {
		guest: "We received your booking %s",
		staff: "New booking %s",
		body:  "Your request is pending review. We will confirm it shortly.",
	},
	KindBookingConfirmed: {
		guest: "Booking %s confirmed",
		body:  "Your stay is confirmed. Please choose bank transfer or payment on arrival.",
	},
	KindPaymentInstructions: {
		guest: "Payment instructions for booking %s",
		body:  "Please transfer the total amount quoting your booking reference.",
	},
	KindPayOnArrival: {
		guest: "Booking %s: pay on arrival",
		body:  "The total amount is payable at the front desk on arrival.",
	},
	KindPaymentReceived: {
		guest: "Payment received for booking %s",
		body:  "Thank you, we have recorded your payment.",
	},
	KindBookingCompleted: {
		guest: "Thank you for staying with us (%s)",
		body:  "We hope to welcome you again.",
	},
	KindBookingCancelled: {
		guest: "Booking %s cancelled",
		staff: "Booking %s cancelled",
		body:  "The booking has been cancelled and the dates released.",
	},
	KindBookingDeleted: {
		staff: "Booking %s deleted",
		body:  "The booking was removed by staff.",
	},
	KindCheckInReminder: {
		guest: "See you tomorrow (booking %s)",
		body:  "This is a reminder that your stay starts tomorrow.",
	},
	KindPendingExpired: {
		staff: "Booking %s is still pending",
		body:  "This booking has been waiting for confirmation longer than expected.",
	},
}

// ForBooking renders the notifications of kind for b. roomName may be empty.
func ForBooking(kind Kind, b *models.Booking, roomName string) []Notification {
	tpl, ok := templates[kind]
	if !ok {
		return nil
	}

	details := bookingDetails(b, roomName)
	var out []Notification
	if tpl.guest != "" && b.GuestEmail != "" {
		out = append(out, Notification{
			Kind:      kind,
			Audience:  AudienceGuest,
			BookingID: b.ID,
			Reference: b.Reference,
			To:        b.GuestEmail,
			Subject:   fmt.Sprintf(tpl.guest, b.Reference),
			Body:      tpl.body + "\n\n" + details,
		})
	}
	if tpl.staff != "" {
		out = append(out, Notification{
			Kind:      kind,
			Audience:  AudienceStaff,
			BookingID: b.ID,
			Reference: b.Reference,
			Subject:   fmt.Sprintf(tpl.staff, b.Reference),
			Body:      tpl.body + "\n\n" + details + "\nGuest: " + b.GuestName + ", " + b.GuestPhone,
		})
	}
	return out
}

// CheckOutSummary renders the daily staff digest of departures.
func CheckOutSummary(date string, bookings []*models.Booking) Notification {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d departure(s) on %s\n", len(bookings), date)
	for _, b := range bookings {
		fmt.Fprintf(&sb, "- %s %s (room type %d, %s)\n", b.Reference, b.GuestName, b.RoomTypeID, b.Status)
	}
	return Notification{
		Kind:     KindCheckOutSummary,
		Audience: AudienceStaff,
		Subject:  "Check-outs for " + date,
		Body:     sb.String(),
	}
}

func bookingDetails(b *models.Booking, roomName string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Reference: %s\n", b.Reference)
	if roomName != "" {
		fmt.Fprintf(&sb, "Room: %s\n", roomName)
	}
	fmt.Fprintf(&sb, "Check-in: %s\nCheck-out: %s\nGuests: %d\nTotal: %d\n",
		models.FormatDate(b.CheckIn), models.FormatDate(b.CheckOut), b.NumberOfGuests, b.TotalPrice)
	return sb.String()
}
