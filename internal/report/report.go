// Package report exports the inventory ledger and bookings as an Excel workbook for staff.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"hotelbook/internal/domain"
	"hotelbook/internal/models"

	"github.com/rs/zerolog"
)

// Sheet names of the workbook.
const (
	SheetInventory = "inventory"
	SheetBookings  = "bookings"
)

// MaxDays bounds the date range of one export.
const MaxDays = 366

// Source is what the report reads.
type Source interface {
	ListRoomTypes(ctx context.Context, includeInactive bool) ([]*models.RoomType, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
}

// LedgerReader returns ledger rows for a range with untouched dates filled in.
type LedgerReader interface {
	Records(ctx context.Context, roomTypeID int64, from, to time.Time) ([]*models.InventoryRecord, error)
}

type Exporter struct {
	source Source
	ledger LedgerReader
	logger zerolog.Logger
}

func NewExporter(source Source, ledger LedgerReader, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		source: source,
		ledger: ledger,
		logger: logger.With().Str("component", "report").Logger(),
	}
}

var inventoryColumns = []string{
	"Date", "Room type", "Code", "Max", "Booked", "Remaining", "Available", "Price", "Reason",
}

var bookingColumns = []string{
	"ID", "Reference", "Room type", "Guest", "Email", "Phone", "Check-in", "Check-out",
	"Nights", "Guests", "Total", "Status", "Payment", "Paid at", "Created at", "Memo",
}

// Write renders the workbook for [from, to) to out. The bookings sheet holds
// every booking whose stay intersects the range.
func (e *Exporter) Write(ctx context.Context, out io.Writer, from, to time.Time) error {
	from, to = models.TruncateDate(from), models.TruncateDate(to)
	if !to.After(from) {
		verr := domain.NewValidationError()
		verr.Add("end", "must be after start")
		return verr
	}
	if len(models.DateRange(from, to)) > MaxDays {
		verr := domain.NewValidationError()
		verr.Add("end", fmt.Sprintf("range cannot exceed %d days", MaxDays))
		return verr
	}

	roomTypes, err := e.source.ListRoomTypes(ctx, true)
	if err != nil {
		return err
	}
	bookings, err := e.source.ListBookings(ctx, models.BookingFilter{StayFrom: &from, StayTo: &to})
	if err != nil {
		return err
	}

	w := newSheetWriter()
	defer func() { _ = w.close() }()

	if err := e.writeInventory(ctx, w, roomTypes, from, to); err != nil {
		return err
	}
	if err := writeBookings(w, roomTypes, bookings); err != nil {
		return err
	}
	if err := w.save(out); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info().
		Str("from", models.FormatDate(from)).
		Str("to", models.FormatDate(to)).
		Int("room_types", len(roomTypes)).
		Int("bookings", len(bookings)).
		Msg("report exported")
	return nil
}

func (e *Exporter) writeInventory(ctx context.Context, w *sheetWriter, roomTypes []*models.RoomType, from, to time.Time) error {
	if err := w.addSheet(SheetInventory); err != nil {
		return err
	}
	if err := w.writeHeader(inventoryColumns); err != nil {
		return err
	}

	for _, rt := range roomTypes {
		records, err := e.ledger.Records(ctx, rt.ID, from, to)
		if err != nil {
			return err
		}
		for _, rec := range records {
			row := []any{
				models.FormatDate(rec.Date),
				rt.Name,
				rt.Code,
				rec.EffectiveMax(rt),
				rec.BookedQuantity,
				rec.Remaining(rt),
				yesNo(rec.IsAvailable && rt.IsActive),
				rec.PriceFor(rt),
				rec.Reason,
			}
			if err := w.writeRow(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeBookings(w *sheetWriter, roomTypes []*models.RoomType, bookings []*models.Booking) error {
	if err := w.addSheet(SheetBookings); err != nil {
		return err
	}
	if err := w.writeHeader(bookingColumns); err != nil {
		return err
	}

	names := make(map[int64]string, len(roomTypes))
	for _, rt := range roomTypes {
		names[rt.ID] = rt.Name
	}

	for _, b := range bookings {
		paidAt := ""
		if b.PaidAt != nil {
			paidAt = b.PaidAt.UTC().Format(time.RFC3339)
		}
		row := []any{
			b.ID,
			b.Reference,
			names[b.RoomTypeID],
			b.GuestName,
			b.GuestEmail,
			b.GuestPhone,
			models.FormatDate(b.CheckIn),
			models.FormatDate(b.CheckOut),
			len(b.Nights()),
			b.NumberOfGuests,
			b.TotalPrice,
			string(b.Status),
			string(b.PaymentMethod),
			paidAt,
			b.CreatedAt.UTC().Format(time.RFC3339),
			b.AdminMemo,
		}
		if err := w.writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
