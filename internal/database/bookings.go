package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hotelbook/internal/domain"
	"hotelbook/internal/models"
)

const bookingColumns = `id, reference, room_type_id, guest_name, guest_email, guest_phone, message,
    check_in, check_out, number_of_guests, total_price, status, payment_method, admin_memo,
    paid_at, created_at, updated_at, version`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var (
		b        models.Booking
		checkIn  string
		checkOut string
		status   string
		method   string
		paidAt   sql.NullTime
	)
	if err := row.Scan(
		&b.ID, &b.Reference, &b.RoomTypeID, &b.GuestName, &b.GuestEmail, &b.GuestPhone, &b.Message,
		&checkIn, &checkOut, &b.NumberOfGuests, &b.TotalPrice, &status, &method, &b.AdminMemo,
		&paidAt, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	); err != nil {
		return nil, err
	}

	var err error
	if b.CheckIn, err = models.ParseDate(checkIn); err != nil {
		return nil, fmt.Errorf("parse check_in %q: %w", checkIn, err)
	}
	if b.CheckOut, err = models.ParseDate(checkOut); err != nil {
		return nil, fmt.Errorf("parse check_out %q: %w", checkOut, err)
	}
	b.Status = models.BookingStatus(status)
	b.PaymentMethod = models.PaymentMethod(method)
	if paidAt.Valid {
		t := paidAt.Time
		b.PaidAt = &t
	}
	return &b, nil
}

// CreateBooking inserts b and fills its id and timestamps.
func (s *store) CreateBooking(ctx context.Context, b *models.Booking) error {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Version = 1

	res, err := s.q.ExecContext(ctx, `
        INSERT INTO bookings (reference, room_type_id, guest_name, guest_email, guest_phone, message,
            check_in, check_out, number_of_guests, total_price, status, payment_method, admin_memo,
            paid_at, created_at, updated_at, version)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference, b.RoomTypeID, b.GuestName, b.GuestEmail, b.GuestPhone, b.Message,
		models.FormatDate(b.CheckIn), models.FormatDate(b.CheckOut), b.NumberOfGuests, b.TotalPrice,
		string(b.Status), string(b.PaymentMethod), b.AdminMemo, b.PaidAt, b.CreatedAt, b.UpdatedAt, b.Version,
	)
	if err != nil {
		return domain.NewStorageError("insert booking", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.NewStorageError("insert booking id", err)
	}
	b.ID = id
	return nil
}

// GetBooking loads a booking by id.
func (s *store) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("booking", id)
	}
	if err != nil {
		return nil, domain.NewStorageError("get booking", err)
	}
	return b, nil
}

// GetBookingByReference loads a booking by its guest-facing reference.
func (s *store) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference = ?`, reference)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("booking", reference)
	}
	if err != nil {
		return nil, domain.NewStorageError("get booking by reference", err)
	}
	return b, nil
}

// UpdateBooking persists the mutable lifecycle fields of b if it is still at b.Version.
func (s *store) UpdateBooking(ctx context.Context, b *models.Booking) error {
	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
        UPDATE bookings SET
            status = ?, payment_method = ?, admin_memo = ?, paid_at = ?,
            updated_at = ?, version = version + 1
        WHERE id = ? AND version = ?`,
		string(b.Status), string(b.PaymentMethod), b.AdminMemo, b.PaidAt, now, b.ID, b.Version,
	)
	if err != nil {
		return domain.NewStorageError(fmt.Sprintf("update booking %d", b.ID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewStorageError("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("booking %d at version %d: %w", b.ID, b.Version, ErrConcurrentModification)
	}
	b.Version++
	b.UpdatedAt = now
	return nil
}

// DeleteBooking removes the booking row.
func (s *store) DeleteBooking(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return domain.NewStorageError(fmt.Sprintf("delete booking %d", id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewStorageError("rows affected", err)
	}
	if n == 0 {
		return notFound("booking", id)
	}
	return nil
}

// ListOverlappingBookings returns bookings of a room type whose stay intersects
// [checkIn, checkOut) and which still count against capacity.
func (s *store) ListOverlappingBookings(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) ([]*models.Booking, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
         WHERE room_type_id = ? AND check_in < ? AND check_out > ?
           AND status NOT IN (?, ?)
         ORDER BY check_in, id`,
		roomTypeID, models.FormatDate(checkOut), models.FormatDate(checkIn),
		string(models.StatusCancelled), string(models.StatusCompleted))
	if err != nil {
		return nil, domain.NewStorageError("list overlapping bookings", err)
	}
	return collectBookings(rows)
}

// ListBookings is the admin read API: bookings matching filter, newest first.
func (s *store) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	var (
		where []string
		args  []any
	)

	if len(filter.Statuses) > 0 {
		marks := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			marks = append(marks, "?")
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if filter.RoomTypeID > 0 {
		where = append(where, "room_type_id = ?")
		args = append(args, filter.RoomTypeID)
	}
	if filter.CheckInFrom != nil {
		where = append(where, "check_in >= ?")
		args = append(args, models.FormatDate(*filter.CheckInFrom))
	}
	if filter.CheckInTo != nil {
		where = append(where, "check_in < ?")
		args = append(args, models.FormatDate(*filter.CheckInTo))
	}
	if filter.CheckOutOn != nil {
		where = append(where, "check_out = ?")
		args = append(args, models.FormatDate(*filter.CheckOutOn))
	}
	if filter.StayFrom != nil {
		where = append(where, "check_out > ?")
		args = append(args, models.FormatDate(*filter.StayFrom))
	}
	if filter.StayTo != nil {
		where = append(where, "check_in < ?")
		args = append(args, models.FormatDate(*filter.StayTo))
	}
	if filter.CreatedBefore != nil {
		where = append(where, "created_at < ?")
		args = append(args, filter.CreatedBefore.UTC())
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStorageError("list bookings", err)
	}
	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]*models.Booking, error) {
	defer rows.Close()

	var out []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, domain.NewStorageError("scan booking", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("iterate bookings", err)
	}
	return out, nil
}
