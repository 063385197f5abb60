package booking

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"hotelbook/internal/availability"
	"hotelbook/internal/database"
	"hotelbook/internal/domain"
	"hotelbook/internal/events"
	"hotelbook/internal/inventory"
	"hotelbook/internal/metrics"
	"hotelbook/internal/models"
	"hotelbook/internal/notify"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Rules are the guest-facing booking limits.
type Rules struct {
	MaxStayNights  int
	MaxAdvanceDays int
}

// CreateRequest is a guest's booking request.
type CreateRequest struct {
	RoomTypeID     int64
	GuestName      string
	GuestEmail     string
	GuestPhone     string
	Message        string
	CheckIn        time.Time
	CheckOut       time.Time
	NumberOfGuests int
}

// Service owns every booking mutation.
//
// Ledger-affecting operations take the room type's single-writer lock, run
// one transaction (check, ledger update, booking write), publish events while
// still holding the lock so observers see them in commit order, and enqueue
// notifications after the lock is released.
type Service struct {
	db        *database.DB
	ledger    *inventory.Ledger
	checker   *availability.Checker
	fsm       *FSM
	publisher inventory.Publisher
	notifier  notify.Sink
	rules     Rules
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(
	db *database.DB,
	ledger *inventory.Ledger,
	checker *availability.Checker,
	publisher inventory.Publisher,
	notifier notify.Sink,
	rules Rules,
	logger *zerolog.Logger,
) *Service {
	if rules.MaxStayNights <= 0 {
		rules.MaxStayNights = 30
	}
	if rules.MaxAdvanceDays <= 0 {
		rules.MaxAdvanceDays = 365
	}
	return &Service{
		db:        db,
		ledger:    ledger,
		checker:   checker,
		fsm:       NewFSM(),
		publisher: publisher,
		notifier:  notifier,
		rules:     rules,
		now:       time.Now,
		logger:    logger.With().Str("component", "booking").Logger(),
	}
}

// Create validates and books one unit of a room type for [CheckIn, CheckOut).
// The new booking starts in pending.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Booking, error) {
	req.CheckIn = models.TruncateDate(req.CheckIn)
	req.CheckOut = models.TruncateDate(req.CheckOut)

	if err := s.validate(req); err != nil {
		metrics.IncRejection("validation")
		return nil, err
	}

	rt, err := s.db.GetRoomType(ctx, req.RoomTypeID)
	if err != nil {
		return nil, err
	}
	if req.NumberOfGuests > rt.Capacity {
		metrics.IncRejection("validation")
		verr := domain.NewValidationError()
		verr.Add("number_of_guests", fmt.Sprintf("room type sleeps at most %d", rt.Capacity))
		return nil, verr
	}

	var created *models.Booking
	err = s.withRoomLock(rt.ID, func() error {
		started := time.Now()
		var records []*models.InventoryRecord
		err := s.db.WithTx(ctx, func(tx *database.Tx) error {
			// Re-read inside the transaction: the catalog may have been resynced.
			current, err := tx.GetRoomType(ctx, rt.ID)
			if err != nil {
				return err
			}
			rt = current

			quote, err := s.checker.Check(ctx, tx, rt, req.CheckIn, req.CheckOut)
			if err != nil {
				return err
			}
			if records, err = s.ledger.ApplyRange(ctx, tx, rt.ID, quote.Nights, 1); err != nil {
				return err
			}

			b := &models.Booking{
				Reference:      uuid.NewString(),
				RoomTypeID:     rt.ID,
				GuestName:      strings.TrimSpace(req.GuestName),
				GuestEmail:     strings.TrimSpace(req.GuestEmail),
				GuestPhone:     strings.TrimSpace(req.GuestPhone),
				Message:        strings.TrimSpace(req.Message),
				CheckIn:        req.CheckIn,
				CheckOut:       req.CheckOut,
				NumberOfGuests: req.NumberOfGuests,
				TotalPrice:     quote.TotalPrice,
				Status:         models.StatusPending,
			}
			if err := tx.CreateBooking(ctx, b); err != nil {
				return err
			}
			created = b
			return nil
		})
		metrics.ObserveLedgerTx("create", started)
		if err != nil {
			return err
		}

		s.publisher.Publish(events.BookingCreated{
			BookingID:  created.ID,
			Reference:  created.Reference,
			RoomTypeID: created.RoomTypeID,
			CheckIn:    models.FormatDate(created.CheckIn),
			CheckOut:   models.FormatDate(created.CheckOut),
			Status:     string(created.Status),
		})
		s.publishAvailability(rt, records)
		return nil
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	metrics.IncBookingCreated(rt.Code)
	s.logger.Info().
		Int64("booking_id", created.ID).
		Int64("room_type_id", created.RoomTypeID).
		Str("check_in", models.FormatDate(created.CheckIn)).
		Str("check_out", models.FormatDate(created.CheckOut)).
		Msg("booking created")
	s.notify(notify.KindBookingReceived, created, rt.Name)
	return created, nil
}

// Confirm moves a pending booking to confirmed.
func (s *Service) Confirm(ctx context.Context, id int64, memo string) (*models.Booking, error) {
	return s.transition(ctx, id, ActionConfirm, memo, nil, notify.KindBookingConfirmed)
}

// SelectPaymentMethod records how a confirmed booking will be paid.
// Bank transfer moves it to pending_payment, cash to cash_on_site.
func (s *Service) SelectPaymentMethod(ctx context.Context, id int64, method models.PaymentMethod, memo string) (*models.Booking, error) {
	switch method {
	case models.PaymentBankTransfer:
		return s.transition(ctx, id, ActionPayByTransfer, memo, func(b *models.Booking) {
			b.PaymentMethod = method
		}, notify.KindPaymentInstructions)
	case models.PaymentCashOnSite:
		return s.transition(ctx, id, ActionPayOnArrival, memo, func(b *models.Booking) {
			b.PaymentMethod = method
		}, notify.KindPayOnArrival)
	default:
		verr := domain.NewValidationError()
		verr.Add("payment_method", "must be bank_transfer or cash_on_site")
		return nil, verr
	}
}

// ConfirmBankTransfer records a received transfer for a pending_payment booking.
func (s *Service) ConfirmBankTransfer(ctx context.Context, id int64, memo string) (*models.Booking, error) {
	return s.transition(ctx, id, ActionConfirmTransfer, memo, s.stampPaid, notify.KindPaymentReceived)
}

// MarkPaid records cash taken at the desk for a cash_on_site booking.
func (s *Service) MarkPaid(ctx context.Context, id int64, memo string) (*models.Booking, error) {
	return s.transition(ctx, id, ActionMarkPaid, memo, s.stampPaid, notify.KindPaymentReceived)
}

// Complete closes a paid booking after the stay.
func (s *Service) Complete(ctx context.Context, id int64, memo string) (*models.Booking, error) {
	return s.transition(ctx, id, ActionComplete, memo, nil, notify.KindBookingCompleted)
}

// Cancel cancels a pending or confirmed booking on behalf of staff.
// Cancelling an already cancelled booking returns it unchanged.
func (s *Service) Cancel(ctx context.Context, id int64, memo string) (*models.Booking, error) {
	return s.cancel(ctx, id, memo)
}

// CancelByGuest cancels a booking after checking the phone number on file.
// A mismatch is reported as not found so references cannot be probed.
func (s *Service) CancelByGuest(ctx context.Context, reference, phone string) (*models.Booking, error) {
	b, err := s.GetForGuest(ctx, reference, phone)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, b.ID, "")
}

// Delete removes a booking in any state. The ledger is released unless the
// booking was already cancelled, which released it before.
func (s *Service) Delete(ctx context.Context, id int64) error {
	b, err := s.db.GetBooking(ctx, id)
	if err != nil {
		return err
	}

	var (
		deleted  *models.Booking
		released bool
		rt       *models.RoomType
	)
	err = s.withRoomLock(b.RoomTypeID, func() error {
		started := time.Now()
		var records []*models.InventoryRecord
		err := s.db.WithTx(ctx, func(tx *database.Tx) error {
			current, err := tx.GetBooking(ctx, id)
			if err != nil {
				return err
			}
			if rt, err = tx.GetRoomType(ctx, current.RoomTypeID); err != nil {
				return err
			}
			if current.HoldsInventory() {
				if records, err = s.ledger.ApplyRange(ctx, tx, current.RoomTypeID, current.Nights(), -1); err != nil {
					return err
				}
				released = true
			}
			if err := tx.DeleteBooking(ctx, id); err != nil {
				return err
			}
			deleted = current
			return nil
		})
		metrics.ObserveLedgerTx("delete", started)
		if err != nil {
			return err
		}

		s.publisher.Publish(events.BookingDeleted{
			BookingID:  deleted.ID,
			Reference:  deleted.Reference,
			RoomTypeID: deleted.RoomTypeID,
		})
		s.publishAvailability(rt, records)
		return nil
	})
	if err != nil {
		return err
	}

	metrics.IncBookingDeleted()
	s.logger.Info().
		Int64("booking_id", deleted.ID).
		Str("status", string(deleted.Status)).
		Bool("released", released).
		Msg("booking deleted")
	s.notify(notify.KindBookingDeleted, deleted, rt.Name)
	return nil
}

// Get returns a booking by id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Booking, error) {
	return s.db.GetBooking(ctx, id)
}

// GetForGuest returns a booking by reference when phone matches the one on file.
func (s *Service) GetForGuest(ctx context.Context, reference, phone string) (*models.Booking, error) {
	b, err := s.db.GetBookingByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !PhonesMatch(b.GuestPhone, phone) {
		return nil, fmt.Errorf("booking %s: %w", reference, domain.ErrNotFound)
	}
	return b, nil
}

// List is the admin read API.
func (s *Service) List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	return s.db.ListBookings(ctx, filter)
}

func (s *Service) cancel(ctx context.Context, id int64, memo string) (*models.Booking, error) {
	b, err := s.db.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		result *models.Booking
		noop   bool
		from   models.BookingStatus
		rt     *models.RoomType
	)
	err = s.withRoomLock(b.RoomTypeID, func() error {
		started := time.Now()
		var records []*models.InventoryRecord
		err := s.db.WithTx(ctx, func(tx *database.Tx) error {
			current, err := tx.GetBooking(ctx, id)
			if err != nil {
				return err
			}
			result = current
			if current.Status == models.StatusCancelled {
				noop = true
				return nil
			}

			to, err := s.fsm.Next(ActionCancel, current.Status)
			if err != nil {
				return err
			}
			if rt, err = tx.GetRoomType(ctx, current.RoomTypeID); err != nil {
				return err
			}
			if records, err = s.ledger.ApplyRange(ctx, tx, current.RoomTypeID, current.Nights(), -1); err != nil {
				return err
			}

			from = current.Status
			current.Status = to
			if memo != "" {
				current.AdminMemo = memo
			}
			return s.updateBooking(ctx, tx, current)
		})
		metrics.ObserveLedgerTx("cancel", started)
		if err != nil || noop {
			return err
		}

		s.publisher.Publish(events.BookingStatusChanged{
			BookingID:  result.ID,
			Reference:  result.Reference,
			RoomTypeID: result.RoomTypeID,
			From:       string(from),
			To:         string(result.Status),
		})
		s.publishAvailability(rt, records)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if noop {
		s.logger.Debug().Int64("booking_id", id).Msg("booking already cancelled")
		return result, nil
	}

	metrics.IncTransition(string(result.Status))
	s.logger.Info().Int64("booking_id", result.ID).Str("from", string(from)).Msg("booking cancelled")
	s.notify(notify.KindBookingCancelled, result, rt.Name)
	return result, nil
}

// transition applies a status-only change.
func (s *Service) transition(
	ctx context.Context,
	id int64,
	action Action,
	memo string,
	mutate func(b *models.Booking),
	kind notify.Kind,
) (*models.Booking, error) {
	b, err := s.db.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		result *models.Booking
		from   models.BookingStatus
	)
	err = s.withRoomLock(b.RoomTypeID, func() error {
		err := s.db.WithTx(ctx, func(tx *database.Tx) error {
			current, err := tx.GetBooking(ctx, id)
			if err != nil {
				return err
			}
			to, err := s.fsm.Next(action, current.Status)
			if err != nil {
				return err
			}

			from = current.Status
			current.Status = to
			if mutate != nil {
				mutate(current)
			}
			if memo != "" {
				current.AdminMemo = memo
			}
			if err := s.updateBooking(ctx, tx, current); err != nil {
				return err
			}
			result = current
			return nil
		})
		if err != nil {
			return err
		}

		s.publisher.Publish(events.BookingStatusChanged{
			BookingID:  result.ID,
			Reference:  result.Reference,
			RoomTypeID: result.RoomTypeID,
			From:       string(from),
			To:         string(result.Status),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrPreconditionFailed) {
			s.logger.Warn().Err(err).Int64("booking_id", id).Str("action", string(action)).Msg("transition rejected")
		}
		return nil, err
	}

	metrics.IncTransition(string(result.Status))
	s.logger.Info().
		Int64("booking_id", result.ID).
		Str("from", string(from)).
		Str("status", string(result.Status)).
		Msg("booking status changed")
	s.notify(kind, result, "")
	return result, nil
}

func (s *Service) updateBooking(ctx context.Context, tx *database.Tx, b *models.Booking) error {
	err := tx.UpdateBooking(ctx, b)
	if errors.Is(err, database.ErrConcurrentModification) {
		return domain.NewStorageError("update booking", err)
	}
	return err
}

func (s *Service) stampPaid(b *models.Booking) {
	now := s.now().UTC()
	b.PaidAt = &now
}

func (s *Service) withRoomLock(roomTypeID int64, fn func() error) error {
	unlock := s.ledger.Lock(roomTypeID)
	defer unlock()
	return fn()
}

func (s *Service) publishAvailability(rt *models.RoomType, records []*models.InventoryRecord) {
	for _, rec := range records {
		s.publisher.Publish(inventory.AvailabilityEvent(rt, rec))
	}
}

func (s *Service) notify(kind notify.Kind, b *models.Booking, roomName string) {
	if s.notifier == nil {
		return
	}
	for _, n := range notify.ForBooking(kind, b, roomName) {
		s.notifier.Enqueue(n)
	}
}

func (s *Service) countRejection(err error) {
	switch {
	case errors.Is(err, domain.ErrCapacityExceeded):
		metrics.IncRejection("capacity_exceeded")
	case errors.Is(err, domain.ErrUnavailable):
		metrics.IncRejection("unavailable")
	case errors.Is(err, domain.ErrValidation):
		metrics.IncRejection("validation")
	}
}

func (s *Service) validate(req CreateRequest) error {
	verr := domain.NewValidationError()

	if req.RoomTypeID <= 0 {
		verr.Add("room_type_id", "required")
	}
	if strings.TrimSpace(req.GuestName) == "" {
		verr.Add("guest_name", "required")
	}
	if strings.TrimSpace(req.GuestEmail) == "" {
		verr.Add("guest_email", "required")
	} else if _, err := mail.ParseAddress(req.GuestEmail); err != nil {
		verr.Add("guest_email", "invalid address")
	}
	if digits(req.GuestPhone) == "" {
		verr.Add("guest_phone", "required")
	}
	if req.NumberOfGuests < 1 {
		verr.Add("number_of_guests", "must be at least 1")
	}

	today := models.TruncateDate(s.now())
	switch {
	case req.CheckIn.IsZero():
		verr.Add("check_in", "required")
	case req.CheckIn.Before(today):
		verr.Add("check_in", "cannot be in the past")
	case req.CheckIn.After(today.AddDate(0, 0, s.rules.MaxAdvanceDays)):
		verr.Add("check_in", fmt.Sprintf("cannot be more than %d days ahead", s.rules.MaxAdvanceDays))
	}
	switch {
	case req.CheckOut.IsZero():
		verr.Add("check_out", "required")
	case !req.CheckOut.After(req.CheckIn):
		verr.Add("check_out", "must be after check_in")
	case len(models.DateRange(req.CheckIn, req.CheckOut)) > s.rules.MaxStayNights:
		verr.Add("check_out", fmt.Sprintf("stay cannot exceed %d nights", s.rules.MaxStayNights))
	}

	return verr.OrNil()
}

// PhonesMatch compares two phone numbers on their digits only.
func PhonesMatch(a, b string) bool {
	da, db := digits(a), digits(b)
	return da != "" && da == db
}

func digits(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
