// Package inventory maintains the per-date booked/sellable ledger for room types.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hotelbook/internal/database"
	"hotelbook/internal/domain"
	"hotelbook/internal/events"
	"hotelbook/internal/metrics"
	"hotelbook/internal/models"

	"github.com/rs/zerolog"
)

const maxCASAttempts = 5

// Store is the ledger persistence used inside a transaction.
// Both *database.DB and *database.Tx satisfy it.
type Store interface {
	GetRoomType(ctx context.Context, id int64) (*models.RoomType, error)
	EnsureInventory(ctx context.Context, roomTypeID int64, date time.Time) (*models.InventoryRecord, error)
	GetInventory(ctx context.Context, roomTypeID int64, date time.Time) (*models.InventoryRecord, error)
	SetBookedQuantity(ctx context.Context, roomTypeID int64, date time.Time, booked int, version int64) error
	ApplyOverride(ctx context.Context, roomTypeID int64, date time.Time, o models.InventoryOverride) error
}

// Publisher receives ledger change events.
type Publisher interface {
	Publish(ev events.Event)
}

// Ledger serializes writers per room type and applies booked-quantity changes
// with a versioned compare-and-swap. Multi-date changes are applied inside the
// caller's transaction so a failure never leaves a partial range.
type Ledger struct {
	db        *database.DB
	publisher Publisher
	locks     keyedMutex
	logger    zerolog.Logger
}

func NewLedger(db *database.DB, publisher Publisher, logger *zerolog.Logger) *Ledger {
	return &Ledger{
		db:        db,
		publisher: publisher,
		locks:     keyedMutex{locks: make(map[int64]*sync.Mutex)},
		logger:    logger.With().Str("component", "inventory").Logger(),
	}
}

// Lock takes the single-writer lock of a room type and returns its release func.
// Every ledger mutation of that room type, and the event publication that
// follows it, must happen while the lock is held.
func (l *Ledger) Lock(roomTypeID int64) (unlock func()) {
	return l.locks.Lock(roomTypeID)
}

// Ensure returns the ledger row for a date, creating the default row if missing.
func (l *Ledger) Ensure(ctx context.Context, s Store, roomTypeID int64, date time.Time) (*models.InventoryRecord, error) {
	return s.EnsureInventory(ctx, roomTypeID, models.TruncateDate(date))
}

// AdjustBooked applies delta to the booked quantity of one date, clamped at zero.
func (l *Ledger) AdjustBooked(ctx context.Context, s Store, roomTypeID int64, date time.Time, delta int) (*models.InventoryRecord, error) {
	for attempt := 1; ; attempt++ {
		rec, err := l.Ensure(ctx, s, roomTypeID, date)
		if err != nil {
			return nil, err
		}

		next := rec.BookedQuantity + delta
		if next < 0 {
			l.logger.Warn().
				Int64("room_type_id", roomTypeID).
				Str("date", models.FormatDate(rec.Date)).
				Int("booked", rec.BookedQuantity).
				Int("delta", delta).
				Msg("booked quantity would go negative, clamping to zero")
			next = 0
		}

		err = s.SetBookedQuantity(ctx, roomTypeID, rec.Date, next, rec.Version)
		if err == nil {
			rec.BookedQuantity = next
			rec.Version++
			return rec, nil
		}
		if !errors.Is(err, database.ErrConcurrentModification) || attempt >= maxCASAttempts {
			return nil, domain.NewStorageError("adjust booked quantity", err)
		}
	}
}

// ApplyRange adjusts every date by delta. It must run inside a transaction.
func (l *Ledger) ApplyRange(ctx context.Context, s Store, roomTypeID int64, dates []time.Time, delta int) ([]*models.InventoryRecord, error) {
	out := make([]*models.InventoryRecord, 0, len(dates))
	for _, d := range dates {
		rec, err := l.AdjustBooked(ctx, s, roomTypeID, d, delta)
		if err != nil {
			return nil, fmt.Errorf("adjust %s: %w", models.FormatDate(d), err)
		}
		out = append(out, rec)
	}
	metrics.AddLedgerAdjustments(delta, len(out))
	return out, nil
}

// SetOverride applies a staff override to every date in one transaction and
// publishes the new state of each date. Repeating the same override is harmless.
func (l *Ledger) SetOverride(ctx context.Context, roomTypeID int64, dates []time.Time, o models.InventoryOverride) ([]*models.InventoryRecord, error) {
	verr := domain.NewValidationError()
	if len(dates) == 0 {
		verr.Add("dates", "at least one date is required")
	}
	if o.IsEmpty() {
		verr.Add("override", "nothing to change")
	}
	if o.MaxSalesQuantity != nil && *o.MaxSalesQuantity < 0 {
		verr.Add("max_sales_quantity", "cannot be negative")
	}
	if (o.WeekdayPrice != nil && *o.WeekdayPrice < 0) || (o.WeekendPrice != nil && *o.WeekendPrice < 0) {
		verr.Add("price", "cannot be negative")
	}
	if o.ClearMaxSalesQuantity && o.MaxSalesQuantity != nil {
		verr.Add("max_sales_quantity", "cannot set and clear at once")
	}
	if (o.ClearWeekdayPrice && o.WeekdayPrice != nil) || (o.ClearWeekendPrice && o.WeekendPrice != nil) {
		verr.Add("price", "cannot set and clear at once")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	unlock := l.Lock(roomTypeID)
	defer unlock()

	started := time.Now()
	var (
		rt      *models.RoomType
		updated []*models.InventoryRecord
	)
	err := l.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		if rt, err = tx.GetRoomType(ctx, roomTypeID); err != nil {
			return err
		}
		updated = updated[:0]
		for _, d := range dates {
			if _, err := l.Ensure(ctx, tx, roomTypeID, d); err != nil {
				return err
			}
			if err := tx.ApplyOverride(ctx, roomTypeID, d, o); err != nil {
				return err
			}
			rec, err := tx.GetInventory(ctx, roomTypeID, d)
			if err != nil {
				return err
			}
			updated = append(updated, rec)
		}
		return nil
	})
	metrics.ObserveLedgerTx("override", started)
	if err != nil {
		return nil, err
	}

	for _, rec := range updated {
		l.PublishAvailability(rt, rec)
	}
	l.logger.Info().Int64("room_type_id", roomTypeID).Int("dates", len(updated)).Msg("inventory override applied")
	return updated, nil
}

// PublishAvailability emits the current state of one ledger row.
func (l *Ledger) PublishAvailability(rt *models.RoomType, rec *models.InventoryRecord) {
	if l.publisher == nil {
		return
	}
	l.publisher.Publish(AvailabilityEvent(rt, rec))
}

// AvailabilityEvent describes a ledger row for observers.
func AvailabilityEvent(rt *models.RoomType, rec *models.InventoryRecord) events.RoomAvailabilityChanged {
	return events.RoomAvailabilityChanged{
		RoomTypeID: rec.RoomTypeID,
		Date:       models.FormatDate(rec.Date),
		Booked:     rec.BookedQuantity,
		Max:        rec.EffectiveMax(rt),
		Remaining:  rec.Remaining(rt),
		Available:  rec.IsAvailable && rt.IsActive && rec.Remaining(rt) > 0,
	}
}

// Records returns the ledger rows in [from, to), with untouched dates filled in with defaults.
func (l *Ledger) Records(ctx context.Context, roomTypeID int64, from, to time.Time) ([]*models.InventoryRecord, error) {
	existing, err := l.db.ListInventory(ctx, roomTypeID, from, to)
	if err != nil {
		return nil, err
	}
	dates := models.DateRange(from, to)
	out := make([]*models.InventoryRecord, 0, len(dates))
	for _, d := range dates {
		if rec, ok := existing[models.FormatDate(d)]; ok {
			out = append(out, rec)
			continue
		}
		rec := models.NewInventoryRecord(roomTypeID, d)
		out = append(out, &rec)
	}
	return out, nil
}
