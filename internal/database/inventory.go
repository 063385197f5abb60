package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotelbook/internal/domain"
	"hotelbook/internal/models"
)

const inventoryColumns = `room_type_id, date, max_sales_quantity, booked_quantity, is_available,
    weekday_price, weekend_price, reason, version, updated_at`

func scanInventory(row interface{ Scan(...any) error }) (*models.InventoryRecord, error) {
	var (
		rec          models.InventoryRecord
		date         string
		maxSales     sql.NullInt64
		weekdayPrice sql.NullInt64
		weekendPrice sql.NullInt64
		updatedAt    sql.NullTime
	)
	if err := row.Scan(
		&rec.RoomTypeID, &date, &maxSales, &rec.BookedQuantity, &rec.IsAvailable,
		&weekdayPrice, &weekendPrice, &rec.Reason, &rec.Version, &updatedAt,
	); err != nil {
		return nil, err
	}

	d, err := models.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("parse inventory date %q: %w", date, err)
	}
	rec.Date = d
	if maxSales.Valid {
		v := int(maxSales.Int64)
		rec.MaxSalesQuantity = &v
	}
	if weekdayPrice.Valid {
		v := weekdayPrice.Int64
		rec.WeekdayPrice = &v
	}
	if weekendPrice.Valid {
		v := weekendPrice.Int64
		rec.WeekendPrice = &v
	}
	rec.UpdatedAt = updatedAt.Time
	return &rec, nil
}

// EnsureInventory returns the ledger row for (roomTypeID, date), creating the
// default row on first touch.
func (s *store) EnsureInventory(ctx context.Context, roomTypeID int64, date time.Time) (*models.InventoryRecord, error) {
	day := models.FormatDate(models.TruncateDate(date))
	if _, err := s.q.ExecContext(ctx, `
        INSERT INTO room_inventory (room_type_id, date, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT(room_type_id, date) DO NOTHING`,
		roomTypeID, day, time.Now().UTC(),
	); err != nil {
		return nil, domain.NewStorageError(fmt.Sprintf("ensure inventory %d/%s", roomTypeID, day), err)
	}
	return s.GetInventory(ctx, roomTypeID, date)
}

// GetInventory loads one ledger row.
func (s *store) GetInventory(ctx context.Context, roomTypeID int64, date time.Time) (*models.InventoryRecord, error) {
	day := models.FormatDate(models.TruncateDate(date))
	row := s.q.QueryRowContext(ctx,
		`SELECT `+inventoryColumns+` FROM room_inventory WHERE room_type_id = ? AND date = ?`,
		roomTypeID, day)
	rec, err := scanInventory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("inventory", fmt.Sprintf("%d/%s", roomTypeID, day))
	}
	if err != nil {
		return nil, domain.NewStorageError("get inventory", err)
	}
	return rec, nil
}

// ListInventory returns existing ledger rows for dates in [from, to), keyed by YYYY-MM-DD.
// Dates never touched have no row.
func (s *store) ListInventory(ctx context.Context, roomTypeID int64, from, to time.Time) (map[string]*models.InventoryRecord, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+inventoryColumns+` FROM room_inventory
         WHERE room_type_id = ? AND date >= ? AND date < ?
         ORDER BY date`,
		roomTypeID, models.FormatDate(from), models.FormatDate(to))
	if err != nil {
		return nil, domain.NewStorageError("list inventory", err)
	}
	defer rows.Close()

	out := make(map[string]*models.InventoryRecord)
	for rows.Next() {
		rec, err := scanInventory(rows)
		if err != nil {
			return nil, domain.NewStorageError("scan inventory", err)
		}
		out[models.FormatDate(rec.Date)] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list inventory", err)
	}
	return out, nil
}

// SetBookedQuantity writes booked_quantity if the row is still at version.
// It returns ErrConcurrentModification when another writer got there first.
func (s *store) SetBookedQuantity(ctx context.Context, roomTypeID int64, date time.Time, booked int, version int64) error {
	day := models.FormatDate(models.TruncateDate(date))
	res, err := s.q.ExecContext(ctx, `
        UPDATE room_inventory
        SET booked_quantity = ?, version = version + 1, updated_at = ?
        WHERE room_type_id = ? AND date = ? AND version = ?`,
		booked, time.Now().UTC(), roomTypeID, day, version,
	)
	if err != nil {
		return domain.NewStorageError(fmt.Sprintf("set booked %d/%s", roomTypeID, day), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewStorageError("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("inventory %d/%s at version %d: %w", roomTypeID, day, version, ErrConcurrentModification)
	}
	return nil
}

// ApplyOverride merges a staff override into an existing ledger row.
// A set Clear flag wins over COALESCE and writes NULL.
func (s *store) ApplyOverride(ctx context.Context, roomTypeID int64, date time.Time, o models.InventoryOverride) error {
	day := models.FormatDate(models.TruncateDate(date))
	var available any
	if o.IsAvailable != nil {
		available = boolToInt(*o.IsAvailable)
	}
	_, err := s.q.ExecContext(ctx, `
        UPDATE room_inventory SET
            is_available = COALESCE(?, is_available),
            max_sales_quantity = CASE WHEN ? THEN NULL ELSE COALESCE(?, max_sales_quantity) END,
            weekday_price = CASE WHEN ? THEN NULL ELSE COALESCE(?, weekday_price) END,
            weekend_price = CASE WHEN ? THEN NULL ELSE COALESCE(?, weekend_price) END,
            reason = COALESCE(?, reason),
            version = version + 1,
            updated_at = ?
        WHERE room_type_id = ? AND date = ?`,
		available,
		o.ClearMaxSalesQuantity, o.MaxSalesQuantity,
		o.ClearWeekdayPrice, o.WeekdayPrice,
		o.ClearWeekendPrice, o.WeekendPrice,
		o.Reason,
		time.Now().UTC(), roomTypeID, day,
	)
	if err != nil {
		return domain.NewStorageError(fmt.Sprintf("apply override %d/%s", roomTypeID, day), err)
	}
	return nil
}
