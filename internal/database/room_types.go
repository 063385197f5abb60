package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotelbook/internal/config"
	"hotelbook/internal/domain"
	"hotelbook/internal/models"
)

const roomTypeColumns = `id, code, name, default_max_sales_quantity, weekday_price, weekend_price,
    capacity, is_active, created_at, updated_at`

func scanRoomType(row interface{ Scan(...any) error }) (*models.RoomType, error) {
	var rt models.RoomType
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(
		&rt.ID, &rt.Code, &rt.Name, &rt.DefaultMaxSalesQuantity, &rt.WeekdayPrice, &rt.WeekendPrice,
		&rt.Capacity, &rt.IsActive, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	rt.CreatedAt = createdAt.Time
	rt.UpdatedAt = updatedAt.Time
	return &rt, nil
}

// GetRoomType loads a room type by id.
func (s *store) GetRoomType(ctx context.Context, id int64) (*models.RoomType, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+roomTypeColumns+` FROM room_types WHERE id = ?`, id)
	rt, err := scanRoomType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("room type", id)
	}
	if err != nil {
		return nil, domain.NewStorageError("get room type", err)
	}
	return rt, nil
}

// ListRoomTypes returns room types ordered by id. Inactive ones are skipped unless includeInactive.
func (s *store) ListRoomTypes(ctx context.Context, includeInactive bool) ([]*models.RoomType, error) {
	query := `SELECT ` + roomTypeColumns + ` FROM room_types`
	if !includeInactive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, domain.NewStorageError("list room types", err)
	}
	defer rows.Close()

	var out []*models.RoomType
	for rows.Next() {
		rt, err := scanRoomType(rows)
		if err != nil {
			return nil, domain.NewStorageError("scan room type", err)
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list room types", err)
	}
	return out, nil
}

// UpsertRoomType inserts or updates a room type, preserving created_at.
func (s *store) UpsertRoomType(ctx context.Context, rt *models.RoomType) error {
	now := time.Now().UTC()
	_, err := s.q.ExecContext(ctx, `
        INSERT INTO room_types (id, code, name, default_max_sales_quantity, weekday_price, weekend_price,
            capacity, is_active, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            code = excluded.code,
            name = excluded.name,
            default_max_sales_quantity = excluded.default_max_sales_quantity,
            weekday_price = excluded.weekday_price,
            weekend_price = excluded.weekend_price,
            capacity = excluded.capacity,
            is_active = excluded.is_active,
            updated_at = excluded.updated_at`,
		rt.ID, rt.Code, rt.Name, rt.DefaultMaxSalesQuantity, rt.WeekdayPrice, rt.WeekendPrice,
		rt.Capacity, boolToInt(rt.IsActive), now, now,
	)
	if err != nil {
		return domain.NewStorageError(fmt.Sprintf("upsert room type %d", rt.ID), err)
	}
	rt.UpdatedAt = now
	return nil
}

// SyncRoomTypes applies room_types.yaml to the database.
// It upserts every configured room type and deactivates the ones missing from the file.
func (db *DB) SyncRoomTypes(ctx context.Context, cfg *config.RoomTypesConfig) error {
	if cfg == nil {
		return fmt.Errorf("room types config is nil")
	}

	return db.WithTx(ctx, func(tx *Tx) error {
		seen := make(map[int64]struct{}, len(cfg.RoomTypes))
		for _, c := range cfg.RoomTypes {
			rt := &models.RoomType{
				ID:                      c.ID,
				Code:                    c.Code,
				Name:                    c.Name,
				DefaultMaxSalesQuantity: c.DefaultMaxSalesQuantity,
				WeekdayPrice:            c.WeekdayPrice,
				WeekendPrice:            c.WeekendPrice,
				Capacity:                c.Capacity,
				IsActive:                c.IsActive,
			}
			if err := tx.UpsertRoomType(ctx, rt); err != nil {
				return err
			}
			seen[c.ID] = struct{}{}
		}

		existing, err := tx.ListRoomTypes(ctx, true)
		if err != nil {
			return err
		}
		// Room types are referenced by bookings, so missing ones are only deactivated.
		for _, rt := range existing {
			if _, ok := seen[rt.ID]; ok || !rt.IsActive {
				continue
			}
			if _, err := tx.ExecContext(ctx, `UPDATE room_types SET is_active = 0, updated_at = ? WHERE id = ?`,
				time.Now().UTC(), rt.ID); err != nil {
				return domain.NewStorageError(fmt.Sprintf("deactivate room type %d", rt.ID), err)
			}
		}
		return nil
	})
}
