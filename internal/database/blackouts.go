package database

import (
	"context"
	"fmt"
	"time"

	"hotelbook/internal/domain"
	"hotelbook/internal/models"
)

// ListCatalogBlackouts returns the blackouts applied by the last catalog sync.
func (s *store) ListCatalogBlackouts(ctx context.Context) ([]models.Blackout, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT room_type_id, date, reason FROM catalog_blackouts ORDER BY room_type_id, date`)
	if err != nil {
		return nil, domain.NewStorageError("list catalog blackouts", err)
	}
	defer rows.Close()

	var out []models.Blackout
	for rows.Next() {
		var (
			b    models.Blackout
			date string
		)
		if err := rows.Scan(&b.RoomTypeID, &date, &b.Reason); err != nil {
			return nil, domain.NewStorageError("scan catalog blackout", err)
		}
		if b.Date, err = models.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse blackout date %q: %w", date, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list catalog blackouts", err)
	}
	return out, nil
}

// SaveCatalogBlackout records that the catalog closed a date.
func (s *store) SaveCatalogBlackout(ctx context.Context, b models.Blackout) error {
	_, err := s.q.ExecContext(ctx, `
        INSERT INTO catalog_blackouts (room_type_id, date, reason, applied_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(room_type_id, date) DO UPDATE SET
            reason = excluded.reason,
            applied_at = excluded.applied_at`,
		b.RoomTypeID, models.FormatDate(b.Date), b.Reason, time.Now().UTC(),
	)
	if err != nil {
		return domain.NewStorageError("save catalog blackout "+b.Key(), err)
	}
	return nil
}

// DeleteCatalogBlackout forgets a blackout that left the catalog.
func (s *store) DeleteCatalogBlackout(ctx context.Context, roomTypeID int64, date time.Time) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM catalog_blackouts WHERE room_type_id = ? AND date = ?`,
		roomTypeID, models.FormatDate(date))
	if err != nil {
		return domain.NewStorageError(fmt.Sprintf("delete catalog blackout %d/%s", roomTypeID, models.FormatDate(date)), err)
	}
	return nil
}
