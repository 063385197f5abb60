package inventory

import (
	"context"
	"maps"
	"slices"
	"time"

	"hotelbook/internal/database"
	"hotelbook/internal/metrics"
	"hotelbook/internal/models"
)

// BlackoutSync reports what a catalog sync changed in the ledger.
type BlackoutSync struct {
	Closed   int
	Reopened int
}

// SyncBlackouts reconciles the ledger with the blackout list of the catalog file.
//
// Only entries that are new to the file, or whose reason changed, close their
// date, so a staff reopening of an unchanged blackout survives later reloads.
// Entries that left the file reopen their date, unless staff have since
// changed it (the row is open already or carries a different reason).
func (l *Ledger) SyncBlackouts(ctx context.Context, desired []models.Blackout) (BlackoutSync, error) {
	applied, err := l.db.ListCatalogBlackouts(ctx)
	if err != nil {
		return BlackoutSync{}, err
	}

	want := make(map[int64]map[string]models.Blackout)
	have := make(map[int64]map[string]models.Blackout)
	group := func(dst map[int64]map[string]models.Blackout, b models.Blackout) {
		b.Date = models.TruncateDate(b.Date)
		if dst[b.RoomTypeID] == nil {
			dst[b.RoomTypeID] = make(map[string]models.Blackout)
		}
		dst[b.RoomTypeID][models.FormatDate(b.Date)] = b
	}
	for _, b := range desired {
		group(want, b)
	}
	for _, b := range applied {
		group(have, b)
	}

	roomTypes := make(map[int64]struct{})
	for id := range want {
		roomTypes[id] = struct{}{}
	}
	for id := range have {
		roomTypes[id] = struct{}{}
	}

	var total BlackoutSync
	for _, id := range slices.Sorted(maps.Keys(roomTypes)) {
		res, err := l.syncRoomTypeBlackouts(ctx, id, want[id], have[id])
		if err != nil {
			return total, err
		}
		total.Closed += res.Closed
		total.Reopened += res.Reopened
	}
	return total, nil
}

func (l *Ledger) syncRoomTypeBlackouts(ctx context.Context, roomTypeID int64, want, have map[string]models.Blackout) (BlackoutSync, error) {
	unlock := l.Lock(roomTypeID)
	defer unlock()

	closed, open := false, true
	cleared := ""

	started := time.Now()
	var (
		res     BlackoutSync
		rt      *models.RoomType
		changed []*models.InventoryRecord
	)
	err := l.db.WithTx(ctx, func(tx *database.Tx) error {
		res = BlackoutSync{}
		changed = changed[:0]

		var err error
		if rt, err = tx.GetRoomType(ctx, roomTypeID); err != nil {
			return err
		}

		for _, key := range slices.Sorted(maps.Keys(want)) {
			b := want[key]
			if prev, ok := have[key]; ok && prev.Reason == b.Reason {
				continue
			}
			if _, err := l.Ensure(ctx, tx, roomTypeID, b.Date); err != nil {
				return err
			}
			reason := b.Reason
			if err := tx.ApplyOverride(ctx, roomTypeID, b.Date, models.InventoryOverride{IsAvailable: &closed, Reason: &reason}); err != nil {
				return err
			}
			if err := tx.SaveCatalogBlackout(ctx, b); err != nil {
				return err
			}
			rec, err := tx.GetInventory(ctx, roomTypeID, b.Date)
			if err != nil {
				return err
			}
			changed = append(changed, rec)
			res.Closed++
		}

		for _, key := range slices.Sorted(maps.Keys(have)) {
			if _, ok := want[key]; ok {
				continue
			}
			b := have[key]
			rec, err := l.Ensure(ctx, tx, roomTypeID, b.Date)
			if err != nil {
				return err
			}
			if !rec.IsAvailable && rec.Reason == b.Reason {
				if err := tx.ApplyOverride(ctx, roomTypeID, b.Date, models.InventoryOverride{IsAvailable: &open, Reason: &cleared}); err != nil {
					return err
				}
				if rec, err = tx.GetInventory(ctx, roomTypeID, b.Date); err != nil {
					return err
				}
				changed = append(changed, rec)
				res.Reopened++
			}
			if err := tx.DeleteCatalogBlackout(ctx, roomTypeID, b.Date); err != nil {
				return err
			}
		}
		return nil
	})
	metrics.ObserveLedgerTx("blackouts", started)
	if err != nil {
		return BlackoutSync{}, err
	}

	for _, rec := range changed {
		l.PublishAvailability(rt, rec)
	}
	if res.Closed > 0 || res.Reopened > 0 {
		l.logger.Info().
			Int64("room_type_id", roomTypeID).
			Int("closed", res.Closed).
			Int("reopened", res.Reopened).
			Msg("catalog blackouts synced")
	}
	return res, nil
}
