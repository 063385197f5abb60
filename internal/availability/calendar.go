package availability

import (
	"context"
	"time"

	"hotelbook/internal/database"
	"hotelbook/internal/domain"
	"hotelbook/internal/events"
	"hotelbook/internal/metrics"
	"hotelbook/internal/models"

	"github.com/rs/zerolog"
)

// DayAvailability is one row of the availability calendar.
type DayAvailability struct {
	Date      string `json:"date"`
	Max       int    `json:"max"`
	Booked    int    `json:"booked"`
	Remaining int    `json:"remaining"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Price     int64  `json:"price"`
}

// Cache stores rendered calendars per room type and range.
// Lookup returns the key a miss should be stored under; the key is taken
// before the calendar is rendered so a concurrent invalidation wins.
type Cache interface {
	Lookup(ctx context.Context, roomTypeID int64, from, to time.Time) (days []DayAvailability, key string, hit bool)
	Store(ctx context.Context, key string, days []DayAvailability)
	Invalidate(ctx context.Context, roomTypeID int64) error
}

// Calendar is the read model behind the guest availability endpoint.
type Calendar struct {
	db      *database.DB
	cache   Cache
	maxDays int
	logger  zerolog.Logger
}

// NewCalendar builds a calendar. cache may be nil.
func NewCalendar(db *database.DB, cache Cache, maxDays int, logger *zerolog.Logger) *Calendar {
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Calendar{
		db:      db,
		cache:   cache,
		maxDays: maxDays,
		logger:  logger.With().Str("component", "calendar").Logger(),
	}
}

// Days returns availability for each date in [from, to).
func (c *Calendar) Days(ctx context.Context, roomTypeID int64, from, to time.Time) ([]DayAvailability, error) {
	from, to = models.TruncateDate(from), models.TruncateDate(to)
	verr := domain.NewValidationError()
	if !from.Before(to) {
		verr.Add("end", "must be after start")
	} else if len(models.DateRange(from, to)) > c.maxDays {
		verr.Add("end", "range exceeds the maximum number of days")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	rt, err := c.db.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return nil, err
	}

	cacheKey := ""
	if c.cache != nil {
		days, key, hit := c.cache.Lookup(ctx, roomTypeID, from, to)
		if hit {
			metrics.IncCache("hit")
			return days, nil
		}
		metrics.IncCache("miss")
		cacheKey = key
	}

	existing, err := c.db.ListInventory(ctx, roomTypeID, from, to)
	if err != nil {
		return nil, err
	}

	dates := models.DateRange(from, to)
	days := make([]DayAvailability, 0, len(dates))
	for _, d := range dates {
		key := models.FormatDate(d)
		rec, ok := existing[key]
		if !ok {
			def := models.NewInventoryRecord(roomTypeID, d)
			rec = &def
		}
		remaining := rec.Remaining(rt)
		reason := rec.Reason
		if !rt.IsActive && reason == "" {
			reason = "not on sale"
		}
		days = append(days, DayAvailability{
			Date:      key,
			Max:       rec.EffectiveMax(rt),
			Booked:    rec.BookedQuantity,
			Remaining: remaining,
			Available: rt.IsActive && rec.IsAvailable && remaining > 0,
			Reason:    reason,
			Price:     rec.PriceFor(rt),
		})
	}

	if cacheKey != "" {
		c.cache.Store(ctx, cacheKey, days)
	}
	return days, nil
}

// Invalidate drops cached calendars of a room type.
func (c *Calendar) Invalidate(ctx context.Context, roomTypeID int64) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx, roomTypeID); err != nil {
		c.logger.Error().Err(err).Int64("room_type_id", roomTypeID).Msg("failed to invalidate calendar cache")
	}
}

// HandleEvent invalidates the cache when ledger state changes.
func (c *Calendar) HandleEvent(env events.Envelope) {
	if env.Event.Kind() != events.KindRoomAvailabilityChanged {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c.Invalidate(ctx, env.Event.RoomType())
}
