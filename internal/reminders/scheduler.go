// Package reminders runs the daily read-only booking scans that feed
// guest reminders and staff alerts. It never mutates bookings or the ledger.
package reminders

import (
	"context"
	"sync"
	"time"

	"hotelbook/internal/metrics"
	"hotelbook/internal/models"
	"hotelbook/internal/notify"

	"github.com/rs/zerolog"
)

// Scan names, also used as metric labels.
const (
	ScanPendingExpired  = "pending_expired"
	ScanCheckInTomorrow = "check_in_tomorrow"
	ScanCheckOutToday   = "check_out_today"
)

// BookingLister is the admin read API the scans run against.
type BookingLister interface {
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
}

// SchedulerConfig holds configuration for the reminder scheduler.
type SchedulerConfig struct {
	// Timezone the daily time and "today" are evaluated in, e.g. "Europe/Lisbon".
	Timezone      string
	DailyHour     int
	DailyMinute   int
	CheckInterval time.Duration
	// PendingExpiry is how long a booking may stay pending before staff are alerted.
	PendingExpiry time.Duration
}

// DefaultSchedulerConfig returns the default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Timezone:      "UTC",
		DailyHour:     9,
		DailyMinute:   0,
		CheckInterval: time.Minute,
		PendingExpiry: 24 * time.Hour,
	}
}

// Result counts the notifications each scan produced.
type Result struct {
	PendingExpired  int
	CheckInTomorrow int
	CheckOutToday   int
}

// Scheduler triggers the scans once a day at the configured local time.
type Scheduler struct {
	config   SchedulerConfig
	bookings BookingLister
	sink     notify.Sink
	location *time.Location
	logger   zerolog.Logger
	now      func() time.Time

	mu          sync.Mutex
	lastRunDate string
	running     bool
	stopCh      chan struct{}
}

func NewScheduler(config SchedulerConfig, bookings BookingLister, sink notify.Sink, logger *zerolog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, err
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.PendingExpiry <= 0 {
		config.PendingExpiry = 24 * time.Hour
	}

	return &Scheduler{
		config:   config,
		bookings: bookings,
		sink:     sink,
		location: loc,
		logger:   logger.With().Str("component", "reminders").Logger(),
		now:      time.Now,
	}, nil
}

// Start runs the scheduler loop until ctx is done or Stop is called.
// A stopped scheduler can be started again.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.stopCh == stopCh {
			s.running = false
		}
		s.mu.Unlock()
	}()

	s.logger.Info().
		Str("timezone", s.config.Timezone).
		Str("daily_time", s.formatTime()).
		Msg("reminder scheduler started")

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reminder scheduler stopped by context")
			return
		case <-stopCh:
			s.logger.Info().Msg("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.checkAndRun(ctx)
		}
	}
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()
}

// IsRunning returns whether the scheduler loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// checkAndRun runs the scans if the daily time has been reached and they have
// not run yet today.
func (s *Scheduler) checkAndRun(ctx context.Context) {
	now := s.now().In(s.location)
	today := now.Format(models.DateLayout)

	s.mu.Lock()
	alreadyRan := s.lastRunDate == today
	s.mu.Unlock()
	if alreadyRan {
		return
	}

	due := time.Date(now.Year(), now.Month(), now.Day(), s.config.DailyHour, s.config.DailyMinute, 0, 0, s.location)
	if now.Before(due) {
		return
	}

	s.mu.Lock()
	s.lastRunDate = today
	s.mu.Unlock()

	s.RunNow(ctx)
}

// RunNow runs every scan immediately.
func (s *Scheduler) RunNow(ctx context.Context) Result {
	start := s.now()
	local := start.In(s.location)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	var res Result
	res.PendingExpired = s.scanPendingExpired(ctx, start)
	res.CheckInTomorrow = s.scanCheckInTomorrow(ctx, today.AddDate(0, 0, 1))
	res.CheckOutToday = s.scanCheckOutToday(ctx, today)

	s.logger.Info().
		Str("date", models.FormatDate(today)).
		Int("pending_expired", res.PendingExpired).
		Int("check_in_tomorrow", res.CheckInTomorrow).
		Int("check_out_today", res.CheckOutToday).
		Dur("duration", time.Since(start)).
		Msg("daily reminders processed")
	return res
}

func (s *Scheduler) scanPendingExpired(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-s.config.PendingExpiry)
	list, err := s.bookings.ListBookings(ctx, models.BookingFilter{
		Statuses:      []models.BookingStatus{models.StatusPending},
		CreatedBefore: &cutoff,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("scan", ScanPendingExpired).Msg("failed to list bookings")
		return 0
	}

	n := 0
	for _, b := range list {
		n += s.enqueue(notify.ForBooking(notify.KindPendingExpired, b, ""))
	}
	metrics.AddReminderScan(ScanPendingExpired, len(list))
	return n
}

func (s *Scheduler) scanCheckInTomorrow(ctx context.Context, tomorrow time.Time) int {
	dayAfter := tomorrow.AddDate(0, 0, 1)
	list, err := s.bookings.ListBookings(ctx, models.BookingFilter{
		Statuses: []models.BookingStatus{
			models.StatusConfirmed,
			models.StatusPendingPayment,
			models.StatusCashOnSite,
			models.StatusPaid,
		},
		CheckInFrom: &tomorrow,
		CheckInTo:   &dayAfter,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("scan", ScanCheckInTomorrow).Msg("failed to list bookings")
		return 0
	}

	n := 0
	for _, b := range list {
		n += s.enqueue(notify.ForBooking(notify.KindCheckInReminder, b, ""))
	}
	metrics.AddReminderScan(ScanCheckInTomorrow, len(list))
	return n
}

func (s *Scheduler) scanCheckOutToday(ctx context.Context, today time.Time) int {
	list, err := s.bookings.ListBookings(ctx, models.BookingFilter{
		Statuses: []models.BookingStatus{
			models.StatusConfirmed,
			models.StatusPendingPayment,
			models.StatusCashOnSite,
			models.StatusPaid,
			models.StatusCompleted,
		},
		CheckOutOn: &today,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("scan", ScanCheckOutToday).Msg("failed to list bookings")
		return 0
	}
	metrics.AddReminderScan(ScanCheckOutToday, len(list))
	if len(list) == 0 {
		return 0
	}
	return s.enqueue([]notify.Notification{notify.CheckOutSummary(models.FormatDate(today), list)})
}

func (s *Scheduler) enqueue(ns []notify.Notification) int {
	n := 0
	for _, item := range ns {
		if s.sink.Enqueue(item) {
			n++
		}
	}
	return n
}

func (s *Scheduler) formatTime() string {
	return time.Date(2000, 1, 1, s.config.DailyHour, s.config.DailyMinute, 0, 0, time.UTC).Format("15:04")
}
