package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotelbook/internal/api"
	"hotelbook/internal/availability"
	"hotelbook/internal/booking"
	"hotelbook/internal/config"
	"hotelbook/internal/database"
	"hotelbook/internal/events"
	"hotelbook/internal/inventory"
	"hotelbook/internal/metrics"
	"hotelbook/internal/models"
	"hotelbook/internal/notify"
	"hotelbook/internal/reminders"
	"hotelbook/internal/report"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load(os.Getenv("HOTELBOOK_CONFIG_PATH"))
	if err != nil {
		fallback := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
		fallback.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	hub := events.NewHub(cfg.Events.QueueSize, &logger)
	defer hub.Close()

	var cache availability.Cache
	if rdb != nil {
		cache = availability.NewRedisCache(rdb, cfg.CacheTTL())
		hub.AddTransport(events.NewRedisTransport(rdb, cfg.Redis.EventsChannel))
	}
	calendar := availability.NewCalendar(db, cache, cfg.Booking.CalendarMaxDays, &logger)
	hub.Handle(calendar.HandleEvent)

	// Notifications outlive the signal context so Close can flush the queue.
	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		QueueSize:     cfg.Notify.QueueSize,
		Timeout:       cfg.NotifyTimeout(),
		MaxRetries:    cfg.Notify.MaxRetries,
		RatePerSecond: cfg.Notify.RatePerSecond,
		Burst:         cfg.Notify.Burst,
	}, &logger, buildNotifiers(cfg, &logger)...)
	dispatcher.Start(context.Background())
	defer dispatcher.Close()

	ledger := inventory.NewLedger(db, hub, &logger)
	svc := booking.NewService(db, ledger, availability.NewChecker(), hub, dispatcher, booking.Rules{
		MaxStayNights:  cfg.Booking.MaxStayNights,
		MaxAdvanceDays: cfg.Booking.MaxAdvanceDays,
	}, &logger)

	// Initial load + hot reload of the room type catalog
	if err := config.WatchRoomTypes(ctx, cfg.Catalog.Path, cfg.CatalogWatchInterval(), &logger, func(cat *config.RoomTypesConfig) {
		if err := applyCatalog(ctx, db, ledger, calendar, cat, &logger); err != nil {
			logger.Error().Err(err).Msg("failed to apply room types config")
		}
	}); err != nil {
		logger.Error().Err(err).Msg("room types watch failed")
	}

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go database.NewBackupService(db, cfg.Backup, &logger).Start(ctx)

	if cfg.Reminders.Enabled {
		scheduler, err := reminders.NewScheduler(reminders.SchedulerConfig{
			Timezone:      cfg.Reminders.Timezone,
			DailyHour:     cfg.Reminders.DailyHour,
			DailyMinute:   cfg.Reminders.DailyMinute,
			CheckInterval: time.Duration(cfg.Reminders.CheckIntervalSeconds) * time.Second,
			PendingExpiry: cfg.PendingExpiry(),
		}, db, dispatcher, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("create reminder scheduler error")
		}
		go scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	if cfg.Admin.APIKey == "" {
		logger.Warn().Msg("admin.api_key is empty, admin API disabled")
	}
	server := api.NewServer(api.Deps{
		DB:       db,
		Bookings: svc,
		Ledger:   ledger,
		Calendar: calendar,
		Hub:      hub,
		Reports:  report.NewExporter(db, ledger, &logger),
	}, cfg.Admin.APIKey, cfg.Events.SubscriberBuffer, &logger)

	// No WriteTimeout: it would cut the event stream.
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSeconds) * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown error")
		}
	}()

	logger.Info().Str("address", cfg.HTTP.Address).Msg("hotelbook started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("http server error")
	}
	logger.Info().Msg("hotelbook stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Logging.JSON {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func buildNotifiers(cfg *config.Config, logger *zerolog.Logger) []notify.Notifier {
	notifiers := []notify.Notifier{notify.NewLogNotifier(logger)}

	if cfg.Notify.Webhook.URL != "" {
		client := &http.Client{Timeout: cfg.NotifyTimeout()}
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Notify.Webhook.URL, client, logger))
	}
	if cfg.Notify.SMTP.Host != "" {
		smtp := cfg.Notify.SMTP
		notifiers = append(notifiers, notify.NewEmailNotifier(smtp.Host, smtp.Port, smtp.Username, smtp.Password, smtp.From, cfg.Notify.StaffEmail))
	}
	if cfg.Notify.Telegram.BotToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
		if err != nil {
			logger.Error().Err(err).Msg("telegram notifier disabled")
		} else {
			notifiers = append(notifiers, tg)
		}
	}
	return notifiers
}

// applyCatalog synchronizes room types and the blackout dates of the catalog.
func applyCatalog(ctx context.Context, db *database.DB, ledger *inventory.Ledger, calendar *availability.Calendar, cat *config.RoomTypesConfig, logger *zerolog.Logger) error {
	if err := db.SyncRoomTypes(ctx, cat); err != nil {
		return err
	}
	for _, rt := range cat.RoomTypes {
		calendar.Invalidate(ctx, rt.ID)
	}

	var blackouts []models.Blackout
	for _, b := range cat.Blackouts {
		date, err := models.ParseDate(b.Date)
		if err != nil {
			return fmt.Errorf("blackout %q: %w", b.Date, err)
		}
		for _, id := range cat.IDsForCodes(b.RoomTypes) {
			blackouts = append(blackouts, models.Blackout{RoomTypeID: id, Date: date, Reason: b.Reason})
		}
	}
	res, err := ledger.SyncBlackouts(ctx, blackouts)
	if err != nil {
		return fmt.Errorf("sync blackouts: %w", err)
	}
	logger.Info().
		Int("room_types", len(cat.RoomTypes)).
		Int("blackouts_closed", res.Closed).
		Int("blackouts_reopened", res.Reopened).
		Msg("room types config applied")
	return nil
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
