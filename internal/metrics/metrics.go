package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hotelbook"

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_created_total",
			Help:      "Count of bookings created by room type.",
		},
		[]string{"room_type"},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Count of booking status transitions by target status.",
		},
		[]string{"status"},
	)

	bookingRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_rejections_total",
			Help:      "Count of rejected booking requests by reason.",
		},
		[]string{"reason"},
	)

	bookingDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_deleted_total",
			Help:      "Count of bookings removed by staff.",
		},
	)

	ledgerAdjustments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_adjustments_total",
			Help:      "Count of per-date booked quantity adjustments by direction.",
		},
		[]string{"direction"},
	)

	ledgerTxDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_tx_duration_seconds",
			Help:      "Duration of ledger transactions by operation.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	broadcastDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_dropped_total",
			Help:      "Count of events dropped for slow or disconnected observers.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Count of outbound notifications by channel and result.",
		},
		[]string{"channel", "result"},
	)

	availabilityCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_cache_total",
			Help:      "Availability calendar cache lookups by result.",
		},
		[]string{"result"},
	)

	reminderScans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_scan_bookings_total",
			Help:      "Bookings found by reminder scans.",
		},
		[]string{"scan"},
	)

	catalogReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reloads_total",
			Help:      "Room type catalog reload attempts by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code class.",
		},
		[]string{"route", "code"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingCreated, bookingTransitions, bookingRejections, bookingDeleted,
			ledgerAdjustments, ledgerTxDuration, broadcastDropped, notifications,
			availabilityCache, reminderScans, catalogReloads, httpRequests,
		)
	})
}

func IncBookingCreated(roomType string) {
	bookingCreated.WithLabelValues(roomType).Inc()
}

func IncTransition(status string) {
	bookingTransitions.WithLabelValues(status).Inc()
}

func IncRejection(reason string) {
	bookingRejections.WithLabelValues(reason).Inc()
}

func IncBookingDeleted() {
	bookingDeleted.Inc()
}

// AddLedgerAdjustments records n per-date adjustments; the sign of delta picks the direction.
func AddLedgerAdjustments(delta, n int) {
	direction := "increment"
	if delta < 0 {
		direction = "decrement"
	}
	ledgerAdjustments.WithLabelValues(direction).Add(float64(n))
}

func ObserveLedgerTx(operation string, started time.Time) {
	ledgerTxDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func IncBroadcastDropped() {
	broadcastDropped.Inc()
}

func IncNotification(channel, result string) {
	notifications.WithLabelValues(channel, result).Inc()
}

func IncCache(result string) {
	availabilityCache.WithLabelValues(result).Inc()
}

func AddReminderScan(scan string, n int) {
	reminderScans.WithLabelValues(scan).Add(float64(n))
}

// IncCatalogReload counts a catalog reload: "ok", "stat_error" or "invalid".
func IncCatalogReload(result string) {
	catalogReloads.WithLabelValues(result).Inc()
}

func IncHTTP(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}
