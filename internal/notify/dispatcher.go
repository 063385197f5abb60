package notify

import (
	"context"
	"sync"
	"time"

	"hotelbook/internal/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DispatcherConfig controls delivery pacing and retries.
type DispatcherConfig struct {
	QueueSize     int
	Timeout       time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
	RatePerSecond float64
	Burst         int
}

func (c *DispatcherConfig) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = 5
	}
	if c.Burst <= 0 {
		c.Burst = 10
	}
}

// Dispatcher queues notifications and delivers them on a background worker.
// Every attempt carries its own timeout.
type Dispatcher struct {
	cfg       DispatcherConfig
	notifiers []Notifier
	limiter   *rate.Limiter
	logger    zerolog.Logger

	mu      sync.Mutex
	queue   chan Notification
	closed  bool
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewDispatcher(cfg DispatcherConfig, logger *zerolog.Logger, notifiers ...Notifier) *Dispatcher {
	cfg.applyDefaults()
	return &Dispatcher{
		cfg:       cfg,
		notifiers: notifiers,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		logger:    logger.With().Str("component", "notify").Logger(),
		queue:     make(chan Notification, cfg.QueueSize),
		done:      make(chan struct{}),
	}
}

// Start launches the delivery worker. Cancelling ctx aborts in-flight retries.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	ctx, d.cancel = context.WithCancel(ctx)
	go d.run(ctx)
}

// Enqueue queues n without blocking. It returns false when the queue is full or closed.
func (d *Dispatcher) Enqueue(n Notification) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- n:
		return true
	default:
		metrics.IncNotification("queue", "dropped")
		d.logger.Error().Str("kind", string(n.Kind)).Int64("booking_id", n.BookingID).Msg("notification queue full, dropping")
		return false
	}
}

// Close stops accepting notifications, delivers what is queued and waits for the worker.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	started := d.started
	d.mu.Unlock()

	if started {
		<-d.done
		d.cancel()
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for n := range d.queue {
		for _, notifier := range d.notifiers {
			d.deliver(ctx, notifier, n)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, notifier Notifier, n Notification) {
	log := d.logger.With().
		Str("channel", notifier.Name()).
		Str("kind", string(n.Kind)).
		Int64("booking_id", n.BookingID).
		Logger()

	var err error
	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * d.cfg.RetryBackoff):
			case <-ctx.Done():
				log.Error().Err(ctx.Err()).Msg("notification aborted")
				metrics.IncNotification(notifier.Name(), "failed")
				return
			}
		}
		if err = d.limiter.Wait(ctx); err != nil {
			break
		}

		attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		err = notifier.Notify(attemptCtx, n)
		cancel()
		if err == nil {
			metrics.IncNotification(notifier.Name(), "sent")
			return
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("notification attempt failed")
	}

	metrics.IncNotification(notifier.Name(), "failed")
	log.Error().Err(err).Msg("notification failed")
}
