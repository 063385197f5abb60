package events

import (
	"context"
	"sync"
	"time"

	"hotelbook/internal/metrics"

	"github.com/rs/zerolog"
)

// Handler reacts to a delivered event. Handlers run on the dispatcher goroutine.
type Handler func(env Envelope)

// Transport forwards events outside the process.
type Transport interface {
	Name() string
	Send(ctx context.Context, env Envelope) error
}

// Subscription is one connected observer.
type Subscription struct {
	id  uint64
	ch  chan Envelope
	hub *Hub
}

// C delivers events in publish order. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Envelope {
	return s.ch
}

// Close disconnects the observer.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.id)
}

// Hub fans events out to subscribers, handlers and transports.
// Publish never blocks: events are queued for a single dispatcher goroutine,
// which keeps publish order for every consumer.
type Hub struct {
	mu     sync.Mutex
	queue  chan Envelope
	seq    uint64
	closed bool
	now    func() time.Time

	subMu      sync.RWMutex
	subs       map[uint64]*Subscription
	nextSubID  uint64
	handlers   []Handler
	transports []Transport

	sendTimeout time.Duration
	logger      zerolog.Logger
	done        chan struct{}
}

// NewHub starts a hub with a queue of queueSize pending events.
func NewHub(queueSize int, logger *zerolog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = 1024
	}
	h := &Hub{
		queue:       make(chan Envelope, queueSize),
		now:         time.Now,
		subs:        make(map[uint64]*Subscription),
		sendTimeout: 2 * time.Second,
		logger:      logger.With().Str("component", "events").Logger(),
		done:        make(chan struct{}),
	}
	go h.dispatch()
	return h
}

// Publish stamps the event and queues it. Events published after Close are dropped.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.seq++
	env := Envelope{Event: ev, Timestamp: h.now().UTC(), Seq: h.seq}

	select {
	case h.queue <- env:
	default:
		metrics.IncBroadcastDropped()
		h.logger.Warn().Str("type", string(ev.Kind())).Uint64("seq", env.Seq).Msg("event queue full, dropping event")
	}
}

// Subscribe connects an observer with a buffer of the given size.
// Events that do not fit in the buffer are dropped for that observer.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 64
	}
	h.subMu.Lock()
	defer h.subMu.Unlock()

	h.nextSubID++
	sub := &Subscription{id: h.nextSubID, ch: make(chan Envelope, buffer), hub: h}
	h.subs[sub.id] = sub
	return sub
}

// Handle registers an in-process handler.
func (h *Hub) Handle(fn Handler) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	h.handlers = append(h.handlers, fn)
}

// AddTransport registers an outbound transport.
func (h *Hub) AddTransport(t Transport) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	h.transports = append(h.transports, t)
}

// Subscribers returns the number of connected observers.
func (h *Hub) Subscribers() int {
	h.subMu.RLock()
	defer h.subMu.RUnlock()
	return len(h.subs)
}

// Close drains queued events and disconnects every observer.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		<-h.done
		return
	}
	h.closed = true
	close(h.queue)
	h.mu.Unlock()

	<-h.done
}

func (h *Hub) unsubscribe(id uint64) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

func (h *Hub) dispatch() {
	defer close(h.done)
	defer func() {
		h.subMu.Lock()
		for id, sub := range h.subs {
			delete(h.subs, id)
			close(sub.ch)
		}
		h.subMu.Unlock()
	}()

	for env := range h.queue {
		h.deliver(env)
	}
}

func (h *Hub) deliver(env Envelope) {
	h.subMu.RLock()
	for _, sub := range h.subs {
		select {
		case sub.ch <- env:
		default:
			metrics.IncBroadcastDropped()
			h.logger.Debug().Uint64("subscriber", sub.id).Uint64("seq", env.Seq).Msg("subscriber buffer full, dropping event")
		}
	}
	handlers := append([]Handler(nil), h.handlers...)
	transports := append([]Transport(nil), h.transports...)
	h.subMu.RUnlock()

	for _, fn := range handlers {
		h.runHandler(fn, env)
	}

	for _, t := range transports {
		ctx, cancel := context.WithTimeout(context.Background(), h.sendTimeout)
		if err := t.Send(ctx, env); err != nil {
			metrics.IncBroadcastDropped()
			h.logger.Error().Err(err).Str("transport", t.Name()).Str("type", string(env.Event.Kind())).Msg("transport send failed")
		}
		cancel()
	}
}

func (h *Hub) runHandler(fn Handler, env Envelope) {
	defer func() {
		if p := recover(); p != nil {
			h.logger.Error().Interface("panic", p).Str("type", string(env.Event.Kind())).Msg("event handler panicked")
		}
	}()
	fn(env)
}
