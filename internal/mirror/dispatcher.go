package mirror

import (
	"context"
	"errors"
	"sync"
	"time"

	"propdash/internal/metrics"
	"propdash/pkg/logger"
	"propdash/pkg/model"
)

var (
	ErrQueueFull         = errors.New("mirror queue full")
	ErrDispatcherStopped = errors.New("mirror dispatcher stopped")
)

const deadLetterTimeout = 5 * time.Second

type DispatcherConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// Dispatcher is the asynchronous Mirror. Mirror only enqueues; a fixed pool
// of workers delivers each payload once with a bounded timeout and hands
// failures to the dead-letter sink.
type Dispatcher struct {
	deliverer  Deliverer
	deadLetter DeadLetterSink
	metrics    metrics.Recorder
	log        *logger.Logger

	queue   chan Payload
	workers int
	timeout time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

func NewDispatcher(deliverer Deliverer, deadLetter DeadLetterSink, rec metrics.Recorder, cfg DispatcherConfig, log *logger.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Dispatcher{
		deliverer:  deliverer,
		deadLetter: deadLetter,
		metrics:    rec,
		log:        log,
		queue:      make(chan Payload, cfg.QueueSize),
		workers:    cfg.Workers,
		timeout:    cfg.Timeout,
		now:        time.Now,
	}
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.log.Info("Mirror dispatcher started", "workers", d.workers, "queue_size", cap(d.queue))
}

// Mirror enqueues listing for delivery and returns immediately. When the
// queue is full or the dispatcher is stopped the event is dead-lettered.
func (d *Dispatcher) Mirror(ctx context.Context, event Event, listing model.Listing) {
	payload := NewPayload(event, listing, d.now())

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(payload, ErrDispatcherStopped)
		return
	}

	select {
	case d.queue <- payload:
		d.metrics.SetMirrorQueueDepth(len(d.queue))
	default:
		d.drop(payload, ErrQueueFull)
	}
}

// Stop refuses new events, lets workers drain what is queued and waits for
// them or for ctx, whichever comes first.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info("Mirror dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for payload := range d.queue {
		d.metrics.SetMirrorQueueDepth(len(d.queue))
		d.deliver(payload)
	}
}

func (d *Dispatcher) deliver(payload Payload) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	err := d.deliverer.Deliver(ctx, payload)
	elapsed := time.Since(start)

	if err == nil {
		d.metrics.RecordMirrorDelivery(payload.Event.String(), metrics.OutcomeDelivered, elapsed)
		d.log.Debug("Listing mirrored",
			"event", payload.Event,
			"event_id", payload.EventID,
			"listing_id", payload.ID,
			"duration_ms", elapsed.Milliseconds(),
		)
		return
	}

	d.metrics.RecordMirrorDelivery(payload.Event.String(), metrics.OutcomeFailed, elapsed)
	d.log.Warn("Listing mirror failed",
		"event", payload.Event,
		"event_id", payload.EventID,
		"listing_id", payload.ID,
		"error", err,
	)
	d.sendToDeadLetter(payload, err)
}

// drop runs with d.mu read-locked, so the wg.Add cannot race Stop's Wait.
func (d *Dispatcher) drop(payload Payload, cause error) {
	d.metrics.RecordMirrorDropped(payload.Event.String())
	d.log.Warn("Listing mirror event dropped",
		"event", payload.Event,
		"event_id", payload.EventID,
		"listing_id", payload.ID,
		"reason", cause,
	)
	if d.closed {
		d.sendToDeadLetter(payload, cause)
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sendToDeadLetter(payload, cause)
	}()
}

func (d *Dispatcher) sendToDeadLetter(payload Payload, cause error) {
	if d.deadLetter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), deadLetterTimeout)
	defer cancel()

	if err := d.deadLetter.DeadLetter(ctx, payload, cause); err != nil {
		d.log.Error("Failed to dead-letter mirror event",
			"event", payload.Event,
			"event_id", payload.EventID,
			"listing_id", payload.ID,
			"cause", cause,
			"error", err,
		)
		return
	}
	d.metrics.RecordMirrorDeadLettered(payload.Event.String())
}
