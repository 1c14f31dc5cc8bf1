package clicks

import (
	"context"
	"time"

	"github.com/geolink/edge/internal/events"
	"github.com/geolink/edge/internal/infrastructure/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	clicksEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "click_events_emitted_total",
		Help: "Click events handed to the durable queue",
	})

	clicksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "click_events_dropped_total",
		Help: "Click events dropped because the emit buffer was full",
	})

	clickEnqueueFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "click_enqueue_failures_total",
		Help: "Failed attempts to enqueue a click event",
	})
)

// QueueWriter is the durable enqueue primitive for click events.
type QueueWriter interface {
	Publish(ctx context.Context, msg events.LinkClickMessage) error
}

// LivePublisher relays a click to connected viewers of its account.
type LivePublisher interface {
	Publish(accountID string, msg events.LinkClickMessage)
}

type DispatcherOptions struct {
	BufferSize     int
	EnqueueTimeout time.Duration
}

// Dispatcher decouples click capture from the HTTP response. Dispatch
// only buffers; a single background goroutine relays each event to live
// viewers and then to the durable queue, so per-account delivery order
// matches dispatch order. Failures on this path are logged and counted,
// never returned to the request.
type Dispatcher struct {
	queue   QueueWriter
	live    LivePublisher
	ch      chan events.LinkClickMessage
	done    chan struct{}
	timeout time.Duration
}

func NewDispatcher(queue QueueWriter, live LivePublisher, opts DispatcherOptions) *Dispatcher {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1024
	}
	if opts.EnqueueTimeout <= 0 {
		opts.EnqueueTimeout = 2 * time.Second
	}

	d := &Dispatcher{
		queue:   queue,
		live:    live,
		ch:      make(chan events.LinkClickMessage, opts.BufferSize),
		done:    make(chan struct{}),
		timeout: opts.EnqueueTimeout,
	}
	go d.run()
	return d
}

// Dispatch hands one click to the background delivery path. It never
// blocks: a full buffer drops the event and counts the loss.
func (d *Dispatcher) Dispatch(msg events.LinkClickMessage) {
	select {
	case d.ch <- msg:
	default:
		clicksDropped.Inc()
		logger.Warn("click buffer full, dropping event",
			zap.String("link_id", msg.Data.ID),
			zap.String("account_id", msg.Data.AccountID),
		)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for msg := range d.ch {
		if d.live != nil {
			d.live.Publish(msg.Data.AccountID, msg)
		}

		if d.queue == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.queue.Publish(ctx, msg)
		cancel()
		if err != nil {
			clickEnqueueFailures.Inc()
			logger.Warn("failed to enqueue click event",
				zap.Error(err),
				zap.String("link_id", msg.Data.ID),
				zap.String("account_id", msg.Data.AccountID),
			)
			continue
		}

		clicksEmitted.Inc()
	}
}

// Close stops intake and waits for buffered events to drain. Dispatch
// must not be called after Close.
func (d *Dispatcher) Close(ctx context.Context) error {
	close(d.ch)
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
