package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sokoniarena/sokoni/internal/model"
)

// DefaultQueueSize is the worker's pending delivery limit.
const DefaultQueueSize = 32

// Worker errors.
var (
	ErrWorkerStopped = errors.New("delivery worker not running")
	ErrQueueFull     = errors.New("delivery queue full")
)

// Sink receives payloads from the worker.
type Sink interface {
	Show(ctx context.Context, payload model.NotificationPayload) error
}

type delivery struct {
	id      string
	payload model.NotificationPayload
}

// Worker delivers notifications on a background goroutine. Queued payloads
// sharing a tag collapse into the most recent one.
type Worker struct {
	sink   Sink
	logger *slog.Logger
	limit  int

	mu      sync.Mutex
	queue   []delivery
	busy    bool
	running bool
	ready   chan struct{}
	wake    chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWorker creates a stopped worker delivering into sink.
func NewWorker(sink Sink, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		sink:   sink,
		logger: logger,
		limit:  DefaultQueueSize,
		ready:  make(chan struct{}),
		wake:   make(chan struct{}, 1),
	}
}

// Start launches the delivery loop. Calling Start on a running worker is a no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true
	close(w.ready)

	go w.loop(ctx, w.done)
}

// Stop ends the delivery loop and drops pending payloads.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.cancel()
	done := w.done
	w.queue = nil
	w.ready = make(chan struct{})
	w.mu.Unlock()

	<-done
}

// Active reports whether the worker is running.
func (w *Worker) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Ready blocks until the worker is started or ctx is done.
func (w *Worker) Ready(ctx context.Context) error {
	w.mu.Lock()
	ready := w.ready
	w.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver queues payload. A pending payload with the same tag is replaced.
func (w *Worker) Deliver(ctx context.Context, payload model.NotificationPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return ErrWorkerStopped
	}

	id, err := model.NewDeliveryID()
	if err != nil {
		return err
	}
	d := delivery{id: id, payload: payload}

	if payload.Tag != "" {
		for i := range w.queue {
			if w.queue[i].payload.Tag == payload.Tag {
				w.logger.Debug("collapsed pending delivery", "tag", payload.Tag, "replaced", w.queue[i].id, "id", id)
				w.queue[i] = d
				return nil
			}
		}
	}

	if len(w.queue) >= w.limit {
		return ErrQueueFull
	}
	w.queue = append(w.queue, d)

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of queued deliveries.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// Drain blocks until the queue is empty and no delivery is in flight, or
// ctx is done.
func (w *Worker) Drain(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		w.mu.Lock()
		idle := len(w.queue) == 0 && !w.busy
		w.mu.Unlock()
		if idle {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
		}

		for {
			d, ok := w.next()
			if !ok {
				break
			}
			err := w.sink.Show(ctx, d.payload)
			w.mu.Lock()
			w.busy = false
			w.mu.Unlock()
			if err != nil {
				w.logger.Warn("background delivery failed", "id", d.id, "tag", d.payload.Tag, "error", err)
				continue
			}
			w.logger.Debug("delivered notification", "id", d.id, "tag", d.payload.Tag)
		}
	}
}

func (w *Worker) next() (delivery, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running || len(w.queue) == 0 {
		return delivery{}, false
	}
	d := w.queue[0]
	w.queue = w.queue[1:]
	w.busy = true
	return d, true
}
