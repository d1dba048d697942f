// Package outbox delivers remote mirror calls in the background.
//
// Local mutations commit first; the matching remote call is queued here and runs on a
// worker goroutine. Delivery is tracked independently and never reported back to the
// mutation that queued it. There is no retry.
package outbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is recorded for jobs queued after Close.
var ErrClosed = errors.New("outbox: closed")

// Job performs one remote call. A non-nil error marks the delivery as failed.
type Job func(ctx context.Context) error

// Options configures an Outbox.
type Options struct {
	Workers   int           // concurrent deliveries; 1 keeps FIFO order
	QueueSize int           // jobs buffered before Enqueue starts dropping
	Timeout   time.Duration // per-job deadline
	Logger    logrus.FieldLogger
}

// Stats counts deliveries since New.
type Stats struct {
	Enqueued  int64
	Delivered int64
	Failed    int64
	Dropped   int64
	LastError string
}

type entry struct {
	name string
	job  Job
}

// Outbox is a bounded queue drained by a fixed set of workers.
type Outbox struct {
	opts  Options
	queue chan entry
	group *errgroup.Group
	ctx   context.Context
	stop  context.CancelFunc

	mu     sync.Mutex
	closed bool
	stats  Stats
}

// New starts the workers.
func New(opts Options) *Outbox {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	ctx, stop := context.WithCancel(context.Background())
	o := &Outbox{
		opts:  opts,
		queue: make(chan entry, opts.QueueSize),
		group: &errgroup.Group{},
		ctx:   ctx,
		stop:  stop,
	}
	for i := 0; i < opts.Workers; i++ {
		o.group.Go(o.work)
	}
	return o
}

// Enqueue queues job without blocking. It returns false when the job was dropped
// because the outbox is closed or the queue is full.
func (o *Outbox) Enqueue(name string, job Job) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		o.recordDrop(name, ErrClosed)
		return false
	}

	select {
	case o.queue <- entry{name: name, job: job}:
		o.stats.Enqueued++
		return true
	default:
		o.recordDrop(name, errors.New("outbox: queue full"))
		return false
	}
}

// recordDrop must be called with o.mu held.
func (o *Outbox) recordDrop(name string, err error) {
	o.stats.Dropped++
	o.stats.LastError = err.Error()
	o.opts.Logger.WithField("job", name).WithError(err).Warn("remote sync dropped")
}

// Stats returns a copy of the delivery counters.
func (o *Outbox) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// Close stops accepting jobs and waits for queued ones until ctx is done. Jobs still
// running when ctx expires are canceled. Close is safe to call more than once.
func (o *Outbox) Close(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = o.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.stop()
		return nil
	case <-ctx.Done():
		o.stop()
		<-done
		return ctx.Err()
	}
}

func (o *Outbox) work() error {
	for e := range o.queue {
		o.deliver(e)
	}
	return nil
}

func (o *Outbox) deliver(e entry) {
	ctx, cancel := context.WithTimeout(o.ctx, o.opts.Timeout)
	defer cancel()

	start := time.Now()
	err := e.job(ctx)
	log := o.opts.Logger.WithFields(logrus.Fields{
		"job":     e.name,
		"elapsed": time.Since(start).Round(time.Millisecond),
	})

	o.mu.Lock()
	if err != nil {
		o.stats.Failed++
		o.stats.LastError = err.Error()
	} else {
		o.stats.Delivered++
	}
	o.mu.Unlock()

	if err != nil {
		log.WithError(err).Warn("remote sync failed")
		return
	}
	log.Debug("remote sync delivered")
}
