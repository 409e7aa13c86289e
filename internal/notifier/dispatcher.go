// Package notifier delivers notification jobs to the chat transport.
package notifier

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/user/issuebot/pkg/logger"
)

// Sender is the chat transport a Dispatcher drains into.
type Sender interface {
	Send(text string) error
	Retryable(err error) bool
}

// FailureFormatter renders the operator-facing message emitted when a
// job exhausts its delivery attempts.
type FailureFormatter interface {
	BuildDispatchFailedMessage(attempts int, cause error) string
}

// Job is one queued notification. Critical jobs (startup and error
// notifications) are never dropped to make room and never produce
// follow-up error notifications of their own.
type Job struct {
	Text      string
	Critical  bool
	Attempts  int
	CreatedAt time.Time
}

// Options tunes a Dispatcher.
type Options struct {
	QueueSize   int           // bounded queue capacity
	BatchSize   int           // sends allowed before the delay applies
	SendDelay   time.Duration // minimum spacing between sends, 0 disables
	MaxAttempts int           // per-job delivery attempts
	BackoffBase time.Duration // first retry delay, doubles per attempt
}

const maxBackoff = 30 * time.Second

// Dispatcher owns all in-flight notification jobs. A single worker
// drains the queue in order, so messages reach the chat in the order
// they were enqueued.
type Dispatcher struct {
	sender  Sender
	failFmt FailureFormatter
	opts    Options
	limiter *rate.Limiter

	mu   sync.Mutex
	jobs []Job

	wake    chan struct{}
	closing chan struct{}
	done    chan struct{}

	closeOnce sync.Once
	cancel    context.CancelFunc
	runCtx    context.Context
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher. failFmt may be nil, in which
// case exhausted jobs are only logged.
func NewDispatcher(sender Sender, failFmt FailureFormatter, opts Options) *Dispatcher {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}

	limit := rate.Inf
	if opts.SendDelay > 0 {
		limit = rate.Every(opts.SendDelay)
	}
	burst := opts.BatchSize
	if burst < 1 {
		burst = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sender:  sender,
		failFmt: failFmt,
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
		wake:    make(chan struct{}, 1),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		runCtx:  ctx,
		cancel:  cancel,
	}
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Enqueue adds a notification job. It never blocks: on a full queue
// the oldest non-critical job is dropped to make room, never the
// newest. Returns false once the dispatcher is closing or when the
// queue is full of critical jobs.
func (d *Dispatcher) Enqueue(text string) bool {
	return d.push(Job{Text: text, CreatedAt: time.Now()})
}

// EnqueueCritical adds a startup or error notification. Critical jobs
// use the same delivery path as issue notifications but are never
// sacrificed to make room.
func (d *Dispatcher) EnqueueCritical(text string) bool {
	return d.push(Job{Text: text, Critical: true, CreatedAt: time.Now()})
}

// Len reports the current queue depth.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

// Close stops intake and lets the worker flush remaining jobs until
// ctx expires, after which delivery is abandoned. A send already in
// flight at the deadline cannot be interrupted and is left behind.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() { close(d.closing) })

	select {
	case <-d.done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		if n := d.Len(); n > 0 {
			logger.Warn().Int("jobs", n).Msg("Shutdown timeout, abandoning queued notifications")
		}
		return ctx.Err()
	}
}

func (d *Dispatcher) push(j Job) bool {
	select {
	case <-d.closing:
		return false
	default:
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.jobs) >= d.opts.QueueSize {
		idx := -1
		for i, q := range d.jobs {
			if !q.Critical {
				idx = i
				break
			}
		}
		if idx == -1 {
			logger.Error().Msg("Notification queue full of critical jobs, rejecting job")
			return false
		}
		logger.Error().
			Time("created_at", d.jobs[idx].CreatedAt).
			Msg("Notification queue full, dropping oldest job")
		d.jobs = append(d.jobs[:idx], d.jobs[idx+1:]...)
	}

	d.jobs = append(d.jobs, j)
	d.signal()
	return true
}

func (d *Dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) pop() (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.jobs) == 0 {
		return Job{}, false
	}
	j := d.jobs[0]
	d.jobs = d.jobs[1:]
	return j, true
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	defer close(d.done)

	for {
		job, ok := d.pop()
		if !ok {
			select {
			case <-d.runCtx.Done():
				return
			case <-d.closing:
				// Intake is closed and the queue is empty: flushed.
				if d.Len() == 0 {
					return
				}
				continue
			case <-d.wake:
				continue
			}
		}
		d.deliver(job)
	}
}

// deliver sends one job, retrying transient failures with bounded
// exponential backoff. A poisoned job never blocks the queue: after
// the attempt budget it is surfaced as an error record and dropped.
func (d *Dispatcher) deliver(job Job) {
	for {
		if err := d.limiter.Wait(d.runCtx); err != nil {
			return
		}

		job.Attempts++
		err := d.sender.Send(job.Text)
		if err == nil {
			logger.Debug().Int("attempts", job.Attempts).Msg("Notification sent")
			return
		}

		if !d.sender.Retryable(err) || job.Attempts >= d.opts.MaxAttempts {
			d.giveUp(job, err)
			return
		}

		delay := d.backoff(job.Attempts)
		logger.Warn().Err(err).Int("attempt", job.Attempts).Dur("delay", delay).
			Msg("Notification send failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-d.runCtx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := d.opts.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// giveUp records a dispatch failure. Non-critical jobs additionally
// produce an error notification through the same queue; critical jobs
// end here, so a failing error report cannot report itself forever.
func (d *Dispatcher) giveUp(job Job, err error) {
	logger.Error().Err(err).
		Int("attempts", job.Attempts).
		Bool("critical", job.Critical).
		Time("created_at", job.CreatedAt).
		Msg("Dropping notification after delivery failure")

	if job.Critical || d.failFmt == nil {
		return
	}
	d.push(Job{
		Text:      d.failFmt.BuildDispatchFailedMessage(job.Attempts, err),
		Critical:  true,
		CreatedAt: time.Now(),
	})
}
