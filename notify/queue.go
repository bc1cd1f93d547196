package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"blogpp/email"
)

// Job is one message waiting for delivery.
type Job struct {
	Kind    string
	To      string
	Subject string
	Body    string
}

// Queue delivers jobs on a fixed pool of workers. Delivery is at most once:
// a full queue drops the job, failed sends are logged and forgotten. With
// zero workers jobs are delivered inline by Enqueue.
type Queue struct {
	sender  email.Sender
	timeout time.Duration
	log     *zap.Logger

	jobs    chan Job
	workers int
	wg      conc.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type QueueOpts struct {
	Workers int
	Size    int
	Timeout time.Duration
}

func NewQueue(sender email.Sender, opts QueueOpts, log *zap.Logger) *Queue {
	if opts.Size <= 0 {
		opts.Size = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	q := &Queue{
		sender:  sender,
		timeout: opts.Timeout,
		log:     log,
		workers: opts.Workers,
	}
	if q.workers > 0 {
		q.jobs = make(chan Job, opts.Size)
	}
	return q
}

// Start launches the workers.
func (q *Queue) Start() {
	q.log.Debug("Starting mail queue", zap.Int("workers", q.workers))

	for range q.workers {
		q.wg.Go(q.worker)
	}
}

func (q *Queue) worker() {
	for job := range q.jobs {
		q.deliver(job)
	}
}

// Enqueue hands job to the workers without blocking. It reports whether the
// job was accepted.
func (q *Queue) Enqueue(job Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.log.Warn("Mail queue closed, dropping job", zap.String("kind", job.Kind))
		return false
	}

	if q.workers == 0 {
		q.deliver(job)
		return true
	}

	select {
	case q.jobs <- job:
		return true
	default:
		q.log.Warn("Mail queue full, dropping job",
			zap.String("kind", job.Kind),
			zap.String("to", job.To))
		return false
	}
}

// Close stops accepting jobs and waits for the queued ones to be delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	if q.jobs != nil {
		close(q.jobs)
	}
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) deliver(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			q.log.Error("Mail sender panicked",
				zap.String("kind", job.Kind),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()

	if err := q.sender.Send(ctx, job.To, job.Subject, job.Body); err != nil {
		q.log.Warn("Failed to deliver email",
			zap.String("kind", job.Kind),
			zap.String("to", job.To),
			zap.Error(err))
		return
	}

	q.log.Debug("Delivered email", zap.String("kind", job.Kind), zap.String("to", job.To))
}
