// Package worker provides an asynchronous worker pool that persists finished
// interactions to a history.Driver and announces them on an
// eventstream.Publisher.
//
// The pool keeps storage and event delivery off the request path: a slow
// database or broker never delays an answer to the user.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Josn-deng/lux-xiaokai/pkg/eventstream"
	"github.com/Josn-deng/lux-xiaokai/pkg/history"
	"github.com/Josn-deng/lux-xiaokai/pkg/logger"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 128
	defaultJobTimeout        = 15 * time.Second
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Interaction *history.Interaction
	Source      eventstream.EventSource
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the history backend for persisting interactions.
	Driver history.Driver

	// Publisher is the optional event stream publisher. Events are only
	// published for interactions that were stored.
	Publisher eventstream.Publisher

	// Source is stamped on jobs submitted through Record.
	Source eventstream.EventSource

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 128).
	QueueSize uint

	// JobTimeout bounds the storage and publish calls of one job.
	JobTimeout time.Duration

	Logger *slog.Logger
}

// Pool processes history jobs asynchronously.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("worker pool requires a history driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: log.With("component", "worker-pool"),
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Record enqueues the interaction with the pool's configured source.
func (p *Pool) Record(interaction *history.Interaction) {
	p.Enqueue(Job{Interaction: interaction, Source: p.config.Source})
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the job was dropped because the queue is
// full or the pool is closed.
func (p *Pool) Enqueue(job Job) bool {
	if job.Interaction == nil {
		p.logger.Warn("job not queued, nil interaction")
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed",
			"interaction_id", job.Interaction.ID,
		)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"interaction_id", job.Interaction.ID,
			"task", job.Interaction.Task,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"interaction_id", job.Interaction.ID,
			"task", job.Interaction.Task,
		)
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to drain. It is safe
// to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob stores the interaction and then publishes its event. Failures
// are logged; an interaction that could not be stored is not published.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	interaction := job.Interaction
	if err := p.config.Driver.Put(ctx, interaction); err != nil {
		p.logger.Error("storing interaction failed",
			"interaction_id", interaction.ID,
			"error", err,
		)
		return
	}

	p.logger.Debug("interaction stored",
		"interaction_id", interaction.ID,
		"task", interaction.Task,
		"failed", interaction.Failed(),
	)

	if p.config.Publisher == nil {
		return
	}

	event := eventstream.NewInteractionEvent(interaction, job.Source)
	if err := p.config.Publisher.PublishInteraction(ctx, event); err != nil {
		p.logger.Warn("publishing interaction event failed",
			"interaction_id", interaction.ID,
			"event_id", event.EventID,
			"error", err,
		)
	}
}
