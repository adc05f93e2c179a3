package jobs

import (
	"context"
	"sync"
	"time"

	"server/internal/domain"
	"server/internal/infra"
)

// DefaultDrainDelay is the pause between dequeues; it models realistic queue
// latency and spaces out calls to the rate-limited generation provider.
const DefaultDrainDelay = 100 * time.Millisecond

// LocalProcessor executes jobs through an in-process FIFO queue drained by a
// single background loop. Enqueue order is execution order and jobs never
// overlap. It offers no durability: queued work is lost on restart and a job
// in flight during a crash stays in processing.
type LocalProcessor struct {
	svc    *Service
	logger infra.Logger
	delay  time.Duration

	mu       sync.Mutex
	queue    []domain.JobRequest
	draining bool
	idle     *sync.Cond
}

// NewLocalProcessor creates an independent processor instance; nothing is
// shared between instances, so tests can construct their own.
func NewLocalProcessor(svc *Service, logger infra.Logger, delay time.Duration) *LocalProcessor {
	if delay < 0 {
		delay = DefaultDrainDelay
	}
	p := &LocalProcessor{svc: svc, logger: logger, delay: delay}
	p.idle = sync.NewCond(&p.mu)
	return p
}

// Enqueue appends the request and starts the drain loop when none is running.
// Safe for concurrent use.
func (p *LocalProcessor) Enqueue(ctx context.Context, req domain.JobRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.queue = append(p.queue, req)
	start := !p.draining
	if start {
		p.draining = true
	}
	p.mu.Unlock()

	if start {
		go p.drain()
	}
	return nil
}

// drain pops one request at a time until the queue is empty, then exits. The
// next Enqueue starts a fresh loop. A failing job is logged and never blocks
// the jobs behind it.
func (p *LocalProcessor) drain() {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.draining = false
			p.idle.Broadcast()
			p.mu.Unlock()
			return
		}
		req := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		if p.delay > 0 {
			time.Sleep(p.delay)
		}

		res := p.svc.Process(context.Background(), req)
		if res.Err != nil {
			p.logger.Error().Err(res.Err).
				Str("operation_id", req.OperationID).
				Str("type", string(req.Type)).
				Msg("jobs: queued operation failed")
		}
	}
}

// Wait blocks until the queue is empty and the drain loop has stopped.
// Intended for tests and graceful shutdown.
func (p *LocalProcessor) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.draining {
		p.idle.Wait()
	}
}

// Pending returns the number of queued-but-not-started requests.
func (p *LocalProcessor) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

var _ Processor = (*LocalProcessor)(nil)
