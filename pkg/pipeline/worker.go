package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/casegraph/backend/internal/queue"
	"github.com/casegraph/backend/internal/util"
	"github.com/casegraph/backend/pkg/logger"
)

const (
	// DefaultConcurrency is the worker pool size.
	DefaultConcurrency = 4

	// DefaultVisibilityTimeout is how long an unacked delivery stays with
	// a consumer before it becomes claimable by another.
	DefaultVisibilityTimeout = 2 * time.Minute

	claimInterval = 30 * time.Second
	idleBackoff   = 250 * time.Millisecond
)

type WorkerPool struct {
	service     *Service
	queue       queue.Queue
	concurrency int
	visibility  time.Duration
}

func NewWorkerPool(service *Service, q queue.Queue, concurrency int, visibility time.Duration) *WorkerPool {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if visibility <= 0 {
		visibility = DefaultVisibilityTimeout
	}
	return &WorkerPool{
		service:     service,
		queue:       q,
		concurrency: concurrency,
		visibility:  visibility,
	}
}

// Run blocks until ctx is cancelled, pulling tasks with a bounded pool
// of workers. A separate loop reclaims deliveries other consumers held
// past the visibility timeout.
func (p *WorkerPool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < p.concurrency; i++ {
		g.Go(func() error {
			p.consumeLoop(ctx)
			return nil
		})
	}

	g.Go(func() error {
		p.claimLoop(ctx)
		return nil
	})

	return g.Wait()
}

func (p *WorkerPool) consumeLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		d, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Dequeue failed", "err", err)
			_ = util.SleepWithContext(ctx, idleBackoff)
			continue
		}
		if d == nil {
			_ = util.SleepWithContext(ctx, idleBackoff)
			continue
		}
		p.handle(ctx, *d)
	}
}

func (p *WorkerPool) claimLoop(ctx context.Context) {
	for {
		if err := util.SleepWithContext(ctx, claimInterval); err != nil {
			return
		}
		claimed, err := p.queue.Claim(ctx, p.visibility)
		if err != nil {
			logger.Error("Claim failed", "err", err)
			continue
		}
		for _, d := range claimed {
			logger.Warn("Reclaimed stale delivery", "delivery", d.ID, "task", d.Envelope.TaskID)
			p.handle(ctx, d)
		}
	}
}

// handle processes one delivery and acks it. Failures are recorded on
// the task by ProcessDelivery; only infrastructure errors leave the
// delivery unacked for redelivery.
func (p *WorkerPool) handle(ctx context.Context, d queue.Delivery) {
	start := time.Now()
	if err := p.service.ProcessDelivery(ctx, d); err != nil {
		logger.Error("Failed to process delivery, leaving unacked",
			"delivery", d.ID,
			"task", d.Envelope.TaskID,
			"err", err,
		)
		return
	}
	if err := p.queue.Ack(ctx, d.ID); err != nil {
		logger.Error("Failed to ack delivery", "delivery", d.ID, "err", err)
		return
	}
	logger.Debug("Processed delivery",
		"task", d.Envelope.TaskID,
		"type", d.Envelope.Type,
		"took", time.Since(start),
	)
}
