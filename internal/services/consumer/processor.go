package consumer

import (
	"context"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/replyloop/actions-worker/internal/shared/domain/actions"
	"github.com/replyloop/actions-worker/internal/shared/metrics"
)

// Executor performs the platform API call an action describes.
type Executor interface {
	Execute(ctx context.Context, a *actions.Action) error
}

// Gate decides whether an action may run now or is still inside a
// rate-limit window.
type Gate interface {
	Allow(ctx context.Context, a *actions.Action) (bool, error)
}

// Dispatcher routes failed actions: back onto the queue or discarded
// with a severity-selected log line.
type Dispatcher interface {
	Dispatch(ctx context.Context, a *actions.Action, body []byte, cause error) (bool, error)
	Requeue(ctx context.Context, a *actions.Action, body []byte) error
}

// SuccessHook runs after a successful execution. Hooks are best-effort
// and must never fail the delivery.
type SuccessHook interface {
	OnSuccess(ctx context.Context, a *actions.Action)
}

// ProcessorConfig holds configuration for the delivery processor.
type ProcessorConfig struct {
	WorkerCount int
}

// Processor drains one shared AMQP deliveries channel with a small
// worker pool. Each delivery is decoded, gated, executed and then
// acked; the ack never precedes the requeue publish or the discard
// decision.
type Processor struct {
	executor   Executor
	gate       Gate
	dispatcher Dispatcher
	hooks      []SuccessHook
	counters   *metrics.Counters
	config     ProcessorConfig
	logger     *slog.Logger
}

// NewProcessor creates a new delivery processor.
func NewProcessor(
	executor Executor,
	gate Gate,
	dispatcher Dispatcher,
	hooks []SuccessHook,
	counters *metrics.Counters,
	config ProcessorConfig,
	logger *slog.Logger,
) *Processor {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	return &Processor{
		executor:   executor,
		gate:       gate,
		dispatcher: dispatcher,
		hooks:      hooks,
		counters:   counters,
		config:     config,
		logger:     logger.With("component", "consumer"),
	}
}

// Start consumes deliveries until the channel closes or the context is
// cancelled, then drains the worker pool.
func (p *Processor) Start(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	p.logger.Info("starting consumer", "workers", p.config.WorkerCount)

	var wg sync.WaitGroup
	for i := 0; i < p.config.WorkerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.worker(ctx, workerID, deliveries)
		}(i)
	}

	wg.Wait()
	p.logger.Info("consumer stopped")
	return nil
}

func (p *Processor) worker(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	logger := p.logger.With("worker_id", id)

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			p.handleDelivery(ctx, logger, d)
		}
	}
}

// handleDelivery processes one delivery end to end. The raw body is
// carried alongside the decoded action so a requeue republishes the
// exact bytes that arrived.
func (p *Processor) handleDelivery(ctx context.Context, logger *slog.Logger, d amqp.Delivery) {
	a, err := actions.Decode(d.Body)
	if err != nil {
		logger.Error("discarding malformed action", "error", err)
		p.counters.IncDiscarded()
		p.ack(logger, d)
		return
	}

	// The broker's basic-property priority is authoritative for
	// requeues; the envelope field may be absent or stale.
	a.Priority = d.Priority

	logger = logger.With("action_type", a.Type, "user_id", a.UserID)

	allowed, err := p.gate.Allow(ctx, a)
	if err != nil {
		// Gate faults flow through the classifier so transient
		// storage trouble requeues instead of discarding.
		if _, derr := p.dispatcher.Dispatch(ctx, a, d.Body, err); derr != nil {
			logger.Error("failed to dispatch after gate fault", "error", derr)
			p.nack(logger, d)
			return
		}
		p.ack(logger, d)
		return
	}
	if !allowed {
		logger.Debug("action inside rate-limit window, requeueing")
		p.counters.IncRateLimited()
		if err := p.dispatcher.Requeue(ctx, a, d.Body); err != nil {
			logger.Error("failed to requeue rate-limited action", "error", err)
			p.nack(logger, d)
			return
		}
		p.ack(logger, d)
		return
	}

	if execErr := p.executor.Execute(ctx, a); execErr != nil {
		requeued, derr := p.dispatcher.Dispatch(ctx, a, d.Body, execErr)
		if derr != nil {
			logger.Error("failed to dispatch after execution failure", "error", derr)
			p.nack(logger, d)
			return
		}
		logger.Debug("failed action dispatched", "requeued", requeued)
		p.ack(logger, d)
		return
	}

	for _, hook := range p.hooks {
		hook.OnSuccess(ctx, a)
	}
	p.counters.IncProcessed()
	logger.Info("action processed")
	p.ack(logger, d)
}

func (p *Processor) ack(logger *slog.Logger, d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		logger.Error("failed to ack delivery", "error", err)
	}
}

// nack requeues the delivery at the broker so a failed publish is
// retried on redelivery instead of being lost.
func (p *Processor) nack(logger *slog.Logger, d amqp.Delivery) {
	if err := d.Nack(false, true); err != nil {
		logger.Error("failed to nack delivery", "error", err)
	}
}
