package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/replyloop/actions-worker/internal/shared/domain/actions"
	"github.com/replyloop/actions-worker/internal/shared/metrics"
)

// Publisher publishes a message body to the broker on the shared
// channel. Implemented by rabbit.Publisher; the exchange is fixed at
// construction so every requeue goes through the same channel.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, priority uint8) error
}

// Dispatcher orchestrates the classifier's decision against the live
// queue channel: it re-publishes retryable actions and records terminal
// discards.
type Dispatcher struct {
	publisher Publisher
	counters  *metrics.Counters
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher publishing retries through the
// given publisher.
func NewDispatcher(publisher Publisher, counters *metrics.Counters, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		counters:  counters,
		logger:    logger.With("component", "dispatcher"),
	}
}

// Dispatch classifies the failed action and either requeues it
// (original body and priority preserved) or discards it with a
// severity-selected log entry. Returns whether the action was requeued.
// The returned error is non-nil only when a requeue publish failed; the
// caller must not acknowledge the original delivery in that case.
func (d *Dispatcher) Dispatch(ctx context.Context, a *actions.Action, body []byte, cause error) (bool, error) {
	decision := Classify(a, cause)

	if decision.Requeue {
		if err := d.Requeue(ctx, a, body); err != nil {
			return false, err
		}
		return true, nil
	}

	d.counters.IncDiscarded()
	d.logger.Log(ctx, decision.Severity, "action discarded",
		"action_type", a.Type,
		"user_id", a.UserID,
		"widget_id", a.WidgetID,
		"reason", decision.Message,
	)
	return false, nil
}

// Requeue re-publishes the original serialized action to its per-type,
// per-user throttle key, delivery priority unchanged. This is the sole
// retry mechanism; the message re-enters the queue and may be picked up
// by any consumer instance.
func (d *Dispatcher) Requeue(ctx context.Context, a *actions.Action, body []byte) error {
	key := a.ThrottleKey()
	if err := d.publisher.Publish(ctx, key, body, a.Priority); err != nil {
		return fmt.Errorf("failed to requeue action: %w", err)
	}

	d.counters.IncRequeued()
	d.logger.Info("action requeued",
		"routing_key", key,
		"action_type", a.Type,
		"user_id", a.UserID,
		"priority", a.Priority,
	)
	return nil
}
