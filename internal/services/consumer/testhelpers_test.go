package consumer

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/replyloop/actions-worker/internal/shared/domain/actions"
)

type mockExecutor struct {
	ExecuteFn func(ctx context.Context, a *actions.Action) error
}

func (m *mockExecutor) Execute(ctx context.Context, a *actions.Action) error {
	return m.ExecuteFn(ctx, a)
}

type mockGate struct {
	AllowFn func(ctx context.Context, a *actions.Action) (bool, error)
}

func (m *mockGate) Allow(ctx context.Context, a *actions.Action) (bool, error) {
	if m.AllowFn == nil {
		return true, nil
	}
	return m.AllowFn(ctx, a)
}

type mockDispatcher struct {
	DispatchFn func(ctx context.Context, a *actions.Action, body []byte, cause error) (bool, error)
	RequeueFn  func(ctx context.Context, a *actions.Action, body []byte) error
}

func (m *mockDispatcher) Dispatch(ctx context.Context, a *actions.Action, body []byte, cause error) (bool, error) {
	return m.DispatchFn(ctx, a, body, cause)
}

func (m *mockDispatcher) Requeue(ctx context.Context, a *actions.Action, body []byte) error {
	return m.RequeueFn(ctx, a, body)
}

type mockBrokerPublisher struct {
	PublishFn func(ctx context.Context, routingKey string, body []byte, priority uint8) error
}

func (m *mockBrokerPublisher) Publish(ctx context.Context, routingKey string, body []byte, priority uint8) error {
	return m.PublishFn(ctx, routingKey, body, priority)
}

type mockHook struct {
	OnSuccessFn func(ctx context.Context, a *actions.Action)
}

func (m *mockHook) OnSuccess(ctx context.Context, a *actions.Action) {
	m.OnSuccessFn(ctx, a)
}

// fakeAcknowledger records ack/nack calls made against a delivery.
type fakeAcknowledger struct {
	mu          sync.Mutex
	acks        int
	nacks       int
	nackRequeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks++
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacks++
	f.nackRequeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func delivery(ack *fakeAcknowledger, body []byte) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Body:         body,
	}
}
