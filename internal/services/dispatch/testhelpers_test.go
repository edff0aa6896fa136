package dispatch

import "context"

// mockPublisher implements Publisher for testing.
type mockPublisher struct {
	PublishFn func(ctx context.Context, routingKey string, body []byte, priority uint8) error
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, body []byte, priority uint8) error {
	return m.PublishFn(ctx, routingKey, body, priority)
}

// Compile-time check: mockPublisher implements Publisher.
var _ Publisher = (*mockPublisher)(nil)
