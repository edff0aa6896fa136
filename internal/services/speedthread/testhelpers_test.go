package speedthread

import (
	"context"
	"time"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	InsertFn             func(ctx context.Context, p Participant) error
	SetLastInteractionFn func(ctx context.Context, widgetID, userID string, finalTime time.Time) (int64, error)
	GetDurationFn        func(ctx context.Context, widgetID, userID string) (*int64, error)
	GetFn                func(ctx context.Context, widgetID, userID string) (*Summary, error)
}

func (m *mockRepository) Insert(ctx context.Context, p Participant) error {
	return m.InsertFn(ctx, p)
}

func (m *mockRepository) SetLastInteraction(ctx context.Context, widgetID, userID string, finalTime time.Time) (int64, error) {
	return m.SetLastInteractionFn(ctx, widgetID, userID, finalTime)
}

func (m *mockRepository) GetDuration(ctx context.Context, widgetID, userID string) (*int64, error) {
	return m.GetDurationFn(ctx, widgetID, userID)
}

func (m *mockRepository) Get(ctx context.Context, widgetID, userID string) (*Summary, error) {
	return m.GetFn(ctx, widgetID, userID)
}

// Compile-time check: mockRepository implements Repository.
var _ Repository = (*mockRepository)(nil)
