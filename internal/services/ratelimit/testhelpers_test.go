package ratelimit

import (
	"context"
	"time"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	UpsertFn func(ctx context.Context, key Key, limitResetAt time.Time) error
	GetFn    func(ctx context.Context, key Key) (time.Time, bool, error)
}

func (m *mockRepository) Upsert(ctx context.Context, key Key, limitResetAt time.Time) error {
	return m.UpsertFn(ctx, key, limitResetAt)
}

func (m *mockRepository) Get(ctx context.Context, key Key) (time.Time, bool, error) {
	return m.GetFn(ctx, key)
}

// Compile-time check: mockRepository implements Repository.
var _ Repository = (*mockRepository)(nil)
