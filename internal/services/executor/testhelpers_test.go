package executor

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/replyloop/actions-worker/internal/services/dedup"
	"github.com/replyloop/actions-worker/internal/services/lookup"
	"github.com/replyloop/actions-worker/internal/services/ratelimit"
	"github.com/replyloop/actions-worker/internal/services/speedthread"
	"github.com/replyloop/actions-worker/internal/shared/domain/actions"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockRecorder struct {
	RecordFn func(ctx context.Context, key ratelimit.Key, limitResetAt time.Time) error
}

func (m *mockRecorder) Record(ctx context.Context, key ratelimit.Key, limitResetAt time.Time) error {
	if m.RecordFn == nil {
		return nil
	}
	return m.RecordFn(ctx, key, limitResetAt)
}

type mockPlatformExecutor struct {
	ExecuteFn func(ctx context.Context, a *actions.Action) error
}

func (m *mockPlatformExecutor) Execute(ctx context.Context, a *actions.Action) error {
	return m.ExecuteFn(ctx, a)
}

type mockTimer struct {
	StartFn func(ctx context.Context, params speedthread.StartParams) error
	StopFn  func(ctx context.Context, widgetID, userID string, finalInteractionTime time.Time) error
}

func (m *mockTimer) Start(ctx context.Context, params speedthread.StartParams) error {
	return m.StartFn(ctx, params)
}

func (m *mockTimer) Stop(ctx context.Context, widgetID, userID string, finalInteractionTime time.Time) error {
	return m.StopFn(ctx, widgetID, userID, finalInteractionTime)
}

type mockRegistrar struct {
	AddParticipantFn func(ctx context.Context, p dedup.Participant) (dedup.AddResult, error)
}

func (m *mockRegistrar) AddParticipant(ctx context.Context, p dedup.Participant) (dedup.AddResult, error) {
	return m.AddParticipantFn(ctx, p)
}

type mockLookup struct {
	ValidateFn func(ctx context.Context, req lookup.Request) (lookup.Result, error)
}

func (m *mockLookup) Validate(ctx context.Context, req lookup.Request) (lookup.Result, error) {
	return m.ValidateFn(ctx, req)
}

type mockLimiter struct {
	AllowFn func(ctx context.Context, key ratelimit.Key) (bool, error)
}

func (m *mockLimiter) Allow(ctx context.Context, key ratelimit.Key) (bool, error) {
	return m.AllowFn(ctx, key)
}
