// Package ratelimit gates outbound platform calls per
// (user, platform, method, endpoint) using a storage-backed reset time.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/replyloop/actions-worker/internal/shared/domain/clock"
)

// Key identifies one rate-limited call site.
type Key struct {
	UserID   string
	Platform string
	Method   string
	Endpoint string
}

// Repository defines storage operations for rate-limit records. Cross-
// worker coordination relies on the store's single-row upsert atomicity;
// there is no in-process locking.
type Repository interface {
	// Upsert records the next-allowed time for the key, replacing any
	// previous value. Last writer wins.
	Upsert(ctx context.Context, key Key, limitResetAt time.Time) error

	// Get returns the most recent reset time for the key. The second
	// return is false when the key has never been recorded.
	Get(ctx context.Context, key Key) (time.Time, bool, error)
}

// Service wraps the repository with window arithmetic.
type Service struct {
	repo   Repository
	clock  clock.Clock
	logger *slog.Logger
}

// NewService creates a rate-limit service.
func NewService(repo Repository, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		clock:  clk,
		logger: logger.With("service", "ratelimit"),
	}
}

// Record stores the reset time reported by a platform response.
// Storage faults propagate to the caller for classification.
func (s *Service) Record(ctx context.Context, key Key, limitResetAt time.Time) error {
	if err := s.repo.Upsert(ctx, key, limitResetAt); err != nil {
		return err
	}

	s.logger.Debug("rate limit recorded",
		"user_id", key.UserID,
		"platform", key.Platform,
		"method", key.Method,
		"endpoint", key.Endpoint,
		"limit_reset_at", limitResetAt,
	)
	return nil
}

// ResetAt returns the stored reset time for the key, if any.
func (s *Service) ResetAt(ctx context.Context, key Key) (time.Time, bool, error) {
	return s.repo.Get(ctx, key)
}

// Allow reports whether a call for the key is currently permitted:
// true when no record exists or the recorded reset time has passed.
// The reset time is the last forbidden instant; calls are permitted
// strictly after it.
func (s *Service) Allow(ctx context.Context, key Key) (bool, error) {
	resetAt, found, err := s.repo.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	return s.clock.Now().After(resetAt), nil
}
