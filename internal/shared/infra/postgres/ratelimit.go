package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/replyloop/actions-worker/internal/services/ratelimit"
	"github.com/replyloop/actions-worker/internal/shared/domain/faults"
)

// RateLimitRepo implements ratelimit.Repository using PostgreSQL.
// Single-row replace-on-conflict keeps the invariant of at most one row
// per key under concurrent writers.
type RateLimitRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRateLimitRepo creates a new RateLimitRepo.
func NewRateLimitRepo(pool *pgxpool.Pool, logger *slog.Logger) *RateLimitRepo {
	return &RateLimitRepo{
		pool:   pool,
		logger: logger.With("repository", "rate_limit"),
	}
}

// Upsert records the next-allowed time for the key. Last writer wins.
func (r *RateLimitRepo) Upsert(ctx context.Context, key ratelimit.Key, limitResetAt time.Time) error {
	query := `
		INSERT INTO rate_limit (user_id, platform, method, endpoint, limit_reset_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, platform, method, endpoint) DO UPDATE
		SET limit_reset_at = EXCLUDED.limit_reset_at
	`

	_, err := r.pool.Exec(ctx, query, key.UserID, key.Platform, key.Method, key.Endpoint, limitResetAt)
	if err != nil {
		return faults.NewStorage("failed to upsert rate limit", err)
	}
	return nil
}

// Get returns the most recent reset time for the key, with false when
// the key has never been recorded.
func (r *RateLimitRepo) Get(ctx context.Context, key ratelimit.Key) (time.Time, bool, error) {
	query := `
		SELECT limit_reset_at
		FROM rate_limit
		WHERE user_id = $1 AND platform = $2 AND method = $3 AND endpoint = $4
	`

	var resetAt time.Time
	err := r.pool.QueryRow(ctx, query, key.UserID, key.Platform, key.Method, key.Endpoint).Scan(&resetAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, faults.NewStorage("failed to get rate limit", err)
	}
	return resetAt, true, nil
}

// Ensure RateLimitRepo implements ratelimit.Repository
var _ ratelimit.Repository = (*RateLimitRepo)(nil)
