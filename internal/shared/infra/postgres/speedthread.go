package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/replyloop/actions-worker/internal/services/speedthread"
	"github.com/replyloop/actions-worker/internal/shared/domain/faults"
)

// SpeedThreadRepo implements speedthread.Repository using PostgreSQL.
// The interaction_duration column is maintained here, on stop, so the
// derived value is readable without date arithmetic at query time.
type SpeedThreadRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewSpeedThreadRepo creates a new SpeedThreadRepo.
func NewSpeedThreadRepo(pool *pgxpool.Pool, logger *slog.Logger) *SpeedThreadRepo {
	return &SpeedThreadRepo{
		pool:   pool,
		logger: logger.With("repository", "speed_thread_participants"),
	}
}

// Insert creates the window row for a started participant.
func (r *SpeedThreadRepo) Insert(ctx context.Context, p speedthread.Participant) error {
	query := `
		INSERT INTO speed_thread_participants
			(widget_id, user_id, handle, first_interaction_time, optin_id, timeout_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		p.WidgetID, p.UserID, p.Handle, p.FirstInteractionTime, p.OptinID, p.TimeoutAt,
	)
	if err != nil {
		return faults.NewStorage("error registering speed thread participant", err)
	}
	return nil
}

// SetLastInteraction writes the stop time and derived duration, only
// for rows where a start exists.
func (r *SpeedThreadRepo) SetLastInteraction(ctx context.Context, widgetID, userID string, finalTime time.Time) (int64, error) {
	query := `
		UPDATE speed_thread_participants
		SET last_interaction_time = $3,
		    interaction_duration = (EXTRACT(EPOCH FROM ($3::timestamptz - first_interaction_time)) * 1000)::bigint
		WHERE widget_id = $1 AND user_id = $2
		  AND first_interaction_time IS NOT NULL
	`

	result, err := r.pool.Exec(ctx, query, widgetID, userID, finalTime)
	if err != nil {
		return 0, faults.NewStorage("error updating final time elapsed for speed thread participant", err)
	}
	return result.RowsAffected(), nil
}

// GetDuration returns the stored interaction duration in milliseconds.
func (r *SpeedThreadRepo) GetDuration(ctx context.Context, widgetID, userID string) (*int64, error) {
	query := `
		SELECT interaction_duration
		FROM speed_thread_participants
		WHERE widget_id = $1 AND user_id = $2
	`

	var duration *int64
	err := r.pool.QueryRow(ctx, query, widgetID, userID).Scan(&duration)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, faults.ErrParticipantNotFound
	}
	if err != nil {
		return nil, faults.NewStorage("error reading interaction duration for speed thread participant", err)
	}
	return duration, nil
}

// Get returns the participant summary, or nil when the key has no row.
func (r *SpeedThreadRepo) Get(ctx context.Context, widgetID, userID string) (*speedthread.Summary, error) {
	query := `
		SELECT user_id, last_interaction_time
		FROM speed_thread_participants
		WHERE widget_id = $1 AND user_id = $2
	`

	var summary speedthread.Summary
	err := r.pool.QueryRow(ctx, query, widgetID, userID).Scan(&summary.UserID, &summary.LastInteractionTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, faults.NewStorage("error reading speed thread participant", err)
	}
	return &summary, nil
}

// ExpireOverdue closes every window whose recorded timeout has passed
// and that has no stop event, treating the timeout as the final
// interaction time. Returns the number of windows closed. Used by the
// sweeper.
func (r *SpeedThreadRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE speed_thread_participants
		SET last_interaction_time = timeout_at,
		    interaction_duration = (EXTRACT(EPOCH FROM (timeout_at - first_interaction_time)) * 1000)::bigint
		WHERE timeout_at IS NOT NULL
		  AND timeout_at <= $1
		  AND last_interaction_time IS NULL
	`

	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, faults.NewStorage("error expiring overdue speed thread participants", err)
	}
	return result.RowsAffected(), nil
}

// Ensure SpeedThreadRepo implements speedthread.Repository
var _ speedthread.Repository = (*SpeedThreadRepo)(nil)
