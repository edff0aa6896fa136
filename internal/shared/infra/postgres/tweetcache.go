package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/replyloop/actions-worker/internal/services/dedup"
	"github.com/replyloop/actions-worker/internal/shared/domain/faults"
)

// TweetCacheRepo implements dedup.TweetCacheRepository using PostgreSQL.
// Rows are append-only audit records; soft deletion is recorded via
// deleted_at by operators, never by this worker.
type TweetCacheRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewTweetCacheRepo creates a new TweetCacheRepo.
func NewTweetCacheRepo(pool *pgxpool.Pool, logger *slog.Logger) *TweetCacheRepo {
	return &TweetCacheRepo{
		pool:   pool,
		logger: logger.With("repository", "tweet_cache"),
	}
}

// Insert appends an outbound tweet audit row.
func (r *TweetCacheRepo) Insert(ctx context.Context, rec dedup.TweetRecord) error {
	query := `
		INSERT INTO tweet_cache
			(widget_id, tweet_id, sender_id, sender_handle, mentioned_user_id,
			 mentioned_handle, created_at, tweet, response_hash, tweet_content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.WidgetID, rec.TweetID, rec.SenderID, rec.SenderHandle, rec.MentionedUserID,
		rec.MentionedHandle, rec.CreatedAt, rec.Tweet, rec.ResponseHash, rec.TweetContentHash,
	)
	if err != nil {
		return faults.NewStorage("failed to insert tweet cache row", err)
	}
	return nil
}

// ContentHashes returns recorded content hashes for the
// (widget, mentioned handle) pair, newest first.
func (r *TweetCacheRepo) ContentHashes(ctx context.Context, widgetID, mentionedHandle string) ([]string, error) {
	query := `
		SELECT tweet_content_hash
		FROM tweet_cache
		WHERE widget_id = $1 AND mentioned_handle = $2
		  AND tweet_content_hash IS NOT NULL
		  AND deleted_at IS NULL
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, widgetID, mentionedHandle)
	if err != nil {
		return nil, faults.NewStorage("failed to query tweet cache", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, faults.NewStorage("failed to scan tweet cache row", err)
		}
		hashes = append(hashes, hash)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.NewStorage("error iterating tweet cache rows", err)
	}

	return hashes, nil
}

// Ensure TweetCacheRepo implements dedup.TweetCacheRepository
var _ dedup.TweetCacheRepository = (*TweetCacheRepo)(nil)
