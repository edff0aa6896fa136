package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/replyloop/actions-worker/internal/services/dedup"
	"github.com/replyloop/actions-worker/internal/shared/domain/faults"
)

// ResponseCacheRepo implements dedup.ResponseCacheRepository using
// PostgreSQL. The platform discriminator selects the target table and
// its recipient column: facebook uses psid, everything else the
// generic/instagram shape with igsid.
type ResponseCacheRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewResponseCacheRepo creates a new ResponseCacheRepo.
func NewResponseCacheRepo(pool *pgxpool.Pool, logger *slog.Logger) *ResponseCacheRepo {
	return &ResponseCacheRepo{
		pool:   pool,
		logger: logger.With("repository", "response_cache"),
	}
}

// InsertMessage appends a direct-message response audit row.
func (r *ResponseCacheRepo) InsertMessage(ctx context.Context, platform string, msg dedup.MessageResponse) error {
	query := `INSERT INTO instagram_messages (id, igsid, widget_id) VALUES ($1, $2, $3)`
	if platform == dedup.PlatformFacebook {
		query = `INSERT INTO facebook_messages (id, psid, widget_id) VALUES ($1, $2, $3)`
	}

	_, err := r.pool.Exec(ctx, query, msg.MessageID, msg.RecipientID, msg.WidgetID)
	if err != nil {
		return faults.NewStorage("failed to insert message response row", err)
	}
	return nil
}

// InsertComment appends a comment response audit row.
func (r *ResponseCacheRepo) InsertComment(ctx context.Context, platform string, c dedup.CommentResponse) error {
	query := `INSERT INTO instagram_comments (id, igsid, post_id, widget_id) VALUES ($1, $2, $3, $4)`
	if platform == dedup.PlatformFacebook {
		query = `INSERT INTO facebook_comments (id, psid, post_id, widget_id) VALUES ($1, $2, $3, $4)`
	}

	_, err := r.pool.Exec(ctx, query, c.CommentID, c.RecipientID, c.PostID, c.WidgetID)
	if err != nil {
		return faults.NewStorage("failed to insert comment response row", err)
	}
	return nil
}

// Ensure ResponseCacheRepo implements dedup.ResponseCacheRepository
var _ dedup.ResponseCacheRepository = (*ResponseCacheRepo)(nil)
