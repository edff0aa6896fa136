package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/replyloop/actions-worker/internal/services/dedup"
	"github.com/replyloop/actions-worker/internal/shared/domain/faults"
)

// RegistryRepo implements dedup.RegistryRepository using PostgreSQL.
type RegistryRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRegistryRepo creates a new RegistryRepo.
func NewRegistryRepo(pool *pgxpool.Pool, logger *slog.Logger) *RegistryRepo {
	return &RegistryRepo{
		pool:   pool,
		logger: logger.With("repository", "participants"),
	}
}

// Insert adds a registration row. Unique-constraint violations are
// wrapped so the service can detect them with faults.IsUniqueViolation;
// every other fault surfaces as a StorageError.
func (r *RegistryRepo) Insert(ctx context.Context, p dedup.Participant) error {
	query := `
		INSERT INTO participants
			(widget_id, user_id, handle, response_type, optin_id, consent_response_tweet_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		p.WidgetID, p.UserID, p.Handle, p.ResponseType, p.OptinID, p.ConsentResponseTweetID, p.Status,
	)
	if err != nil {
		if faults.IsUniqueViolation(err) {
			return fmt.Errorf("participant already exists: %w", err)
		}
		return faults.NewStorage("failed to insert participant", err)
	}
	return nil
}

// Ensure RegistryRepo implements dedup.RegistryRepository
var _ dedup.RegistryRepository = (*RegistryRepo)(nil)
