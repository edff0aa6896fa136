// Package dedup prevents duplicate external side effects: idempotent
// participant registration, content-hash history for outbound message
// dedup, and best-effort audit caching of platform request/response
// pairs.
package dedup

import (
	"context"
	"log/slog"
	"time"

	"github.com/replyloop/actions-worker/internal/shared/domain/faults"
)

// PlatformFacebook selects the facebook_* target tables; any other
// discriminator value routes to the generic/instagram shape.
const PlatformFacebook = "facebook"

// Participant is a registration row in the participants table.
type Participant struct {
	WidgetID               string
	UserID                 string
	Handle                 string
	ResponseType           string
	OptinID                string
	ConsentResponseTweetID string
	Status                 string
}

// AddResult reports a registration attempt. On a duplicate the attempted
// fields are echoed back so callers treat "already registered" as a
// normal outcome.
type AddResult struct {
	Participant Participant
	Duplicate   bool
}

// TweetRecord is an audit row of an outbound tweet.
type TweetRecord struct {
	WidgetID         string
	TweetID          string
	SenderID         string
	SenderHandle     string
	MentionedUserID  string
	MentionedHandle  string
	CreatedAt        time.Time
	Tweet            string
	ResponseHash     string
	TweetContentHash string
}

// MessageResponse is an audit row of a direct-message platform response.
type MessageResponse struct {
	MessageID   string
	RecipientID string
	WidgetID    string
}

// CommentResponse is an audit row of a comment platform response.
type CommentResponse struct {
	CommentID   string
	RecipientID string
	PostID      string
	WidgetID    string
}

// RegistryRepository stores participant registrations.
type RegistryRepository interface {
	// Insert adds a registration row. A uniqueness violation surfaces as
	// a wrapped unique-violation error, detectable via
	// faults.IsUniqueViolation.
	Insert(ctx context.Context, p Participant) error
}

// TweetCacheRepository stores outbound tweet audit rows and serves the
// content-hash history.
type TweetCacheRepository interface {
	Insert(ctx context.Context, rec TweetRecord) error

	// ContentHashes returns the recorded content hashes for a
	// (widget, mentioned handle) pair, newest first.
	ContentHashes(ctx context.Context, widgetID, mentionedHandle string) ([]string, error)
}

// ResponseCacheRepository stores message/comment audit rows in the
// platform-discriminated tables.
type ResponseCacheRepository interface {
	InsertMessage(ctx context.Context, platform string, msg MessageResponse) error
	InsertComment(ctx context.Context, platform string, c CommentResponse) error
}

// Service is the dedup and idempotent cache store.
type Service struct {
	registry  RegistryRepository
	tweets    TweetCacheRepository
	responses ResponseCacheRepository
	logger    *slog.Logger
}

// NewService creates a dedup service.
func NewService(registry RegistryRepository, tweets TweetCacheRepository, responses ResponseCacheRepository, logger *slog.Logger) *Service {
	return &Service{
		registry:  registry,
		tweets:    tweets,
		responses: responses,
		logger:    logger.With("service", "dedup"),
	}
}

// AddParticipant attempts to register the participant. A uniqueness
// violation is converted to Duplicate: true with the attempted fields
// echoed back; any other storage fault propagates.
func (s *Service) AddParticipant(ctx context.Context, p Participant) (AddResult, error) {
	switch {
	case p.WidgetID == "":
		return AddResult{}, faults.MissingField("widgetId")
	case p.UserID == "":
		return AddResult{}, faults.MissingField("userId")
	}

	err := s.registry.Insert(ctx, p)
	if err != nil {
		if faults.IsUniqueViolation(err) {
			s.logger.Debug("participant already registered",
				"widget_id", p.WidgetID,
				"user_id", p.UserID,
			)
			return AddResult{Participant: p, Duplicate: true}, nil
		}
		return AddResult{}, err
	}

	return AddResult{Participant: p, Duplicate: false}, nil
}

// TweetDuplicates returns the content hashes recorded for the
// (widget, mentioned handle) pair, newest first. Callers compare a
// candidate message's hash against this history before sending.
func (s *Service) TweetDuplicates(ctx context.Context, widgetID, mentionedHandle string) ([]string, error) {
	switch {
	case widgetID == "":
		return nil, faults.MissingField("widgetId")
	case mentionedHandle == "":
		return nil, faults.MissingField("mentionedHandle")
	}
	return s.tweets.ContentHashes(ctx, widgetID, mentionedHandle)
}

// CacheRequest records an outbound tweet audit row. Validation failures
// are reported; storage failures are logged and swallowed, because
// caching must never fail the primary action.
func (s *Service) CacheRequest(ctx context.Context, rec TweetRecord) error {
	switch {
	case rec.TweetID == "":
		return faults.MissingField("tweetId")
	case rec.SenderID == "":
		return faults.MissingField("senderId")
	case rec.WidgetID == "":
		return faults.MissingField("widgetId")
	}

	s.bestEffort("cache tweet request", func() error {
		return s.tweets.Insert(ctx, rec)
	})
	return nil
}

// CacheMessageResponse records a direct-message response audit row in
// the platform's message table.
func (s *Service) CacheMessageResponse(ctx context.Context, platform string, msg MessageResponse) error {
	switch {
	case msg.MessageID == "":
		return faults.MissingField("messageId")
	case msg.RecipientID == "":
		return faults.MissingField("recipientId")
	case msg.WidgetID == "":
		return faults.MissingField("widgetId")
	}

	s.bestEffort("cache message response", func() error {
		return s.responses.InsertMessage(ctx, platform, msg)
	})
	return nil
}

// CacheCommentResponse records a comment response audit row in the
// platform's comment table.
func (s *Service) CacheCommentResponse(ctx context.Context, platform string, c CommentResponse) error {
	switch {
	case c.CommentID == "":
		return faults.MissingField("commentId")
	case c.RecipientID == "":
		return faults.MissingField("recipientId")
	case c.PostID == "":
		return faults.MissingField("postId")
	case c.WidgetID == "":
		return faults.MissingField("widgetId")
	}

	s.bestEffort("cache comment response", func() error {
		return s.responses.InsertComment(ctx, platform, c)
	})
	return nil
}

// bestEffort runs a cache write, converting any failure into a log
// entry and a no-op return.
func (s *Service) bestEffort(op string, fn func() error) {
	if err := fn(); err != nil {
		s.logger.Warn("best-effort cache write failed",
			"op", op,
			"error", err,
		)
	}
}
