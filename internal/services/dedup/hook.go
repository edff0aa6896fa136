package dedup

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/replyloop/actions-worker/internal/shared/domain/actions"
)

// Action types that leave audit rows behind.
const (
	typeTweet        = "tweet"
	typeDM           = "dm"
	typeCommentReply = "comment_reply"
)

// AuditHook records audit cache rows after a platform action succeeds.
// It is best-effort end to end: a payload that does not carry the
// expected identifiers is logged and skipped, never failed.
type AuditHook struct {
	svc    *Service
	logger *slog.Logger
}

// NewAuditHook creates an audit hook over the dedup service.
func NewAuditHook(svc *Service, logger *slog.Logger) *AuditHook {
	return &AuditHook{
		svc:    svc,
		logger: logger.With("component", "audit-hook"),
	}
}

type tweetPayload struct {
	TweetID          string    `json:"tweetId"`
	SenderID         string    `json:"senderId"`
	SenderHandle     string    `json:"senderHandle"`
	MentionedUserID  string    `json:"mentionedUserId"`
	MentionedHandle  string    `json:"mentionedHandle"`
	CreatedAt        time.Time `json:"createdAt"`
	Tweet            string    `json:"tweet"`
	ResponseHash     string    `json:"responseHash"`
	TweetContentHash string    `json:"tweetContentHash"`
}

type messagePayload struct {
	Platform    string `json:"platform"`
	MessageID   string `json:"messageId"`
	RecipientID string `json:"recipientId"`
}

type commentPayload struct {
	Platform    string `json:"platform"`
	CommentID   string `json:"commentId"`
	RecipientID string `json:"recipientId"`
	PostID      string `json:"postId"`
}

// OnSuccess records the audit row matching the action type. Types
// without audit semantics are ignored.
func (h *AuditHook) OnSuccess(ctx context.Context, a *actions.Action) {
	var err error

	switch a.Type {
	case typeTweet:
		var p tweetPayload
		if err = json.Unmarshal(a.Payload, &p); err == nil {
			err = h.svc.CacheRequest(ctx, TweetRecord{
				WidgetID:         a.WidgetID,
				TweetID:          p.TweetID,
				SenderID:         p.SenderID,
				SenderHandle:     p.SenderHandle,
				MentionedUserID:  p.MentionedUserID,
				MentionedHandle:  p.MentionedHandle,
				CreatedAt:        p.CreatedAt,
				Tweet:            p.Tweet,
				ResponseHash:     p.ResponseHash,
				TweetContentHash: p.TweetContentHash,
			})
		}

	case typeDM:
		var p messagePayload
		if err = json.Unmarshal(a.Payload, &p); err == nil {
			err = h.svc.CacheMessageResponse(ctx, p.Platform, MessageResponse{
				MessageID:   p.MessageID,
				RecipientID: p.RecipientID,
				WidgetID:    a.WidgetID,
			})
		}

	case typeCommentReply:
		var p commentPayload
		if err = json.Unmarshal(a.Payload, &p); err == nil {
			err = h.svc.CacheCommentResponse(ctx, p.Platform, CommentResponse{
				CommentID:   p.CommentID,
				RecipientID: p.RecipientID,
				PostID:      p.PostID,
				WidgetID:    a.WidgetID,
			})
		}

	default:
		return
	}

	if err != nil {
		h.logger.Warn("skipping audit cache for action",
			"action_type", a.Type,
			"widget_id", a.WidgetID,
			"error", err,
		)
	}
}
