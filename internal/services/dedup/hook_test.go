package dedup

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/replyloop/actions-worker/internal/shared/domain/actions"
)

func hookUnderTest(registry *mockRegistryRepository, tweets *mockTweetCacheRepository, responses *mockResponseCacheRepository) *AuditHook {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuditHook(NewService(registry, tweets, responses, logger), logger)
}

func TestAuditHook_TweetCachesRequest(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var got TweetRecord
	tweets := &mockTweetCacheRepository{
		InsertFn: func(ctx context.Context, rec TweetRecord) error {
			got = rec
			return nil
		},
	}
	h := hookUnderTest(&mockRegistryRepository{}, tweets, &mockResponseCacheRepository{})

	payload, _ := json.Marshal(map[string]any{
		"tweetId":          "T1",
		"senderId":         "S1",
		"senderHandle":     "@sender",
		"mentionedHandle":  "@bob",
		"createdAt":        created,
		"tweet":            "hello",
		"tweetContentHash": "abc123",
	})
	h.OnSuccess(context.Background(), &actions.Action{Type: "tweet", UserID: "U1", WidgetID: "W1", Payload: payload})

	assert.Equal(t, "W1", got.WidgetID)
	assert.Equal(t, "T1", got.TweetID)
	assert.Equal(t, "@bob", got.MentionedHandle)
	assert.Equal(t, "abc123", got.TweetContentHash)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestAuditHook_DMCachesMessageResponse(t *testing.T) {
	var gotPlatform string
	var got MessageResponse
	responses := &mockResponseCacheRepository{
		InsertMessageFn: func(ctx context.Context, platform string, msg MessageResponse) error {
			gotPlatform = platform
			got = msg
			return nil
		},
	}
	h := hookUnderTest(&mockRegistryRepository{}, &mockTweetCacheRepository{}, responses)

	payload := json.RawMessage(`{"platform":"facebook","messageId":"M1","recipientId":"R1"}`)
	h.OnSuccess(context.Background(), &actions.Action{Type: "dm", UserID: "U1", WidgetID: "W1", Payload: payload})

	assert.Equal(t, PlatformFacebook, gotPlatform)
	assert.Equal(t, MessageResponse{MessageID: "M1", RecipientID: "R1", WidgetID: "W1"}, got)
}

func TestAuditHook_CommentReplyCachesCommentResponse(t *testing.T) {
	var got CommentResponse
	responses := &mockResponseCacheRepository{
		InsertCommentFn: func(ctx context.Context, platform string, c CommentResponse) error {
			got = c
			return nil
		},
	}
	h := hookUnderTest(&mockRegistryRepository{}, &mockTweetCacheRepository{}, responses)

	payload := json.RawMessage(`{"platform":"instagram","commentId":"C1","recipientId":"R1","postId":"P1"}`)
	h.OnSuccess(context.Background(), &actions.Action{Type: "comment_reply", UserID: "U1", WidgetID: "W1", Payload: payload})

	assert.Equal(t, CommentResponse{CommentID: "C1", RecipientID: "R1", PostID: "P1", WidgetID: "W1"}, got)
}

func TestAuditHook_UnknownTypeAndBadPayloadAreIgnored(t *testing.T) {
	tweets := &mockTweetCacheRepository{
		InsertFn: func(ctx context.Context, rec TweetRecord) error {
			t.Fatal("no audit row expected")
			return nil
		},
	}
	h := hookUnderTest(&mockRegistryRepository{}, tweets, &mockResponseCacheRepository{})

	h.OnSuccess(context.Background(), &actions.Action{Type: "speed_thread_start", WidgetID: "W1"})
	h.OnSuccess(context.Background(), &actions.Action{Type: "tweet", WidgetID: "W1", Payload: json.RawMessage(`{`)})
	// Missing identifiers fail validation inside the service and are skipped.
	h.OnSuccess(context.Background(), &actions.Action{Type: "tweet", WidgetID: "W1", Payload: json.RawMessage(`{}`)})
}
