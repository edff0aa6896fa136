package dedup

import "context"

// mockRegistryRepository implements RegistryRepository for testing.
type mockRegistryRepository struct {
	InsertFn func(ctx context.Context, p Participant) error
}

func (m *mockRegistryRepository) Insert(ctx context.Context, p Participant) error {
	return m.InsertFn(ctx, p)
}

// mockTweetCacheRepository implements TweetCacheRepository for testing.
type mockTweetCacheRepository struct {
	InsertFn        func(ctx context.Context, rec TweetRecord) error
	ContentHashesFn func(ctx context.Context, widgetID, mentionedHandle string) ([]string, error)
}

func (m *mockTweetCacheRepository) Insert(ctx context.Context, rec TweetRecord) error {
	return m.InsertFn(ctx, rec)
}

func (m *mockTweetCacheRepository) ContentHashes(ctx context.Context, widgetID, mentionedHandle string) ([]string, error) {
	return m.ContentHashesFn(ctx, widgetID, mentionedHandle)
}

// mockResponseCacheRepository implements ResponseCacheRepository for testing.
type mockResponseCacheRepository struct {
	InsertMessageFn func(ctx context.Context, platform string, msg MessageResponse) error
	InsertCommentFn func(ctx context.Context, platform string, c CommentResponse) error
}

func (m *mockResponseCacheRepository) InsertMessage(ctx context.Context, platform string, msg MessageResponse) error {
	return m.InsertMessageFn(ctx, platform, msg)
}

func (m *mockResponseCacheRepository) InsertComment(ctx context.Context, platform string, c CommentResponse) error {
	return m.InsertCommentFn(ctx, platform, c)
}

// Compile-time checks.
var (
	_ RegistryRepository      = (*mockRegistryRepository)(nil)
	_ TweetCacheRepository    = (*mockTweetCacheRepository)(nil)
	_ ResponseCacheRepository = (*mockResponseCacheRepository)(nil)
)
