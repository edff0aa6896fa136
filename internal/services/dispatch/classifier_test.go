package dispatch

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/replyloop/actions-worker/internal/shared/domain/actions"
	"github.com/replyloop/actions-worker/internal/shared/domain/faults"
)

func testAction() *actions.Action {
	return &actions.Action{Type: "tweet", UserID: "U1", WidgetID: "W1", Priority: 5}
}

func TestClassify_PlatformRequeueCodes(t *testing.T) {
	tests := []struct {
		name string
		err  faults.PlatformError
	}{
		{
			name: "over capacity",
			err:  faults.PlatformError{{Code: faults.CodeOverCapacity, Message: "cap"}},
		},
		{
			name: "internal platform error",
			err:  faults.PlatformError{{Code: faults.CodeInternalError, Message: "oops"}},
		},
		{
			name: "later elements do not matter",
			err: faults.PlatformError{
				{Code: faults.CodeOverCapacity, Message: "cap"},
				{Code: faults.CodeDuplicateStatus, Message: "dup"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Classify(testAction(), tt.err)
			assert.True(t, decision.Requeue)
		})
	}
}

func TestClassify_PlatformDiscards(t *testing.T) {
	tests := []struct {
		name         string
		err          faults.PlatformError
		wantSeverity slog.Level
		wantMessage  string
	}{
		{
			name:         "duplicate tweet is benign",
			err:          faults.PlatformError{{Code: 187, Message: "dup"}},
			wantSeverity: slog.LevelInfo,
			wantMessage:  "Duplicate tweet: dup",
		},
		{
			name:         "recipient cannot receive messages is benign",
			err:          faults.PlatformError{{Code: 150, Message: "You cannot send messages to this user."}},
			wantSeverity: slog.LevelInfo,
			wantMessage:  "twitter error 150: You cannot send messages to this user.",
		},
		{
			name:         "removed conversation is benign",
			err:          faults.PlatformError{{Code: 0, Message: "You attempted to reply to a Tweet that is deleted or not visible to you."}},
			wantSeverity: slog.LevelInfo,
			wantMessage:  "You attempted to reply to a Tweet that is deleted or not visible to you.",
		},
		{
			name:         "invalid token flags the operator",
			err:          faults.PlatformError{{Code: 89, Message: "Invalid or expired token."}},
			wantSeverity: slog.LevelWarn,
			wantMessage:  "twitter error 89: Invalid or expired token.",
		},
		{
			name:         "rate limit exceeded flags the operator",
			err:          faults.PlatformError{{Code: 88, Message: "Rate limit exceeded"}},
			wantSeverity: slog.LevelWarn,
			wantMessage:  "twitter error 88: Rate limit exceeded",
		},
		{
			name:         "unrecognized code uses the generic template",
			err:          faults.PlatformError{{Code: 326, Message: "locked"}},
			wantSeverity: slog.LevelError,
			wantMessage:  "twitter error 326: locked",
		},
		{
			name:         "missing code passes raw message through",
			err:          faults.PlatformError{{Code: 0, Message: "something odd"}},
			wantSeverity: slog.LevelError,
			wantMessage:  "something odd",
		},
		{
			name:         "no code and no message",
			err:          faults.PlatformError{{}},
			wantSeverity: slog.LevelError,
			wantMessage:  "Unknown error",
		},
		{
			name:         "empty list",
			err:          faults.PlatformError{},
			wantSeverity: slog.LevelError,
			wantMessage:  "Unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Classify(testAction(), tt.err)
			assert.False(t, decision.Requeue)
			assert.Equal(t, tt.wantSeverity, decision.Severity)
			assert.Equal(t, tt.wantMessage, decision.Message)
		})
	}
}

func TestClassify_StorageErrors(t *testing.T) {
	transient := faults.NewStorage("get rate limit", &pgconn.PgError{Code: "08006"})
	decision := Classify(testAction(), transient)
	assert.True(t, decision.Requeue)

	hard := faults.NewStorage("get rate limit", &pgconn.PgError{Code: "42601", Message: "syntax error"})
	decision = Classify(testAction(), hard)
	assert.False(t, decision.Requeue)
	assert.Equal(t, slog.LevelError, decision.Severity)
}

func TestClassify_GenericErrors(t *testing.T) {
	decision := Classify(testAction(), errors.New("boom"))
	assert.False(t, decision.Requeue)
	assert.Equal(t, slog.LevelError, decision.Severity)
	assert.Equal(t, "boom", decision.Message)

	decision = Classify(testAction(), nil)
	assert.False(t, decision.Requeue)
	assert.Equal(t, "Unknown error", decision.Message)
}

func TestClassify_IgnoreErrorsDowngradesToInfo(t *testing.T) {
	a := testAction()
	a.IgnoreErrors = true

	decision := Classify(a, errors.New("boom"))
	assert.False(t, decision.Requeue)
	assert.Equal(t, slog.LevelInfo, decision.Severity)

	// Requeue decisions are unaffected by the flag.
	decision = Classify(a, faults.PlatformError{{Code: faults.CodeOverCapacity, Message: "cap"}})
	assert.True(t, decision.Requeue)
}

func TestClassify_TransportErrors(t *testing.T) {
	// No verdict from upstream: retry.
	for _, status := range []int{0, 502, 503, 504} {
		decision := Classify(testAction(), &faults.TransportError{Status: status, Err: errors.New("unreachable")})
		assert.True(t, decision.Requeue, "status %d", status)
	}

	// The request was received and rejected: terminal.
	decision := Classify(testAction(), &faults.TransportError{Status: 400, Err: errors.New("bad request")})
	assert.False(t, decision.Requeue)
	assert.Equal(t, slog.LevelError, decision.Severity)
}
