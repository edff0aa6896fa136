// Package dispatch decides the fate of failed actions: requeue for
// retry, or discard with a severity-tiered report. It is the single
// authority on retry vs. discard; no other component re-implements the
// policy.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/replyloop/actions-worker/internal/shared/domain/actions"
	"github.com/replyloop/actions-worker/internal/shared/domain/faults"
)

// Decision is the computed, stateless classification of a failed action.
type Decision struct {
	Requeue  bool
	Severity slog.Level
	Message  string
}

const unknownError = "Unknown error"

// Message markers the platform uses for conditions that have no
// dedicated code. Matched case-insensitively.
const (
	markerRemovedConversation = "deleted or not visible"
	markerInvalidToken        = "invalid or expired token"
	markerRateLimited         = "rate limit exceeded"
)

// Classify maps a failed action and its error value to a decision.
// It never panics: absence of expected fields degrades to the generic
// default path.
func Classify(a *actions.Action, cause error) Decision {
	if cause == nil {
		return discard(a, slog.LevelError, unknownError)
	}

	var platformErr faults.PlatformError
	if errors.As(cause, &platformErr) {
		return classifyPlatform(a, platformErr)
	}

	var storageErr *faults.StorageError
	if errors.As(cause, &storageErr) {
		return classifyStorage(a, storageErr)
	}

	var transportErr *faults.TransportError
	if errors.As(cause, &transportErr) {
		return classifyTransport(a, transportErr)
	}

	// Generic exception: terminal, reported loudly unless the action
	// asked for errors to be ignored.
	msg := cause.Error()
	if msg == "" {
		msg = unknownError
	}
	return discard(a, slog.LevelError, msg)
}

// classifyPlatform inspects the first element of the ordered error list;
// later elements are informational only.
func classifyPlatform(a *actions.Action, platformErr faults.PlatformError) Decision {
	first, ok := platformErr.First()
	if !ok {
		return discard(a, slog.LevelError, unknownError)
	}

	switch first.Code {
	case faults.CodeOverCapacity, faults.CodeInternalError:
		return Decision{Requeue: true}
	}

	return discard(a, platformSeverity(first), humanMessage(first))
}

func classifyStorage(a *actions.Action, storageErr *faults.StorageError) Decision {
	if storageErr.Transient() {
		return Decision{Requeue: true}
	}
	return discard(a, slog.LevelError, storageErr.Error())
}

// classifyTransport retries faults where the upstream never produced a
// verdict: connection-level failures and gateway-class statuses. Any
// other status means the request was received and rejected.
func classifyTransport(a *actions.Action, transportErr *faults.TransportError) Decision {
	switch transportErr.Status {
	case 0, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return Decision{Requeue: true}
	}
	return discard(a, slog.LevelError, transportErr.Error())
}

// discard builds a terminal decision, downgrading severity to info when
// the action requested that errors be ignored.
func discard(a *actions.Action, severity slog.Level, message string) Decision {
	if a != nil && a.IgnoreErrors {
		severity = slog.LevelInfo
	}
	return Decision{Severity: severity, Message: message}
}

// humanMessage renders an operator-readable message for a discarded
// platform error.
func humanMessage(issue faults.PlatformIssue) string {
	if issue.Message == "" && issue.Code == 0 {
		return unknownError
	}

	switch issue.Code {
	case faults.CodeDuplicateStatus:
		return "Duplicate tweet: " + issue.Message
	case faults.CodeOverCapacity:
		return "Twitter over capacity: " + issue.Message
	case faults.CodeInternalError:
		return "Twitter internal error: " + issue.Message
	case 0:
		// No code: pass the raw message through.
		return issue.Message
	}

	if issue.Message == "" {
		return unknownError
	}
	return fmt.Sprintf("twitter error %d: %s", issue.Code, issue.Message)
}

// platformSeverity selects the log severity of a discarded platform
// error. Benign, expected outcomes land at info; conditions needing
// operator attention at warn; everything else at error.
func platformSeverity(issue faults.PlatformIssue) slog.Level {
	msg := strings.ToLower(issue.Message)

	switch issue.Code {
	case faults.CodeDuplicateStatus, faults.CodeCannotMessage:
		return slog.LevelInfo
	case faults.CodeInvalidToken, faults.CodeRateLimitExceeded:
		return slog.LevelWarn
	}

	if strings.Contains(msg, markerRemovedConversation) {
		return slog.LevelInfo
	}
	if strings.Contains(msg, markerInvalidToken) || strings.Contains(msg, markerRateLimited) {
		return slog.LevelWarn
	}

	return slog.LevelError
}
