// Package executor carries actions to their side effects: platform
// actions go out through the HTTP gateway, control actions are handled
// locally by the timer and registry services.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/replyloop/actions-worker/internal/services/ratelimit"
	"github.com/replyloop/actions-worker/internal/shared/domain/actions"
	"github.com/replyloop/actions-worker/internal/shared/domain/faults"
)

// rateLimitResetHeader carries the epoch second the platform window
// reopens at, echoed through by the gateway.
const rateLimitResetHeader = "X-Rate-Limit-Reset"

// RateRecorder persists a rate-limit window observed on a response.
type RateRecorder interface {
	Record(ctx context.Context, key ratelimit.Key, limitResetAt time.Time) error
}

// Gateway executes platform actions by posting the envelope to the
// platform gateway and translating its error contract into faults the
// classifier understands.
type Gateway struct {
	baseURL  string
	client   *http.Client
	recorder RateRecorder
	logger   *slog.Logger
}

// NewGateway creates a gateway executor.
func NewGateway(baseURL string, timeout time.Duration, recorder RateRecorder, logger *slog.Logger) *Gateway {
	return &Gateway{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: timeout},
		recorder: recorder,
		logger:   logger.With("component", "gateway"),
	}
}

// Execute posts the action to the gateway. A structured errors body
// becomes a PlatformError; anything else non-2xx becomes a
// TransportError.
func (g *Gateway) Execute(ctx context.Context, a *actions.Action) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode action: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/actions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return &faults.TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &faults.TransportError{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var envelope struct {
		Errors faults.PlatformError `json:"errors"`
	}
	if jsonErr := json.Unmarshal(data, &envelope); jsonErr == nil && len(envelope.Errors) > 0 {
		g.recordWindow(ctx, a, resp, envelope.Errors)
		return envelope.Errors
	}

	return &faults.TransportError{
		Status: resp.StatusCode,
		Err:    fmt.Errorf("unexpected gateway response: %s", truncate(data, 200)),
	}
}

// recordWindow persists the reset time when the platform reported a
// rate limit and echoed the reset header.
func (g *Gateway) recordWindow(ctx context.Context, a *actions.Action, resp *http.Response, errs faults.PlatformError) {
	first, ok := errs.First()
	if !ok || first.Code != faults.CodeRateLimitExceeded {
		return
	}

	raw := resp.Header.Get(rateLimitResetHeader)
	epoch, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		g.logger.Warn("rate limit reported without usable reset header", "header", raw)
		return
	}

	resetAt := time.Unix(epoch, 0).UTC()
	if err := g.recorder.Record(ctx, WindowKey(a), resetAt); err != nil {
		g.logger.Error("failed to record rate-limit window", "error", err)
	}
}

// WindowKey derives the rate-limit window key for an action. All
// gateway calls are POSTs keyed by action type; the platform comes from
// the payload, defaulting to twitter.
func WindowKey(a *actions.Action) ratelimit.Key {
	return ratelimit.Key{
		UserID:   a.UserID,
		Platform: platformOf(a),
		Method:   http.MethodPost,
		Endpoint: a.Type,
	}
}

func platformOf(a *actions.Action) string {
	var probe struct {
		Platform string `json:"platform"`
	}
	if len(a.Payload) > 0 && json.Unmarshal(a.Payload, &probe) == nil && probe.Platform != "" {
		return probe.Platform
	}
	return "twitter"
}

func truncate(data []byte, n int) string {
	if len(data) > n {
		return string(data[:n]) + "..."
	}
	return string(data)
}
