// Package lookup calls an external identity/verification endpoint and
// classifies the outcome as success, permanent failure, or transient
// failure. Identifier values failing the content heuristics are rejected
// as permanent failures.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/replyloop/actions-worker/internal/shared/domain/faults"
)

// Request describes one lookup call. URL and ID are mandatory; ID names
// the field inside the response body to validate. Username/password are
// optional and enable basic auth.
type Request struct {
	URL      string
	ID       string
	Username string
	Password string
}

// Result is exactly one of three mutually exclusive outcomes:
// success (Body populated), Failed (permanent content/format rejection),
// or Transient (infrastructure hiccup, safe to retry).
type Result struct {
	Body      []byte
	Failed    bool
	Transient bool
}

// maxIdentifierLen is the longest identifier value accepted by the
// content heuristics.
const maxIdentifierLen = 30

var (
	punctuationRun = regexp.MustCompile(`[[:punct:]]{3,}`)
	urlLike        = regexp.MustCompile(`(?i)(?:https?://|www\.)\S+|\b[a-z0-9-]+\.(?:com|net|org|io|co|me|ly)\b`)
)

// responseWrapper is the {statusCode, body} shape some endpoints return.
// A bare body object is also accepted.
type responseWrapper struct {
	StatusCode int             `json:"statusCode"`
	Body       json.RawMessage `json:"body"`
}

// Validator performs lookup calls. A single request per call, no
// internal retry.
type Validator struct {
	client *http.Client
	logger *slog.Logger
}

// NewValidator creates a validator with the given per-call timeout.
func NewValidator(timeout time.Duration, logger *slog.Logger) *Validator {
	return &Validator{
		client: &http.Client{Timeout: timeout},
		logger: logger.With("service", "lookup"),
	}
}

// Validate runs the lookup. The returned error is non-nil only for
// validation failures, which are detected before any network call;
// call outcomes are expressed through Result.
func (v *Validator) Validate(ctx context.Context, req Request) (Result, error) {
	switch {
	case req.URL == "":
		return Result{}, faults.MissingField("url")
	case req.ID == "":
		return Result{}, faults.MissingField("id")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build lookup request: %w", err)
	}
	if req.Username != "" {
		httpReq.SetBasicAuth(req.Username, req.Password)
	}

	resp, err := v.client.Do(httpReq)
	if err != nil {
		// System-level transport fault, no HTTP status.
		v.logger.Error("lookup transport error", "url", req.URL, "error", err)
		return Result{Transient: true}, nil
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		v.logger.Error("lookup response read error", "url", req.URL, "error", err)
		return Result{Transient: true}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return v.classifyStatus(resp.StatusCode, req), nil
	}

	return v.inspectBody(payload, req), nil
}

// classifyStatus maps a non-2xx response to an outcome.
func (v *Validator) classifyStatus(status int, req Request) Result {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		// Gateway/connectivity class: the identity is not invalid, the
		// infrastructure hiccuped.
		v.logger.Warn("lookup transient upstream failure", "url", req.URL, "status", status)
		return Result{Transient: true}
	case http.StatusNotImplemented:
		// Expected upstream 5xx.
		v.logger.Warn("lookup failed upstream", "url", req.URL, "status", status)
		return Result{Failed: true}
	default:
		v.logger.Error("lookup HTTP error", "url", req.URL, "status", status)
		return Result{Failed: true}
	}
}

// inspectBody extracts and vets the identified field from a 2xx body.
func (v *Validator) inspectBody(payload []byte, req Request) Result {
	body := extractBody(payload)
	if len(body) == 0 {
		v.logger.Warn("lookup returned empty body", "url", req.URL)
		return Result{Failed: true}
	}

	fields, ok := parseObject(body)
	if !ok {
		v.logger.Warn("lookup body is not an object", "url", req.URL)
		return Result{Failed: true}
	}

	value, ok := fields[req.ID].(string)
	if !ok || value == "" {
		v.logger.Warn("lookup field missing", "url", req.URL, "field", req.ID)
		return Result{Failed: true}
	}

	if rejectIdentifier(value) {
		v.logger.Warn("lookup field rejected by content heuristics",
			"url", req.URL,
			"field", req.ID,
		)
		return Result{Failed: true}
	}

	serialized, err := json.Marshal(fields)
	if err != nil {
		v.logger.Error("lookup body serialization failed", "url", req.URL, "error", err)
		return Result{Failed: true}
	}
	return Result{Body: serialized}
}

// extractBody unwraps a {statusCode, body} envelope, or returns the
// payload unchanged when it is a bare body.
func extractBody(payload []byte) []byte {
	var wrapper responseWrapper
	if err := json.Unmarshal(payload, &wrapper); err == nil && len(wrapper.Body) > 0 && string(wrapper.Body) != "null" {
		return wrapper.Body
	}
	return payload
}

// parseObject decodes raw into an object, unwrapping one level of
// string-encoded JSON if needed.
func parseObject(raw []byte) (map[string]any, bool) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err == nil {
		return fields, true
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if err := json.Unmarshal([]byte(encoded), &fields); err == nil {
			return fields, true
		}
	}
	return nil, false
}

// rejectIdentifier applies the low-quality-identifier heuristics:
// over-long values, runs of three or more punctuation characters, and
// URL-like substrings.
func rejectIdentifier(value string) bool {
	if len(value) > maxIdentifierLen {
		return true
	}
	if punctuationRun.MatchString(value) {
		return true
	}
	return urlLike.MatchString(value)
}
