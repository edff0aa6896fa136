// Package actions defines the queued action envelope and its routing.
package actions

import (
	"encoding/json"
	"fmt"
)

// Action is the envelope for one unit of queued work: a social-platform
// operation to execute on behalf of a widget's user. Only the fields the
// reliability engine inspects are modeled; the payload stays opaque.
type Action struct {
	// Type is the platform/operation discriminator (e.g. "tweet", "dm",
	// "comment_reply").
	Type string `json:"type"`

	// UserID is the tenant-owning actor the action runs as.
	UserID string `json:"userId"`

	// WidgetID identifies the tenant the action belongs to.
	WidgetID string `json:"widgetId"`

	// Priority is the broker delivery priority, copied verbatim onto any
	// requeued message.
	Priority uint8 `json:"priority"`

	// IgnoreErrors requests that terminal failures be reported at info
	// severity instead of error.
	IgnoreErrors bool `json:"ignoreErrors,omitempty"`

	// Payload is the action-type-specific body, carried through untouched.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses an action envelope from a queue delivery body.
// Unknown payload fields are preserved inside Payload, not rejected.
func Decode(body []byte) (*Action, error) {
	var a Action
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, fmt.Errorf("failed to decode action envelope: %w", err)
	}
	if a.Type == "" {
		return nil, fmt.Errorf("action envelope has no type")
	}
	if a.UserID == "" {
		return nil, fmt.Errorf("action envelope has no userId")
	}
	return &a, nil
}

// ThrottleKey returns the routing key a failed action is requeued under.
// Type and user id are copied verbatim from the failed action.
func ThrottleKey(actionType, userID string) string {
	return fmt.Sprintf("actions.throttle.%s.%s", actionType, userID)
}

// ThrottleKey returns the requeue routing key for this action.
func (a *Action) ThrottleKey() string {
	return ThrottleKey(a.Type, a.UserID)
}
