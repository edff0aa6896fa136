package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/replyloop/actions-worker/internal/services/dedup"
	"github.com/replyloop/actions-worker/internal/services/lookup"
	"github.com/replyloop/actions-worker/internal/services/ratelimit"
	"github.com/replyloop/actions-worker/internal/services/speedthread"
	"github.com/replyloop/actions-worker/internal/shared/domain/actions"
	"github.com/replyloop/actions-worker/internal/shared/domain/faults"
)

// Control action types handled locally instead of going out through the
// gateway.
const (
	TypeSpeedThreadStart    = "speed_thread_start"
	TypeSpeedThreadStop     = "speed_thread_stop"
	TypeRegisterParticipant = "register_participant"
	TypeLookupValidate      = "lookup_validate"
)

// PlatformExecutor executes actions that leave the process.
type PlatformExecutor interface {
	Execute(ctx context.Context, a *actions.Action) error
}

// Timer manages speed-thread participant windows.
type Timer interface {
	Start(ctx context.Context, params speedthread.StartParams) error
	Stop(ctx context.Context, widgetID, userID string, finalInteractionTime time.Time) error
}

// Registrar registers participants idempotently.
type Registrar interface {
	AddParticipant(ctx context.Context, p dedup.Participant) (dedup.AddResult, error)
}

// Lookup validates identifiers against an external lookup endpoint.
type Lookup interface {
	Validate(ctx context.Context, req lookup.Request) (lookup.Result, error)
}

// Router is the top-level Executor: control actions run against local
// services, everything else is a platform action for the gateway.
type Router struct {
	gateway   PlatformExecutor
	timer     Timer
	registrar Registrar
	lookup    Lookup
	logger    *slog.Logger
}

// NewRouter creates an action router.
func NewRouter(gateway PlatformExecutor, timer Timer, registrar Registrar, lkp Lookup, logger *slog.Logger) *Router {
	return &Router{
		gateway:   gateway,
		timer:     timer,
		registrar: registrar,
		lookup:    lkp,
		logger:    logger.With("component", "router"),
	}
}

// Execute runs the action.
func (r *Router) Execute(ctx context.Context, a *actions.Action) error {
	switch a.Type {
	case TypeSpeedThreadStart:
		return r.startWindow(ctx, a)
	case TypeSpeedThreadStop:
		return r.stopWindow(ctx, a)
	case TypeRegisterParticipant:
		return r.register(ctx, a)
	case TypeLookupValidate:
		return r.lookupValidate(ctx, a)
	default:
		return r.gateway.Execute(ctx, a)
	}
}

type startPayload struct {
	Handle               string    `json:"handle"`
	FirstInteractionTime time.Time `json:"firstInteractionTime"`
	OptinID              string    `json:"optinId"`
	TimeoutSeconds       int       `json:"timeoutSeconds"`
}

func (r *Router) startWindow(ctx context.Context, a *actions.Action) error {
	var p startPayload
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode speed thread start payload: %w", err)
	}

	return r.timer.Start(ctx, speedthread.StartParams{
		WidgetID:             a.WidgetID,
		UserID:               a.UserID,
		Handle:               p.Handle,
		FirstInteractionTime: p.FirstInteractionTime,
		OptinID:              p.OptinID,
		TimeoutSeconds:       p.TimeoutSeconds,
	})
}

type stopPayload struct {
	FinalInteractionTime time.Time `json:"finalInteractionTime"`
}

func (r *Router) stopWindow(ctx context.Context, a *actions.Action) error {
	var p stopPayload
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode speed thread stop payload: %w", err)
	}

	return r.timer.Stop(ctx, a.WidgetID, a.UserID, p.FinalInteractionTime)
}

type registerPayload struct {
	Handle                 string `json:"handle"`
	ResponseType           string `json:"responseType"`
	OptinID                string `json:"optinId"`
	ConsentResponseTweetID string `json:"consentResponseTweetId"`
	Status                 string `json:"status"`
}

func (r *Router) register(ctx context.Context, a *actions.Action) error {
	var p registerPayload
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode registration payload: %w", err)
	}

	res, err := r.registrar.AddParticipant(ctx, dedup.Participant{
		WidgetID:               a.WidgetID,
		UserID:                 a.UserID,
		Handle:                 p.Handle,
		ResponseType:           p.ResponseType,
		OptinID:                p.OptinID,
		ConsentResponseTweetID: p.ConsentResponseTweetID,
		Status:                 p.Status,
	})
	if err != nil {
		return err
	}
	if res.Duplicate {
		r.logger.Info("participant already registered",
			"widget_id", a.WidgetID,
			"user_id", a.UserID,
		)
	}
	return nil
}

type lookupPayload struct {
	URL      string `json:"url"`
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *Router) lookupValidate(ctx context.Context, a *actions.Action) error {
	var p lookupPayload
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode lookup payload: %w", err)
	}

	result, err := r.lookup.Validate(ctx, lookup.Request{
		URL:      p.URL,
		ID:       p.ID,
		Username: p.Username,
		Password: p.Password,
	})
	if err != nil {
		return err
	}

	switch {
	case result.Transient:
		return &faults.TransportError{
			Status: http.StatusServiceUnavailable,
			Err:    fmt.Errorf("lookup upstream unavailable for id %s", p.ID),
		}
	case result.Failed:
		return fmt.Errorf("lookup validation failed for id %s", p.ID)
	}
	return nil
}

// Limiter reads rate-limit windows.
type Limiter interface {
	Allow(ctx context.Context, key ratelimit.Key) (bool, error)
}

// RateGate adapts the rate-limit service to the consumer's gate,
// deriving the window key from the action.
type RateGate struct {
	limiter Limiter
}

// NewRateGate creates a rate gate.
func NewRateGate(limiter Limiter) *RateGate {
	return &RateGate{limiter: limiter}
}

// Allow reports whether the action is outside its rate-limit window.
func (g *RateGate) Allow(ctx context.Context, a *actions.Action) (bool, error) {
	return g.limiter.Allow(ctx, WindowKey(a))
}
