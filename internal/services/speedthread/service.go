// Package speedthread tracks time-bounded conversational interaction
// windows per (widget, user): a participant window is started once,
// stopped at most once, and its duration is queryable afterwards.
package speedthread

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/replyloop/actions-worker/internal/shared/domain/faults"
)

// ErrWindowOpen is returned by GetInteractionDuration when the
// participant has started but no stop event has been recorded yet.
var ErrWindowOpen = errors.New("interaction window still open")

// Participant is one speed-thread window row.
type Participant struct {
	WidgetID             string
	UserID               string
	Handle               string
	FirstInteractionTime time.Time
	OptinID              string
	TimeoutAt            *time.Time
	LastInteractionTime  *time.Time
	InteractionDuration  *int64 // milliseconds
}

// Summary is the existence-probe view of a participant.
type Summary struct {
	UserID              string
	LastInteractionTime *time.Time
}

// StartParams are the inputs to Start. TimeoutSeconds <= 0 means no
// automatic expiry is recorded; enforcement of recorded timeouts
// belongs to the sweeper collaborator.
type StartParams struct {
	WidgetID             string
	UserID               string
	Handle               string
	FirstInteractionTime time.Time
	OptinID              string
	TimeoutSeconds       int
}

// Repository defines storage operations for participant windows.
type Repository interface {
	// Insert creates the window row for a started participant.
	Insert(ctx context.Context, p Participant) error

	// SetLastInteraction writes the stop time and derived duration, only
	// for rows where a start exists. Returns the number of rows updated.
	SetLastInteraction(ctx context.Context, widgetID, userID string, finalTime time.Time) (int64, error)

	// GetDuration returns the stored interaction duration in
	// milliseconds, nil when no stop has been recorded, or
	// faults.ErrParticipantNotFound when the key has no row.
	GetDuration(ctx context.Context, widgetID, userID string) (*int64, error)

	// Get returns the participant summary, or nil when the key has no
	// row.
	Get(ctx context.Context, widgetID, userID string) (*Summary, error)
}

// Service validates inputs and applies the window state machine:
// NotStarted -> Started -> Stopped, no reverts.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a speed-thread timer service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With("service", "speedthread"),
	}
}

// Start opens the interaction window. Required fields are checked in
// fixed order; the first missing one is reported.
func (s *Service) Start(ctx context.Context, params StartParams) error {
	switch {
	case params.WidgetID == "":
		return faults.MissingField("widgetId")
	case params.UserID == "":
		return faults.MissingField("userId")
	case params.Handle == "":
		return faults.MissingField("handle")
	case params.FirstInteractionTime.IsZero():
		return faults.MissingField("firstInteractionTime")
	case params.OptinID == "":
		return faults.MissingField("optinId")
	}

	p := Participant{
		WidgetID:             params.WidgetID,
		UserID:               params.UserID,
		Handle:               params.Handle,
		FirstInteractionTime: params.FirstInteractionTime,
		OptinID:              params.OptinID,
	}
	if params.TimeoutSeconds > 0 {
		timeoutAt := params.FirstInteractionTime.Add(time.Duration(params.TimeoutSeconds) * time.Second)
		p.TimeoutAt = &timeoutAt
	}

	if err := s.repo.Insert(ctx, p); err != nil {
		return err
	}

	s.logger.Debug("speed thread participant started",
		"widget_id", p.WidgetID,
		"user_id", p.UserID,
		"timeout_at", p.TimeoutAt,
	)
	return nil
}

// Stop records the final interaction time. Stopping a participant that
// never started affects zero rows and is not an error.
func (s *Service) Stop(ctx context.Context, widgetID, userID string, finalInteractionTime time.Time) error {
	switch {
	case widgetID == "":
		return faults.MissingField("widgetId")
	case userID == "":
		return faults.MissingField("userId")
	case finalInteractionTime.IsZero():
		return faults.MissingField("finalInteractionTime")
	}

	updated, err := s.repo.SetLastInteraction(ctx, widgetID, userID, finalInteractionTime)
	if err != nil {
		return err
	}
	if updated == 0 {
		s.logger.Debug("stop for unstarted speed thread participant ignored",
			"widget_id", widgetID,
			"user_id", userID,
		)
	}
	return nil
}

// GetInteractionDuration returns the recorded window duration.
// A key with no row yields faults.ErrParticipantNotFound; a started but
// unstopped window yields ErrWindowOpen.
func (s *Service) GetInteractionDuration(ctx context.Context, widgetID, userID string) (time.Duration, error) {
	switch {
	case widgetID == "":
		return 0, faults.MissingField("widgetId")
	case userID == "":
		return 0, faults.MissingField("userId")
	}

	ms, err := s.repo.GetDuration(ctx, widgetID, userID)
	if err != nil {
		return 0, err
	}
	if ms == nil {
		return 0, ErrWindowOpen
	}
	return time.Duration(*ms) * time.Millisecond, nil
}

// Get probes for a participant, returning nil when none exists.
func (s *Service) Get(ctx context.Context, widgetID, userID string) (*Summary, error) {
	switch {
	case widgetID == "":
		return nil, faults.MissingField("widgetId")
	case userID == "":
		return nil, faults.MissingField("userId")
	}
	return s.repo.Get(ctx, widgetID, userID)
}
