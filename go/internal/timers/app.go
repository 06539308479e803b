package timers

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

// MaxDescriptionLength matches the width of the description column.
const MaxDescriptionLength = 255

// TimerRepository defines what the app layer needs from the repository
type TimerRepository interface {
	CreateTimer(ctx context.Context, timer models.Timer) (*models.Timer, error)
	ListTimers(ctx context.Context, userID models.UserID) ([]models.Timer, error)
	ListActiveTimers(ctx context.Context, userID models.UserID) ([]models.Timer, error)
	StopTimer(ctx context.Context, timerID string, userID models.UserID, endedAt time.Time) (*models.Timer, error)
}

// Notifier is told whenever a user's timer list changed.
type Notifier interface {
	TimersChanged(ctx context.Context, userID models.UserID)
}

// App handles timer business logic
type App struct {
	repo     TimerRepository
	notifier Notifier
	clock    clockwork.Clock
}

// NewApp creates a new timers App. notifier may be nil.
func NewApp(repo TimerRepository, notifier Notifier, clock clockwork.Clock) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		repo:     repo,
		notifier: notifier,
		clock:    clock,
	}
}

// CreateTimer starts a new timer for the user
func (a *App) CreateTimer(ctx context.Context, userID models.UserID, description string) (*models.Timer, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return nil, fmt.Errorf("description longer than %d characters: %w", MaxDescriptionLength, ErrInvalidDescription)
	}

	now := a.now()
	id, err := ulid.New(ulid.Timestamp(now), ulid.DefaultEntropy())
	if err != nil {
		return nil, fmt.Errorf("failed to generate timer id: %w", err)
	}

	timer, err := a.repo.CreateTimer(ctx, models.Timer{
		ID:          id.String(),
		Description: description,
		UserID:      userID,
		StartedAt:   now,
		Active:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create timer: %w", err)
	}

	log.Info().
		Str("timer_id", timer.ID).
		Int64("user_id", userID).
		Msg("timer started")

	a.notify(ctx, userID)
	return timer, nil
}

// StopTimer stops an active timer owned by the user
func (a *App) StopTimer(ctx context.Context, userID models.UserID, timerID string) (*models.Timer, error) {
	timer, err := a.repo.StopTimer(ctx, timerID, userID, a.now())
	if err != nil {
		return nil, fmt.Errorf("failed to stop timer %s: %w", timerID, err)
	}

	log.Info().
		Str("timer_id", timer.ID).
		Int64("user_id", userID).
		Msg("timer stopped")

	a.notify(ctx, userID)
	return timer, nil
}

// ListTimers returns all timers of the user, newest first
func (a *App) ListTimers(ctx context.Context, userID models.UserID) ([]models.Timer, error) {
	timers, err := a.repo.ListTimers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list timers: %w", err)
	}
	return timers, nil
}

// ListActiveTimers returns the running timers of the user
func (a *App) ListActiveTimers(ctx context.Context, userID models.UserID) ([]models.Timer, error) {
	timers, err := a.repo.ListActiveTimers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active timers: %w", err)
	}
	return timers, nil
}

// now is truncated to what Postgres timestamptz stores.
func (a *App) now() time.Time {
	return a.clock.Now().UTC().Truncate(time.Microsecond)
}

// notify runs after the change committed, so it must not be cut short by the
// caller going away.
func (a *App) notify(ctx context.Context, userID models.UserID) {
	if a.notifier == nil {
		return
	}
	a.notifier.TimersChanged(context.WithoutCancel(ctx), userID)
}
