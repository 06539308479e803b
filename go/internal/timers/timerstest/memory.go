// Package timerstest provides an in-memory timer repository for tests.
package timerstest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/mcdev12/timekeeper/go/internal/timers"
)

// Repository keeps timers in a map and mirrors the Postgres repository's
// ordering and stop semantics. Set Err to make every call fail. Like pgx,
// every call fails with the context's error once ctx is done.
type Repository struct {
	mu     sync.Mutex
	timers map[string]models.Timer

	Err error

	// Calls counts list queries, for asserting that no storage work happened.
	Calls int
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{timers: make(map[string]models.Timer)}
}

func (r *Repository) CreateTimer(ctx context.Context, timer models.Timer) (*models.Timer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if _, exists := r.timers[timer.ID]; exists {
		return nil, errors.New("duplicate timer id")
	}
	r.timers[timer.ID] = timer
	return &timer, nil
}

func (r *Repository) ListTimers(ctx context.Context, userID models.UserID) ([]models.Timer, error) {
	return r.filter(ctx, userID, false)
}

func (r *Repository) ListActiveTimers(ctx context.Context, userID models.UserID) ([]models.Timer, error) {
	return r.filter(ctx, userID, true)
}

func (r *Repository) StopTimer(ctx context.Context, timerID string, userID models.UserID, endedAt time.Time) (*models.Timer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	t, ok := r.timers[timerID]
	if !ok || t.UserID != userID || !t.Active {
		return nil, timers.ErrTimerNotFound
	}
	duration := timers.FormatDuration(endedAt.Sub(t.StartedAt))
	t.Active = false
	t.EndedAt = &endedAt
	t.Duration = &duration
	r.timers[timerID] = t
	return &t, nil
}

// Put stores a timer as-is.
func (r *Repository) Put(timer models.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timers[timer.ID] = timer
}

// Get returns a stored timer.
func (r *Repository) Get(id string) (models.Timer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[id]
	return t, ok
}

// ListCalls returns how many list queries were served.
func (r *Repository) ListCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Calls
}

// SetErr makes subsequent calls fail with err (nil restores normal behaviour).
func (r *Repository) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Err = err
}

func (r *Repository) filter(ctx context.Context, userID models.UserID, activeOnly bool) ([]models.Timer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]models.Timer, 0)
	for _, t := range r.timers {
		if t.UserID != userID || (activeOnly && !t.Active) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
