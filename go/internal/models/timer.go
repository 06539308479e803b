package models

import "time"

// Timer represents a named stopwatch owned by a single user.
//
// A timer is created active with EndedAt and Duration unset, and is stopped
// exactly once. Stopped timers are never modified again.
type Timer struct {
	ID          string     `json:"timerId"`
	Description string     `json:"timerDescription"`
	UserID      UserID     `json:"-"`
	StartedAt   time.Time  `json:"timerStart"`
	EndedAt     *time.Time `json:"timerEnd"`
	Active      bool       `json:"isActive"`
	Duration    *string    `json:"duration"`
}
