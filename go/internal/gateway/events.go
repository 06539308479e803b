package gateway

import "github.com/mcdev12/timekeeper/go/internal/models"

// EventType is the discriminator of a message pushed to clients
type EventType string

const (
	// EventTypeAllTimers carries the complete timer list of a user.
	EventTypeAllTimers EventType = "all_timers"
	// EventTypeActiveTimers carries running timers with their elapsed time.
	EventTypeActiveTimers EventType = "active_timers"
)

// AllTimersEvent is the snapshot pushed on connect and after every change.
type AllTimersEvent struct {
	Type   EventType      `json:"type"`
	Timers []models.Timer `json:"timers"`
}

// ActiveTimersEvent is the heartbeat payload.
type ActiveTimersEvent struct {
	Type   EventType       `json:"type"`
	Timers []TimerProgress `json:"timers"`
}

// TimerProgress is a timer record plus its elapsed time as HH:MM:SS.
type TimerProgress struct {
	models.Timer
	Progress string `json:"progress"`
}

func newAllTimersEvent(timers []models.Timer) AllTimersEvent {
	if timers == nil {
		timers = []models.Timer{}
	}
	return AllTimersEvent{Type: EventTypeAllTimers, Timers: timers}
}
