package countdown

import "time"

// Phase describes where the countdown is in its lifecycle.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhaseExpired Phase = "expired"
)

// EventType names a broadcast. Values match the bridge message types.
type EventType string

const (
	EventStarted   EventType = "TIMER_STARTED"
	EventUpdate    EventType = "TIMER_UPDATE"
	EventCompleted EventType = "TIMER_COMPLETED"
	EventCancelled EventType = "TIMER_CANCELLED"
)

// Event is a countdown update for observers.
type Event struct {
	Type         EventType
	Remaining    time.Duration
	TotalSeconds int
	TimerID      string
	At           time.Time
}

// Status is a point-in-time view of the countdown.
type Status struct {
	Phase          Phase
	IsCountingDown bool
	Remaining      time.Duration
	TotalSeconds   int
	EndTime        time.Time
	CurrentTimerID string
	Sound          string
}
