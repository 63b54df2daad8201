package model

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidTimerState indicates a running state without a usable end time or duration.
var ErrInvalidTimerState = errors.New("invalid timer state")

// TimerState is the persisted record of the active countdown.
type TimerState struct {
	IsCountingDown bool
	EndTime        time.Time
	TotalSeconds   int
	CurrentTimerID string
	Sound          string
}

type timerStateWire struct {
	IsCountingDown bool   `json:"isCountingDown"`
	EndTime        int64  `json:"endTime"`
	TotalSeconds   int    `json:"totalSeconds"`
	CurrentTimerID string `json:"currentTimerId,omitempty"`
	Sound          string `json:"sound,omitempty"`
}

// Validate checks the running invariant.
func (state TimerState) Validate() error {
	if !state.IsCountingDown {
		return nil
	}
	if state.EndTime.IsZero() || state.TotalSeconds <= 0 {
		return ErrInvalidTimerState
	}
	return nil
}

// Remaining returns the time left at now, clamped to zero.
func (state TimerState) Remaining(now time.Time) time.Duration {
	if !state.IsCountingDown {
		return 0
	}
	remaining := state.EndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// MarshalJSON encodes the end time as Unix milliseconds.
func (state TimerState) MarshalJSON() ([]byte, error) {
	wire := timerStateWire{
		IsCountingDown: state.IsCountingDown,
		TotalSeconds:   state.TotalSeconds,
		CurrentTimerID: state.CurrentTimerID,
		Sound:          state.Sound,
	}
	if !state.EndTime.IsZero() {
		wire.EndTime = state.EndTime.UnixMilli()
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes the Unix millisecond end time.
func (state *TimerState) UnmarshalJSON(data []byte) error {
	var wire timerStateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*state = TimerState{
		IsCountingDown: wire.IsCountingDown,
		TotalSeconds:   wire.TotalSeconds,
		CurrentTimerID: wire.CurrentTimerID,
		Sound:          wire.Sound,
	}
	if wire.EndTime > 0 {
		state.EndTime = time.UnixMilli(wire.EndTime)
	}
	return nil
}

// LastSettings is the duration last entered by the user.
type LastSettings struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Route identifies a popup page.
type Route string

const (
	RouteTimerList Route = "timer-list"
	RouteTimerEdit Route = "timer-edit"
)

// AppState is the popup navigation snapshot restored on the next open.
type AppState struct {
	Route          Route  `json:"route"`
	EditingTimerID string `json:"editingTimerId,omitempty"`
	IsCreatingNew  bool   `json:"isCreatingNew"`
}

// Normalize replaces unknown routes with the list page.
func (state AppState) Normalize() AppState {
	if state.Route != RouteTimerEdit {
		state.Route = RouteTimerList
		state.EditingTimerID = ""
		state.IsCreatingNew = false
	}
	return state
}
