package bridge

import (
	"encoding/json"
	"time"

	"tabtimer/internal/core/countdown"
)

// Message types exchanged with bridge clients.
const (
	MsgStartTimer         = "START_TIMER"
	MsgCancelTimer        = "CANCEL_TIMER"
	MsgGetCountdownStatus = "GET_COUNTDOWN_STATUS"

	MsgTimerStarted   = "TIMER_STARTED"
	MsgTimerUpdate    = "TIMER_UPDATE"
	MsgTimerCompleted = "TIMER_COMPLETED"
	MsgTimerCancelled = "TIMER_CANCELLED"

	MsgPlaySound          = "PLAY_SOUND"
	MsgContentScriptLoad  = "CONTENT_SCRIPT_LOADED"
	MsgContentScriptCheck = "CONTENT_SCRIPT_CHECK"

	// MsgResponse answers the request carrying the same ID.
	MsgResponse = "RESPONSE"
)

// Client roles, chosen with the role query parameter of /ws.
const (
	RolePopup   = "popup"
	RoleContent = "content"
)

// Envelope is one websocket frame.
type Envelope struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StartTimerRequest is the START_TIMER body. EndTime is Unix milliseconds
// and defaults to now plus TotalSeconds. A zero TotalSeconds with a
// CurrentTimerID starts that preset.
type StartTimerRequest struct {
	EndTime        int64  `json:"endTime,omitempty"`
	TotalSeconds   int    `json:"totalSeconds"`
	CurrentTimerID string `json:"currentTimerId,omitempty"`
	Sound          string `json:"sound,omitempty"`
}

// Reply is the generic {success, error} answer.
type Reply struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// StatusReply answers GET_COUNTDOWN_STATUS. RemainingTime is milliseconds.
type StatusReply struct {
	IsCountingDown bool   `json:"isCountingDown"`
	RemainingTime  int64  `json:"remainingTime,omitempty"`
	TotalSeconds   int    `json:"totalSeconds,omitempty"`
	EndTime        int64  `json:"endTime,omitempty"`
	CurrentTimerID string `json:"currentTimerId,omitempty"`
	Sound          string `json:"sound,omitempty"`
}

// TimerEvent is the payload of the TIMER_* broadcasts.
type TimerEvent struct {
	RemainingTime  int64  `json:"remainingTime"`
	TotalSeconds   int    `json:"totalSeconds,omitempty"`
	CurrentTimerID string `json:"currentTimerId,omitempty"`
}

// PlaySoundRequest asks a content surface to play a sound.
type PlaySoundRequest struct {
	SoundPath string  `json:"soundPath"`
	Volume    float64 `json:"volume,omitempty"`
}

// AliveReply answers CONTENT_SCRIPT_CHECK.
type AliveReply struct {
	Alive bool `json:"alive"`
}

func statusReply(status countdown.Status) StatusReply {
	if !status.IsCountingDown {
		return StatusReply{}
	}
	return StatusReply{
		IsCountingDown: true,
		RemainingTime:  status.Remaining.Milliseconds(),
		TotalSeconds:   status.TotalSeconds,
		EndTime:        status.EndTime.UnixMilli(),
		CurrentTimerID: status.CurrentTimerID,
		Sound:          status.Sound,
	}
}

func eventEnvelope(event countdown.Event) (Envelope, error) {
	payload, err := json.Marshal(TimerEvent{
		RemainingTime:  event.Remaining.Milliseconds(),
		TotalSeconds:   event.TotalSeconds,
		CurrentTimerID: event.TimerID,
	})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: string(event.Type), Payload: payload}, nil
}

// NewEnvelope marshals payload into an envelope of type kind.
func NewEnvelope(id, kind string, payload any) (Envelope, error) {
	envelope := Envelope{ID: id, Type: kind}
	if payload == nil {
		return envelope, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	envelope.Payload = raw
	return envelope, nil
}

func (request StartTimerRequest) endTime() time.Time {
	if request.EndTime <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(request.EndTime)
}
