package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"
)

// ErrInvalidPreset indicates a preset that cannot be stored as usable.
var ErrInvalidPreset = errors.New("invalid preset")

// DefaultSound is played when a countdown has no sound of its own.
const DefaultSound = "default.mp3"

// MaxPresetHours caps the hours field.
const MaxPresetHours = 99

// Sounds lists the bundled sound identifiers.
var Sounds = []string{
	DefaultSound,
	"bell.mp3",
	"chime.mp3",
	"alarm.mp3",
	"notification.mp3",
}

// Colors lists the default preset colors.
var Colors = []string{
	"#3B82F6",
	"#EF4444",
	"#10B981",
	"#F59E0B",
	"#8B5CF6",
	"#EC4899",
	"#6B7280",
	"#F97316",
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// TimerPreset is a reusable countdown configuration.
type TimerPreset struct {
	ID      string  `json:"id"`
	Hours   int     `json:"hours"`
	Minutes int     `json:"minutes"`
	Seconds int     `json:"seconds"`
	Color   string  `json:"color"`
	Sound   string  `json:"sound"`
	Order   float64 `json:"order"`
}

// TotalSeconds returns the preset duration in seconds.
func (preset TimerPreset) TotalSeconds() int {
	return preset.Hours*3600 + preset.Minutes*60 + preset.Seconds
}

// Duration returns the preset duration.
func (preset TimerPreset) Duration() time.Duration {
	return time.Duration(preset.TotalSeconds()) * time.Second
}

// Validate reports whether the preset is startable and well formed.
func (preset TimerPreset) Validate() error {
	switch {
	case preset.Hours < 0 || preset.Minutes < 0 || preset.Seconds < 0:
		return fmt.Errorf("%w: negative duration field", ErrInvalidPreset)
	case preset.Hours > MaxPresetHours:
		return fmt.Errorf("%w: hours must be at most %d", ErrInvalidPreset, MaxPresetHours)
	case preset.Minutes > 59 || preset.Seconds > 59:
		return fmt.Errorf("%w: minutes and seconds must be below 60", ErrInvalidPreset)
	case preset.TotalSeconds() <= 0:
		return fmt.Errorf("%w: duration must be positive", ErrInvalidPreset)
	case !hexColor.MatchString(preset.Color):
		return fmt.Errorf("%w: color %q is not #RRGGBB", ErrInvalidPreset, preset.Color)
	case !IsKnownSound(preset.Sound):
		return fmt.Errorf("%w: unknown sound %q", ErrInvalidPreset, preset.Sound)
	}
	return nil
}

// IsKnownSound reports whether sound is one of the bundled sounds.
func IsKnownSound(sound string) bool {
	for _, known := range Sounds {
		if known == sound {
			return true
		}
	}
	return false
}

// SortPresets orders presets by Order, keeping insertion order on ties.
func SortPresets(presets []TimerPreset) {
	sort.SliceStable(presets, func(i, j int) bool {
		return presets[i].Order < presets[j].Order
	})
}

// ClonePresets returns an independent copy of presets.
func ClonePresets(presets []TimerPreset) []TimerPreset {
	if presets == nil {
		return nil
	}
	dup := make([]TimerPreset, len(presets))
	copy(dup, presets)
	return dup
}

// SyncPayload is the single record kept in the remote sync store.
type SyncPayload struct {
	Timers      []TimerPreset
	LastUpdated time.Time
}

type syncPayloadWire struct {
	Timers      []TimerPreset `json:"timers"`
	LastUpdated int64         `json:"lastUpdated"`
}

// MarshalJSON encodes LastUpdated as Unix milliseconds.
func (payload SyncPayload) MarshalJSON() ([]byte, error) {
	timers := payload.Timers
	if timers == nil {
		timers = []TimerPreset{}
	}
	return json.Marshal(syncPayloadWire{
		Timers:      timers,
		LastUpdated: payload.LastUpdated.UnixMilli(),
	})
}

// UnmarshalJSON decodes the Unix millisecond timestamp.
func (payload *SyncPayload) UnmarshalJSON(data []byte) error {
	var wire syncPayloadWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	payload.Timers = wire.Timers
	payload.LastUpdated = time.UnixMilli(wire.LastUpdated)
	return nil
}
