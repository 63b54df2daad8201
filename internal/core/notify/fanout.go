package notify

import (
	"context"
	"log"
	"path"

	"tabtimer/internal/core/model"
)

const (
	completionTitle = "Countdown finished"
	completionBody  = "The countdown you set has finished"
	soundDir        = "sounds"
)

// Notifier shows a system notification.
type Notifier interface {
	Notify(title, body string) error
}

// Sounder plays a request through some fallback policy.
type Sounder interface {
	Play(ctx context.Context, request Request) error
}

// FanOut runs the completion side effects. Each one is attempted
// independently and failures are only logged.
type FanOut struct {
	notifier Notifier
	sounder  Sounder
	volume   float64
}

// NewFanOut creates a fan-out. Either collaborator may be nil.
func NewFanOut(notifier Notifier, sounder Sounder, volume float64) *FanOut {
	if volume <= 0 || volume > 1 {
		volume = 1
	}
	return &FanOut{notifier: notifier, sounder: sounder, volume: volume}
}

// Complete shows the notification and plays the sound.
func (fanOut *FanOut) Complete(ctx context.Context, sound string) {
	if fanOut.notifier != nil {
		if err := fanOut.notifier.Notify(completionTitle, completionBody); err != nil {
			log.Printf("notify: system notification failed: %v", err)
		}
	}

	if fanOut.sounder == nil {
		return
	}
	if err := fanOut.sounder.Play(ctx, Request{SoundPath: SoundPath(sound), Volume: fanOut.volume}); err != nil {
		log.Printf("notify: %v", err)
	}
}

// SoundPath maps a sound identifier to its asset path.
func SoundPath(sound string) string {
	if sound == "" {
		sound = model.DefaultSound
	}
	return path.Join(soundDir, path.Base(sound))
}
