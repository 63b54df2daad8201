package tray

import (
	"testing"

	"tabtimer/internal/core/model"
)

func TestStatusText(t *testing.T) {
	if got := statusText("idle", ""); got != "Status: idle" {
		t.Fatalf("statusText = %q", got)
	}
	if got := statusText("running 5m", "5m"); got != "Status: running 5m [5m]" {
		t.Fatalf("statusText with badge = %q", got)
	}
}

func TestPresetLabel(t *testing.T) {
	preset := model.TimerPreset{Hours: 1, Minutes: 5, Seconds: 9}
	if got := presetLabel(preset); got != "01:05:09" {
		t.Fatalf("presetLabel = %q", got)
	}
}
