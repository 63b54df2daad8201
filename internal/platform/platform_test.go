package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultAddressIsStable(t *testing.T) {
	first := DefaultAddress("TabTimer")
	if first != DefaultAddress("TabTimer") {
		t.Fatalf("address not deterministic")
	}
	if !strings.HasPrefix(first, "127.0.0.1:") {
		t.Fatalf("address = %q", first)
	}
	port := portFromName("TabTimer")
	if port < 20000 || port > 39999 {
		t.Fatalf("port %d out of range", port)
	}
}

func TestAcquireSingleInstanceRejectsSecond(t *testing.T) {
	guard, err := AcquireSingleInstance("127.0.0.1:0")
	if err != nil {
		t.Fatalf("AcquireSingleInstance: %v", err)
	}
	defer func() { _ = guard.Release() }()

	if _, err := AcquireSingleInstance(guard.Address()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second acquire = %v, want ErrAlreadyRunning", err)
	}
	if err := guard.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := guard.Release(); err != nil {
		t.Fatalf("Release twice: %v", err)
	}
}

func TestAudioArgsClampVolume(t *testing.T) {
	got := audioArgs("paplay", "a.mp3", 2)
	want := []string{"--volume=65536", "a.mp3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("paplay args = %v, want %v", got, want)
	}
	got = audioArgs("ffplay", "a.mp3", 0.5)
	if got[len(got)-2] != "50" {
		t.Fatalf("ffplay args = %v", got)
	}
}

func TestCommandPlayerErrors(t *testing.T) {
	dir := t.TempDir()
	player := NewCommandPlayer(dir)
	player.lookPath = func(string) (string, error) { return "", errors.New("missing") }

	if err := player.Play(context.Background(), "sounds/none.mp3", 1); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file = %v", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "sounds"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sounds", "bell.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := player.Play(context.Background(), "sounds/bell.mp3", 1); !errors.Is(err, ErrNoAudioTool) {
		t.Fatalf("no tool = %v", err)
	}
}

func TestCommandNotifierCommands(t *testing.T) {
	var calls [][]string
	notifier := &CommandNotifier{appName: "TabTimer", goos: "linux", run: func(name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		return nil
	}}
	if err := notifier.Notify("Countdown finished", "done"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if calls[0][0] != "notify-send" || calls[0][len(calls[0])-2] != "Countdown finished" {
		t.Fatalf("linux call = %v", calls[0])
	}

	notifier.goos = "darwin"
	if err := notifier.Notify("T", "B"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if calls[1][0] != "osascript" || !strings.Contains(calls[1][2], `with title "T"`) {
		t.Fatalf("darwin call = %v", calls[1])
	}

	notifier.goos = "plan9"
	if err := notifier.Notify("T", "B"); !errors.Is(err, ErrNotificationsUnsupported) {
		t.Fatalf("unsupported = %v", err)
	}
}

func TestAutostartHelpers(t *testing.T) {
	if slug(" Tab Timer ") != "tab-timer" {
		t.Fatalf("slug = %q", slug(" Tab Timer "))
	}
	if err := validateAutostart("enable", "TabTimer", []string{}); err == nil {
		t.Fatalf("empty command accepted")
	}
}
