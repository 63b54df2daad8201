package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"tabtimer/internal/bridge"
	"tabtimer/internal/config"
	"tabtimer/internal/core/countdown"
	"tabtimer/internal/core/notify"
	"tabtimer/internal/storage"
)

func setupDaemon(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "cli.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	presets := storage.NewPresetStore(db)
	engine := countdown.New(storage.NewStateStore(db), presets, nil, nil, countdown.Config{})
	hub := bridge.NewHub()
	server := httptest.NewServer(bridge.NewServer(engine, presets, nil, hub).Handler())

	t.Cleanup(func() {
		hub.Close()
		server.Close()
		engine.Close()
		_ = db.Close()
	})
	return server.URL
}

func execute(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	base := []string{
		"--addr", addr,
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
		"--config", filepath.Join(t.TempDir(), "config.yaml"),
	}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"90", 90},
		{"25m", 1500},
		{"1h30m", 5400},
		{"00:05:00", 300},
		{"1:30", 90},
		{" 2m ", 120},
	}
	for _, tc := range cases {
		got, err := parseDuration(tc.input)
		if err != nil {
			t.Fatalf("parseDuration(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("parseDuration(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}

	for _, input := range []string{"", "0", "-5m", "500ms", "1:2:3:4", "a:b", "soon"} {
		if _, err := parseDuration(input); !errors.Is(err, errInvalidDuration) {
			t.Fatalf("parseDuration(%q) err = %v", input, err)
		}
	}
}

func TestStartRequestFallsBackToPresetID(t *testing.T) {
	request := startRequest("10m", "bell.mp3")
	if request.TotalSeconds != 600 || request.CurrentTimerID != "" || request.Sound != "bell.mp3" {
		t.Fatalf("duration request = %+v", request)
	}

	request = startRequest("3f2c9a1e-preset", "")
	if request.TotalSeconds != 0 || request.CurrentTimerID != "3f2c9a1e-preset" {
		t.Fatalf("preset request = %+v", request)
	}
}

func TestWriteStatus(t *testing.T) {
	var out bytes.Buffer
	writeStatus(&out, bridge.StatusReply{})
	if out.String() != "Idle\n" {
		t.Fatalf("idle = %q", out.String())
	}

	out.Reset()
	writeStatus(&out, bridge.StatusReply{IsCountingDown: true, RemainingTime: 61500, TotalSeconds: 120, CurrentTimerID: "p1"})
	if got := out.String(); got != "Counting down: 00:01:01 of 00:02:00 (preset p1)\n" {
		t.Fatalf("running = %q", got)
	}
}

func TestCommandsAgainstDaemon(t *testing.T) {
	addr := setupDaemon(t)

	out, err := execute(t, addr, "status")
	if err != nil || out != "Idle\n" {
		t.Fatalf("status = %q, %v", out, err)
	}

	out, err = execute(t, addr, "start", "25m")
	if err != nil || !strings.Contains(out, "Started 00:25:00") {
		t.Fatalf("start = %q, %v", out, err)
	}

	out, err = execute(t, addr, "status")
	if err != nil || !strings.HasPrefix(out, "Counting down:") || !strings.Contains(out, "of 00:25:00") {
		t.Fatalf("status while running = %q, %v", out, err)
	}

	if out, err = execute(t, addr, "cancel"); err != nil || out != "Cancelled\n" {
		t.Fatalf("cancel = %q, %v", out, err)
	}
	if out, _ = execute(t, addr, "status"); out != "Idle\n" {
		t.Fatalf("status after cancel = %q", out)
	}
}

func TestPresetCommands(t *testing.T) {
	addr := setupDaemon(t)

	out, err := execute(t, addr, "presets", "add", "5m", "--sound", "bell.mp3")
	if err != nil || !strings.Contains(out, "(00:05:00)") {
		t.Fatalf("add = %q, %v", out, err)
	}
	id := strings.Fields(out)[1]

	if _, err := execute(t, addr, "presets", "add", "1m", "--color", "blue"); err == nil {
		t.Fatalf("invalid color accepted")
	}

	out, err = execute(t, addr, "presets", "list")
	if err != nil || !strings.Contains(out, id+"  00:05:00  #3B82F6  bell.mp3") {
		t.Fatalf("list = %q, %v", out, err)
	}

	out, err = execute(t, addr, "start", id)
	if err != nil || !strings.Contains(out, "Started preset "+id) {
		t.Fatalf("start preset = %q, %v", out, err)
	}
	if out, _ = execute(t, addr, "status"); !strings.Contains(out, "(preset "+id+")") {
		t.Fatalf("status = %q", out)
	}

	if out, err = execute(t, addr, "presets", "rm", id); err != nil || !strings.Contains(out, "Deleted "+id) {
		t.Fatalf("rm = %q, %v", out, err)
	}
	if out, _ = execute(t, addr, "presets", "list"); out != "No presets\n" {
		t.Fatalf("list after rm = %q", out)
	}
}

func TestSyncDisabled(t *testing.T) {
	addr := setupDaemon(t)
	_, err := execute(t, addr, "sync")
	var apiErr *bridge.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "sync_disabled" {
		t.Fatalf("sync err = %v", err)
	}
}

func TestConfigInitWritesSettings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "--addr", "127.0.0.1:31337", "config", "init"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}

	cmd = NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "config", "path"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config path: %v", err)
	}

	settings, err := storage.LoadSettingsFile(path, defaultsForTest(t))
	if err != nil {
		t.Fatalf("LoadSettingsFile: %v", err)
	}
	if settings.ListenAddr != "127.0.0.1:31337" {
		t.Fatalf("ListenAddr = %q", settings.ListenAddr)
	}
	if !strings.Contains(out.String(), "Wrote "+path) || !strings.HasSuffix(out.String(), path+"\n") {
		t.Fatalf("output = %q", out.String())
	}
}

func defaultsForTest(t *testing.T) config.Settings {
	t.Helper()
	app := &App{EnvFile: filepath.Join(t.TempDir(), "missing.env"), ConfigPath: filepath.Join(t.TempDir(), "none.yaml")}
	settings, err := loadSettings(app)
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	return settings
}

type recordingFanOut struct {
	mu     sync.Mutex
	sounds []string
	done   chan struct{}
}

func (r *recordingFanOut) Notify(title, body string) error { return nil }

func (r *recordingFanOut) Play(_ context.Context, request notify.Request) error {
	r.mu.Lock()
	r.sounds = append(r.sounds, request.SoundPath)
	r.mu.Unlock()
	close(r.done)
	return nil
}

func TestAsyncCompleterWaits(t *testing.T) {
	recorder := &recordingFanOut{done: make(chan struct{})}
	var wg sync.WaitGroup
	completer := asyncCompleter{fanOut: notify.NewFanOut(recorder, recorder, 1), wg: &wg}

	completer.Complete(context.Background(), "bell.mp3")
	wg.Wait()
	<-recorder.done

	if len(recorder.sounds) != 1 || recorder.sounds[0] != notify.SoundPath("bell.mp3") {
		t.Fatalf("sounds = %v", recorder.sounds)
	}
}
