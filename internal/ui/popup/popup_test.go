package popup

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tabtimer/internal/bridge"
	"tabtimer/internal/core/model"
)

type fakeClient struct {
	status  bridge.StatusReply
	presets []model.TimerPreset
	started []bridge.StartTimerRequest
	cancels int
	err     error
}

func (c *fakeClient) Status(context.Context) (bridge.StatusReply, error) { return c.status, c.err }

func (c *fakeClient) Presets(context.Context) ([]model.TimerPreset, error) { return c.presets, c.err }

func (c *fakeClient) Start(_ context.Context, request bridge.StartTimerRequest) error {
	c.started = append(c.started, request)
	return c.err
}

func (c *fakeClient) Cancel(context.Context) error {
	c.cancels++
	return c.err
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func event(t *testing.T, kind string, payload bridge.TimerEvent) eventMsg {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return eventMsg(bridge.Envelope{Type: kind, Payload: raw})
}

func TestStatusRebuildsRunningView(t *testing.T) {
	m := New(Options{Client: &fakeClient{}})
	m, _ = update(t, m, statusMsg{IsCountingDown: true, RemainingTime: 90500, TotalSeconds: 120})

	if !m.counting || m.remaining != 90500*time.Millisecond {
		t.Fatalf("state = %+v", m)
	}
	if got := m.fraction(); got < 0.75 || got > 0.76 {
		t.Fatalf("fraction = %v", got)
	}
	if view := m.View(); !strings.Contains(view, "00:01:30") {
		t.Fatalf("view missing clock:\n%s", view)
	}
}

func TestBroadcastsDriveCountdown(t *testing.T) {
	m := New(Options{Client: &fakeClient{}})

	m, _ = update(t, m, event(t, bridge.MsgTimerUpdate, bridge.TimerEvent{RemainingTime: 5000, TotalSeconds: 60, CurrentTimerID: "a"}))
	if !m.counting || m.timerID != "a" || m.totalSeconds != 60 {
		t.Fatalf("after update = %+v", m)
	}

	m, _ = update(t, m, event(t, bridge.MsgTimerCompleted, bridge.TimerEvent{}))
	if m.counting || m.notice != "Countdown finished" {
		t.Fatalf("after completed = %+v", m)
	}
	if view := m.View(); !strings.Contains(view, "Countdown finished") {
		t.Fatalf("view missing notice:\n%s", view)
	}

	m, _ = update(t, m, event(t, bridge.MsgTimerStarted, bridge.TimerEvent{RemainingTime: 1000, TotalSeconds: 1}))
	m, _ = update(t, m, event(t, bridge.MsgTimerCancelled, bridge.TimerEvent{}))
	if m.counting || m.notice != "Countdown cancelled" {
		t.Fatalf("after cancelled = %+v", m)
	}
}

func TestStartSelectedPreset(t *testing.T) {
	client := &fakeClient{}
	m := New(Options{Client: client})
	m, _ = update(t, m, presetsMsg{
		{ID: "a", Minutes: 1, Color: "#3B82F6", Sound: "bell.mp3"},
		{ID: "b", Seconds: 30, Color: "#EF4444", Sound: "alarm.mp3"},
	})

	m, _ = update(t, m, keyMsg("down"))
	m, cmd := update(t, m, keyMsg("enter"))
	if cmd == nil {
		t.Fatalf("no start command")
	}
	msg := cmd()
	if _, ok := msg.(actionDoneMsg); !ok {
		t.Fatalf("start msg = %#v", msg)
	}
	if len(client.started) != 1 {
		t.Fatalf("started = %v", client.started)
	}
	got := client.started[0]
	if got.CurrentTimerID != "b" || got.TotalSeconds != 30 || got.Sound != "alarm.mp3" {
		t.Fatalf("start request = %+v", got)
	}

	_, cmd = update(t, m, msg)
	if cmd == nil {
		t.Fatalf("no status refresh after start")
	}
}

func TestCancelOnlyWhenCounting(t *testing.T) {
	client := &fakeClient{}
	m := New(Options{Client: client})

	if _, cmd := update(t, m, keyMsg("c")); cmd != nil {
		t.Fatalf("cancel issued while idle")
	}

	m, _ = update(t, m, statusMsg{IsCountingDown: true, RemainingTime: 1000, TotalSeconds: 5})
	_, cmd := update(t, m, keyMsg("c"))
	if cmd == nil {
		t.Fatalf("no cancel command")
	}
	cmd()
	if client.cancels != 1 {
		t.Fatalf("cancels = %d", client.cancels)
	}
}

func TestErrorsAndDisconnect(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	m := New(Options{Client: client})

	msg := fetchStatusCmd(context.Background(), client)()
	m, _ = update(t, m, msg)
	if m.errText != "connection refused" {
		t.Fatalf("errText = %q", m.errText)
	}

	events := make(chan bridge.Envelope)
	close(events)
	m, _ = update(t, m, waitEventCmd(events)())
	if !m.disconnected || !strings.Contains(m.View(), "daemon connection closed") {
		t.Fatalf("disconnect not shown")
	}
	if waitEventCmd(nil) != nil {
		t.Fatalf("nil events produced a command")
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		input time.Duration
		want  string
	}{
		{-time.Second, "00:00:00"},
		{999 * time.Millisecond, "00:00:00"},
		{61 * time.Second, "00:01:01"},
		{(99*3600 + 59*60) * time.Second, "99:59:00"},
	}
	for _, tc := range cases {
		if got := formatClock(tc.input); got != tc.want {
			t.Fatalf("formatClock(%v) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
