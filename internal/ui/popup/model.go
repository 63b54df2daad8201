// Package popup is the terminal popup: it shows the running countdown and
// the preset list, and sends start and cancel commands to the daemon.
package popup

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"tabtimer/internal/bridge"
	"tabtimer/internal/core/model"
)

// Client is the subset of the bridge client the popup uses.
type Client interface {
	Status(ctx context.Context) (bridge.StatusReply, error)
	Presets(ctx context.Context) ([]model.TimerPreset, error)
	Start(ctx context.Context, request bridge.StartTimerRequest) error
	Cancel(ctx context.Context) error
}

// Options configures the popup.
type Options struct {
	Context context.Context
	Client  Client
	Events  <-chan bridge.Envelope
}

type statusMsg bridge.StatusReply

type presetsMsg []model.TimerPreset

type eventMsg bridge.Envelope

type eventsClosedMsg struct{}

type errMsg struct{ err error }

type actionDoneMsg struct{}

// Model is the popup state.
type Model struct {
	ctx    context.Context
	client Client
	events <-chan bridge.Envelope
	keys   keyMap

	presets  []model.TimerPreset
	selected int

	counting     bool
	remaining    time.Duration
	totalSeconds int
	timerID      string

	notice       string
	errText      string
	disconnected bool
	width        int
	bar          progress.Model
}

// New creates the popup model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return Model{
		ctx:    ctx,
		client: opts.Client,
		events: opts.Events,
		keys:   defaultKeyMap(),
		bar:    progress.New(progress.WithSolidFill(model.Colors[0]), progress.WithoutPercentage()),
	}
}

// Init implements tea.Model. The running view is rebuilt from the status
// reply, then kept current by broadcasts.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchStatusCmd(m.ctx, m.client),
		fetchPresetsCmd(m.ctx, m.client),
		waitEventCmd(m.events),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = clampWidth(msg.Width - 4)
		return m, nil

	case statusMsg:
		m.applyStatus(bridge.StatusReply(msg))
		return m, nil

	case presetsMsg:
		m.presets = []model.TimerPreset(msg)
		if m.selected >= len(m.presets) {
			m.selected = max(0, len(m.presets)-1)
		}
		return m, nil

	case eventMsg:
		m.applyEvent(bridge.Envelope(msg))
		return m, waitEventCmd(m.events)

	case eventsClosedMsg:
		m.disconnected = true
		return m, nil

	case actionDoneMsg:
		m.errText = ""
		return m, fetchStatusCmd(m.ctx, m.client)

	case errMsg:
		m.errText = msg.err.Error()
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.presets)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Start):
		if len(m.presets) == 0 {
			return m, nil
		}
		preset := m.presets[m.selected]
		m.notice = ""
		return m, startCmd(m.ctx, m.client, bridge.StartTimerRequest{
			TotalSeconds:   preset.TotalSeconds(),
			CurrentTimerID: preset.ID,
			Sound:          preset.Sound,
		})
	case key.Matches(msg, m.keys.Cancel):
		if !m.counting {
			return m, nil
		}
		return m, cancelCmd(m.ctx, m.client)
	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(fetchStatusCmd(m.ctx, m.client), fetchPresetsCmd(m.ctx, m.client))
	}
	return m, nil
}

func (m *Model) applyStatus(status bridge.StatusReply) {
	m.counting = status.IsCountingDown
	if !status.IsCountingDown {
		m.remaining = 0
		m.totalSeconds = 0
		m.timerID = ""
		return
	}
	m.remaining = time.Duration(status.RemainingTime) * time.Millisecond
	m.totalSeconds = status.TotalSeconds
	m.timerID = status.CurrentTimerID
}

func (m *Model) applyEvent(envelope bridge.Envelope) {
	var event bridge.TimerEvent
	if len(envelope.Payload) > 0 {
		_ = json.Unmarshal(envelope.Payload, &event)
	}

	switch envelope.Type {
	case bridge.MsgTimerStarted, bridge.MsgTimerUpdate:
		m.counting = true
		m.remaining = time.Duration(event.RemainingTime) * time.Millisecond
		if event.TotalSeconds > 0 {
			m.totalSeconds = event.TotalSeconds
		}
		m.timerID = event.CurrentTimerID
		m.notice = ""
	case bridge.MsgTimerCompleted:
		m.applyStatus(bridge.StatusReply{})
		m.notice = "Countdown finished"
	case bridge.MsgTimerCancelled:
		m.applyStatus(bridge.StatusReply{})
		m.notice = "Countdown cancelled"
	}
}

// fraction is the share of the countdown still remaining.
func (m Model) fraction() float64 {
	if m.totalSeconds <= 0 {
		return 0
	}
	value := m.remaining.Seconds() / float64(m.totalSeconds)
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func fetchStatusCmd(ctx context.Context, client Client) tea.Cmd {
	return func() tea.Msg {
		status, err := client.Status(ctx)
		if err != nil {
			return errMsg{err}
		}
		return statusMsg(status)
	}
}

func fetchPresetsCmd(ctx context.Context, client Client) tea.Cmd {
	return func() tea.Msg {
		presets, err := client.Presets(ctx)
		if err != nil {
			return errMsg{err}
		}
		return presetsMsg(presets)
	}
}

func startCmd(ctx context.Context, client Client, request bridge.StartTimerRequest) tea.Cmd {
	return func() tea.Msg {
		if err := client.Start(ctx, request); err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{}
	}
}

func cancelCmd(ctx context.Context, client Client) tea.Cmd {
	return func() tea.Msg {
		if err := client.Cancel(ctx); err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{}
	}
}

func waitEventCmd(events <-chan bridge.Envelope) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		envelope, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(envelope)
	}
}

func clampWidth(width int) int {
	if width < 10 {
		return 10
	}
	if width > 60 {
		return 60
	}
	return width
}
