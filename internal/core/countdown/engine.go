package countdown

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"tabtimer/internal/core/model"
)

// ErrInvalidDuration indicates a start request without a positive duration.
var ErrInvalidDuration = errors.New("countdown duration must be positive")

// StateStore persists the single TimerState record.
type StateStore interface {
	LoadTimerState(ctx context.Context) (model.TimerState, bool, error)
	SaveTimerState(ctx context.Context, state model.TimerState) error
	ClearTimerState(ctx context.Context) error
}

// PresetLookup resolves the preset a countdown was started from.
type PresetLookup interface {
	GetPreset(ctx context.Context, id string) (model.TimerPreset, error)
}

// IconPresenter shows the remaining time on the icon.
type IconPresenter interface {
	Show(remaining time.Duration)
	Reset()
}

// Completer runs the notification and sound side effects of a finished countdown.
type Completer interface {
	Complete(ctx context.Context, sound string)
}

// Config contains runtime options for the Engine.
type Config struct {
	TickInterval time.Duration
	Now          func() time.Time
}

// StartRequest is a START_TIMER command.
type StartRequest struct {
	TotalSeconds int
	EndTime      time.Time
	PresetID     string
	Sound        string
}

// Engine owns the countdown. It is the only writer of TimerState.
// Start, Cancel and Tick are serialized and always re-read the store.
type Engine struct {
	mu        sync.Mutex
	store     StateStore
	presets   PresetLookup
	icon      IconPresenter
	completer Completer
	options   Config

	eventsMu sync.Mutex
	events   []chan Event
	closed   bool
}

// New creates an Engine. presets, icon and completer may be nil.
func New(store StateStore, presets PresetLookup, icon IconPresenter, completer Completer, options Config) *Engine {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	return &Engine{
		store:     store,
		presets:   presets,
		icon:      icon,
		completer: completer,
		options:   options,
	}
}

// Subscribe registers a new observer channel.
func (engine *Engine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	engine.eventsMu.Lock()
	defer engine.eventsMu.Unlock()
	if engine.closed {
		close(ch)
		return ch
	}
	engine.events = append(engine.events, ch)
	return ch
}

// Close closes all observer channels.
func (engine *Engine) Close() {
	engine.eventsMu.Lock()
	if engine.closed {
		engine.eventsMu.Unlock()
		return
	}
	engine.closed = true
	events := engine.events
	engine.events = nil
	engine.eventsMu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

// Run ticks on a fixed cadence until ctx is cancelled. Ticks run whether
// or not a countdown is active.
func (engine *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(engine.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			engine.Tick(ctx)
		}
	}
}

// Reset clears any persisted countdown. Called when the daemon starts,
// since a countdown never survives a restart.
func (engine *Engine) Reset(ctx context.Context) error {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if err := engine.store.ClearTimerState(ctx); err != nil {
		return fmt.Errorf("reset timer state: %w", err)
	}
	engine.resetIcon()
	return nil
}

// Start replaces any running countdown with a new one and ticks at once.
func (engine *Engine) Start(ctx context.Context, request StartRequest) error {
	if request.TotalSeconds <= 0 {
		return ErrInvalidDuration
	}

	engine.mu.Lock()
	now := engine.options.Now()
	endTime := request.EndTime
	if endTime.IsZero() {
		endTime = now.Add(time.Duration(request.TotalSeconds) * time.Second)
	}

	state := model.TimerState{
		IsCountingDown: true,
		EndTime:        endTime,
		TotalSeconds:   request.TotalSeconds,
		CurrentTimerID: request.PresetID,
		Sound:          engine.resolveSound(ctx, request),
	}
	if err := engine.store.SaveTimerState(ctx, state); err != nil {
		engine.mu.Unlock()
		return fmt.Errorf("save timer state: %w", err)
	}

	engine.emit(Event{
		Type:         EventStarted,
		Remaining:    clamp(endTime.Sub(now)),
		TotalSeconds: state.TotalSeconds,
		TimerID:      state.CurrentTimerID,
		At:           now,
	})
	sound, completed := engine.tickLocked(ctx)
	engine.mu.Unlock()

	if completed {
		engine.complete(ctx, sound)
	}
	return nil
}

// Cancel stops the countdown. It succeeds when nothing is running.
func (engine *Engine) Cancel(ctx context.Context) error {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if err := engine.store.ClearTimerState(ctx); err != nil {
		return fmt.Errorf("clear timer state: %w", err)
	}
	engine.resetIcon()
	engine.emit(Event{Type: EventCancelled, At: engine.options.Now()})
	return nil
}

// Tick advances the countdown once.
func (engine *Engine) Tick(ctx context.Context) {
	engine.mu.Lock()
	sound, completed := engine.tickLocked(ctx)
	engine.mu.Unlock()

	if completed {
		engine.complete(ctx, sound)
	}
}

// Status reports the countdown as currently persisted.
func (engine *Engine) Status(ctx context.Context) (Status, error) {
	state, ok, err := engine.store.LoadTimerState(ctx)
	if err != nil {
		return Status{Phase: PhaseIdle}, fmt.Errorf("load timer state: %w", err)
	}
	if !ok || !state.IsCountingDown {
		return Status{Phase: PhaseIdle}, nil
	}

	remaining := state.EndTime.Sub(engine.options.Now())
	phase := PhaseRunning
	if remaining <= 0 {
		phase = PhaseExpired
	}
	return Status{
		Phase:          phase,
		IsCountingDown: true,
		Remaining:      clamp(remaining),
		TotalSeconds:   state.TotalSeconds,
		EndTime:        state.EndTime,
		CurrentTimerID: state.CurrentTimerID,
		Sound:          state.Sound,
	}, nil
}

// tickLocked returns the sound to play when this tick finished the countdown.
func (engine *Engine) tickLocked(ctx context.Context) (string, bool) {
	state, ok, err := engine.store.LoadTimerState(ctx)
	if err != nil {
		log.Printf("countdown: load timer state: %v", err)
		return "", false
	}
	if !ok || !state.IsCountingDown {
		engine.resetIcon()
		return "", false
	}
	if err := state.Validate(); err != nil {
		log.Printf("countdown: discarding timer state: %v", err)
		if err := engine.store.ClearTimerState(ctx); err != nil {
			log.Printf("countdown: clear timer state: %v", err)
		}
		engine.resetIcon()
		return "", false
	}

	now := engine.options.Now()
	remaining := state.EndTime.Sub(now)
	engine.emit(Event{
		Type:         EventUpdate,
		Remaining:    clamp(remaining),
		TotalSeconds: state.TotalSeconds,
		TimerID:      state.CurrentTimerID,
		At:           now,
	})
	if engine.icon != nil {
		engine.icon.Show(remaining)
	}
	if remaining > 0 {
		return "", false
	}

	return engine.finishLocked(ctx, state, now)
}

// finishLocked clears the state before anything else so a second tick
// can never observe the finished countdown as running.
func (engine *Engine) finishLocked(ctx context.Context, state model.TimerState, now time.Time) (string, bool) {
	sound := state.Sound
	if sound == "" {
		sound = model.DefaultSound
	}
	if err := engine.store.ClearTimerState(ctx); err != nil {
		log.Printf("countdown: clear finished timer: %v", err)
		return "", false
	}
	engine.resetIcon()
	engine.emit(Event{
		Type:         EventCompleted,
		TotalSeconds: state.TotalSeconds,
		TimerID:      state.CurrentTimerID,
		At:           now,
	})
	return sound, true
}

func (engine *Engine) complete(ctx context.Context, sound string) {
	if engine.completer == nil {
		return
	}
	// A Start that finishes at once runs under a request context that
	// ends with the request; completion must outlive it.
	engine.completer.Complete(context.WithoutCancel(ctx), sound)
}

func (engine *Engine) resolveSound(ctx context.Context, request StartRequest) string {
	if request.Sound != "" {
		return request.Sound
	}
	if request.PresetID == "" || engine.presets == nil {
		return ""
	}
	preset, err := engine.presets.GetPreset(ctx, request.PresetID)
	if err != nil {
		log.Printf("countdown: preset %s not resolved: %v", request.PresetID, err)
		return ""
	}
	return preset.Sound
}

func (engine *Engine) resetIcon() {
	if engine.icon != nil {
		engine.icon.Reset()
	}
}

func (engine *Engine) emit(event Event) {
	engine.eventsMu.Lock()
	defer engine.eventsMu.Unlock()

	for _, ch := range engine.events {
		select {
		case ch <- event:
		default:
		}
	}
}

func clamp(remaining time.Duration) time.Duration {
	if remaining < 0 {
		return 0
	}
	return remaining
}
