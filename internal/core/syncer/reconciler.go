package syncer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tabtimer/internal/core/model"
)

// DefaultDelay is the quiet period before a scheduled sync runs.
const DefaultDelay = 10 * time.Minute

// Remote is the low-bandwidth store holding the shared preset payload.
type Remote interface {
	Fetch(ctx context.Context) (model.SyncPayload, bool, error)
	Push(ctx context.Context, payload model.SyncPayload) error
}

// Local is the device's own preset collection and its modification time.
type Local interface {
	ListPresets(ctx context.Context) ([]model.TimerPreset, error)
	ReplacePresets(ctx context.Context, presets []model.TimerPreset) error
	LastModified(ctx context.Context) (time.Time, error)
	SetLastModified(ctx context.Context, at time.Time) error
}

// Outcome reports what a reconciliation did.
type Outcome string

const (
	OutcomePushed Outcome = "pushed"
	OutcomePulled Outcome = "pulled"
	OutcomeInSync Outcome = "in_sync"
)

// Config contains reconciler options.
type Config struct {
	Delay   time.Duration
	Timeout time.Duration
	Now     func() time.Time
}

// Reconciler merges local presets with the remote payload, newest write winning.
type Reconciler struct {
	local   Local
	remote  Remote
	options Config

	runMu sync.Mutex

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	closed     bool
}

// New creates a Reconciler.
func New(local Local, remote Remote, options Config) *Reconciler {
	if options.Delay <= 0 {
		options.Delay = DefaultDelay
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	return &Reconciler{local: local, remote: remote, options: options}
}

// Reconcile runs one merge. On equal timestamps nothing is written.
func (reconciler *Reconciler) Reconcile(ctx context.Context) (Outcome, error) {
	reconciler.runMu.Lock()
	defer reconciler.runMu.Unlock()

	if reconciler.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, reconciler.options.Timeout)
		defer cancel()
	}

	localModified, err := reconciler.local.LastModified(ctx)
	if err != nil {
		return "", fmt.Errorf("read local timestamp: %w", err)
	}

	payload, ok, err := reconciler.remote.Fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch remote payload: %w", err)
	}
	if !ok {
		return reconciler.pushLocked(ctx, localModified)
	}

	switch {
	case payload.LastUpdated.After(localModified):
		if err := reconciler.local.ReplacePresets(ctx, payload.Timers); err != nil {
			return "", fmt.Errorf("adopt remote presets: %w", err)
		}
		if err := reconciler.local.SetLastModified(ctx, payload.LastUpdated); err != nil {
			return "", fmt.Errorf("adopt remote timestamp: %w", err)
		}
		log.Printf("sync: adopted %d remote presets", len(payload.Timers))
		return OutcomePulled, nil
	case payload.LastUpdated.Equal(localModified):
		return OutcomeInSync, nil
	default:
		return reconciler.pushLocked(ctx, localModified)
	}
}

func (reconciler *Reconciler) pushLocked(ctx context.Context, localModified time.Time) (Outcome, error) {
	presets, err := reconciler.local.ListPresets(ctx)
	if err != nil {
		return "", fmt.Errorf("list local presets: %w", err)
	}

	stamp := time.UnixMilli(reconciler.options.Now().UnixMilli())
	if err := reconciler.remote.Push(ctx, model.SyncPayload{Timers: presets, LastUpdated: stamp}); err != nil {
		return "", fmt.Errorf("push presets: %w", err)
	}

	// A mutation that landed during the push keeps its own newer stamp.
	current, err := reconciler.local.LastModified(ctx)
	if err != nil {
		return "", fmt.Errorf("read local timestamp: %w", err)
	}
	if current.Equal(localModified) {
		if err := reconciler.local.SetLastModified(ctx, stamp); err != nil {
			return "", fmt.Errorf("record push timestamp: %w", err)
		}
	}
	log.Printf("sync: pushed %d presets", len(presets))
	return OutcomePushed, nil
}

// Schedule (re)starts the debounce window. Only the last call in a burst
// leads to a reconciliation.
func (reconciler *Reconciler) Schedule() {
	reconciler.mu.Lock()
	defer reconciler.mu.Unlock()
	if reconciler.closed {
		return
	}
	if reconciler.timer != nil {
		reconciler.timer.Stop()
	}
	reconciler.generation++
	generation := reconciler.generation
	reconciler.timer = time.AfterFunc(reconciler.options.Delay, func() {
		reconciler.fire(generation)
	})
}

// Pending reports whether a debounced sync is waiting to run.
func (reconciler *Reconciler) Pending() bool {
	reconciler.mu.Lock()
	defer reconciler.mu.Unlock()
	return reconciler.timer != nil
}

// Force cancels any pending debounce and reconciles now.
func (reconciler *Reconciler) Force(ctx context.Context) (Outcome, error) {
	reconciler.cancelPending()
	return reconciler.Reconcile(ctx)
}

// Close cancels any pending debounce; later Schedule calls are ignored.
func (reconciler *Reconciler) Close() {
	reconciler.mu.Lock()
	reconciler.closed = true
	reconciler.mu.Unlock()
	reconciler.cancelPending()
}

func (reconciler *Reconciler) cancelPending() {
	reconciler.mu.Lock()
	defer reconciler.mu.Unlock()
	if reconciler.timer != nil {
		reconciler.timer.Stop()
		reconciler.timer = nil
	}
	reconciler.generation++
}

func (reconciler *Reconciler) fire(generation uint64) {
	reconciler.mu.Lock()
	if reconciler.closed || generation != reconciler.generation {
		reconciler.mu.Unlock()
		return
	}
	reconciler.timer = nil
	reconciler.mu.Unlock()

	if _, err := reconciler.Reconcile(context.Background()); err != nil {
		log.Printf("sync: %v", err)
	}
}
