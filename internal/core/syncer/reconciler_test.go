package syncer

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"tabtimer/internal/core/model"
)

type memoryLocal struct {
	mu       sync.Mutex
	presets  []model.TimerPreset
	modified time.Time
}

func (local *memoryLocal) ListPresets(context.Context) ([]model.TimerPreset, error) {
	local.mu.Lock()
	defer local.mu.Unlock()
	return model.ClonePresets(local.presets), nil
}

func (local *memoryLocal) ReplacePresets(_ context.Context, presets []model.TimerPreset) error {
	local.mu.Lock()
	defer local.mu.Unlock()
	local.presets = model.ClonePresets(presets)
	return nil
}

func (local *memoryLocal) LastModified(context.Context) (time.Time, error) {
	local.mu.Lock()
	defer local.mu.Unlock()
	return local.modified, nil
}

func (local *memoryLocal) SetLastModified(_ context.Context, at time.Time) error {
	local.mu.Lock()
	defer local.mu.Unlock()
	local.modified = at
	return nil
}

func (local *memoryLocal) mutate(preset model.TimerPreset, at time.Time) {
	local.mu.Lock()
	defer local.mu.Unlock()
	local.presets = append(local.presets, preset)
	local.modified = at
}

type memoryRemote struct {
	mu      sync.Mutex
	payload *model.SyncPayload
	pushes  []model.SyncPayload
	pushErr error
	pushed  chan struct{}
}

func (remote *memoryRemote) Fetch(context.Context) (model.SyncPayload, bool, error) {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if remote.payload == nil {
		return model.SyncPayload{}, false, nil
	}
	return *remote.payload, true, nil
}

func (remote *memoryRemote) Push(_ context.Context, payload model.SyncPayload) error {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if remote.pushErr != nil {
		return remote.pushErr
	}
	remote.pushes = append(remote.pushes, payload)
	remote.payload = &payload
	if remote.pushed != nil {
		remote.pushed <- struct{}{}
	}
	return nil
}

func (remote *memoryRemote) Pushes() []model.SyncPayload {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	return append([]model.SyncPayload(nil), remote.pushes...)
}

var base = time.UnixMilli(1700000000000)

func preset(id string, order float64) model.TimerPreset {
	return model.TimerPreset{ID: id, Minutes: 1, Color: "#3B82F6", Sound: model.DefaultSound, Order: order}
}

func fixedNow(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestReconcileBootstrapsEmptyRemote(t *testing.T) {
	local := &memoryLocal{presets: []model.TimerPreset{preset("a", 0)}, modified: base}
	remote := &memoryRemote{}
	reconciler := New(local, remote, Config{Now: fixedNow(base.Add(time.Minute))})

	outcome, err := reconciler.Reconcile(context.Background())
	if err != nil || outcome != OutcomePushed {
		t.Fatalf("Reconcile() = %v, %v; want pushed", outcome, err)
	}
	pushes := remote.Pushes()
	if len(pushes) != 1 || len(pushes[0].Timers) != 1 || !pushes[0].LastUpdated.Equal(base.Add(time.Minute)) {
		t.Fatalf("pushes = %+v", pushes)
	}
	if !local.modified.Equal(base.Add(time.Minute)) {
		t.Fatalf("local timestamp = %v, want push stamp", local.modified)
	}

	outcome, err = reconciler.Reconcile(context.Background())
	if err != nil || outcome != OutcomeInSync {
		t.Fatalf("second Reconcile() = %v, %v; want in sync", outcome, err)
	}
}

func TestReconcileTieLeavesEverythingAlone(t *testing.T) {
	localPresets := []model.TimerPreset{preset("a", 0)}
	local := &memoryLocal{presets: localPresets, modified: base}
	remote := &memoryRemote{payload: &model.SyncPayload{Timers: []model.TimerPreset{preset("b", 0)}, LastUpdated: base}}
	reconciler := New(local, remote, Config{})

	outcome, err := reconciler.Reconcile(context.Background())
	if err != nil || outcome != OutcomeInSync {
		t.Fatalf("Reconcile() = %v, %v; want in sync", outcome, err)
	}
	if !reflect.DeepEqual(local.presets, localPresets) {
		t.Fatalf("local presets changed: %+v", local.presets)
	}
	if len(remote.Pushes()) != 0 {
		t.Fatalf("tie should not push")
	}
}

func TestReconcileAdoptsNewerRemote(t *testing.T) {
	remoteSet := []model.TimerPreset{preset("r1", 0), preset("r2", 1)}
	local := &memoryLocal{presets: []model.TimerPreset{preset("a", 0)}, modified: base}
	remote := &memoryRemote{payload: &model.SyncPayload{Timers: remoteSet, LastUpdated: base.Add(time.Millisecond)}}
	reconciler := New(local, remote, Config{})

	outcome, err := reconciler.Reconcile(context.Background())
	if err != nil || outcome != OutcomePulled {
		t.Fatalf("Reconcile() = %v, %v; want pulled", outcome, err)
	}
	if !reflect.DeepEqual(local.presets, remoteSet) {
		t.Fatalf("local presets = %+v, want remote set", local.presets)
	}
	if !local.modified.Equal(base.Add(time.Millisecond)) {
		t.Fatalf("local timestamp = %v, want remote's", local.modified)
	}
	if len(remote.Pushes()) != 0 {
		t.Fatalf("pull should not push")
	}
}

func TestReconcilePushesNewerLocal(t *testing.T) {
	local := &memoryLocal{presets: []model.TimerPreset{preset("a", 0)}, modified: base.Add(time.Second)}
	remote := &memoryRemote{payload: &model.SyncPayload{LastUpdated: base}}
	reconciler := New(local, remote, Config{Now: fixedNow(base.Add(time.Hour))})

	outcome, err := reconciler.Reconcile(context.Background())
	if err != nil || outcome != OutcomePushed {
		t.Fatalf("Reconcile() = %v, %v; want pushed", outcome, err)
	}
	if pushes := remote.Pushes(); len(pushes) != 1 || pushes[0].Timers[0].ID != "a" {
		t.Fatalf("pushes = %+v", pushes)
	}
}

func TestReconcilePushFailureKeepsLocal(t *testing.T) {
	local := &memoryLocal{presets: []model.TimerPreset{preset("a", 0)}, modified: base}
	remote := &memoryRemote{pushErr: errors.New("quota exceeded")}
	reconciler := New(local, remote, Config{Now: fixedNow(base.Add(time.Minute))})

	if _, err := reconciler.Reconcile(context.Background()); err == nil {
		t.Fatalf("Reconcile should report push failure")
	}
	if !local.modified.Equal(base) || len(local.presets) != 1 {
		t.Fatalf("local state changed on failure: %+v", local)
	}
}

func TestScheduleCoalescesBurst(t *testing.T) {
	local := &memoryLocal{modified: base}
	remote := &memoryRemote{payload: &model.SyncPayload{LastUpdated: base.Add(-time.Hour)}, pushed: make(chan struct{}, 8)}
	reconciler := New(local, remote, Config{Delay: 40 * time.Millisecond})
	defer reconciler.Close()

	for i := 0; i < 5; i++ {
		local.mutate(preset(string(rune('a'+i)), float64(i)), base.Add(time.Duration(i+1)*time.Second))
		reconciler.Schedule()
		time.Sleep(5 * time.Millisecond)
	}
	if !reconciler.Pending() {
		t.Fatalf("expected pending sync")
	}

	select {
	case <-remote.pushed:
	case <-time.After(2 * time.Second):
		t.Fatalf("debounced sync never ran")
	}
	time.Sleep(80 * time.Millisecond)

	pushes := remote.Pushes()
	if len(pushes) != 1 {
		t.Fatalf("pushes = %d, want 1", len(pushes))
	}
	if len(pushes[0].Timers) != 5 || pushes[0].Timers[4].ID != "e" {
		t.Fatalf("push carried %+v, want final state", pushes[0].Timers)
	}
	if reconciler.Pending() {
		t.Fatalf("sync still pending after run")
	}
}

func TestForceCancelsPendingAndRunsInline(t *testing.T) {
	local := &memoryLocal{presets: []model.TimerPreset{preset("a", 0)}, modified: base}
	remote := &memoryRemote{}
	reconciler := New(local, remote, Config{Delay: 30 * time.Millisecond})
	defer reconciler.Close()

	reconciler.Schedule()
	outcome, err := reconciler.Force(context.Background())
	if err != nil || outcome != OutcomePushed {
		t.Fatalf("Force() = %v, %v", outcome, err)
	}
	if reconciler.Pending() {
		t.Fatalf("Force should cancel pending sync")
	}

	time.Sleep(80 * time.Millisecond)
	if pushes := remote.Pushes(); len(pushes) != 1 {
		t.Fatalf("pushes = %d, want 1", len(pushes))
	}
}

func TestCloseStopsScheduling(t *testing.T) {
	remote := &memoryRemote{}
	reconciler := New(&memoryLocal{}, remote, Config{Delay: 10 * time.Millisecond})
	reconciler.Schedule()
	reconciler.Close()
	reconciler.Schedule()

	time.Sleep(50 * time.Millisecond)
	if len(remote.Pushes()) != 0 {
		t.Fatalf("closed reconciler pushed")
	}
}
