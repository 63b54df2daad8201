package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tabtimer/internal/core/model"
)

// ErrPresetNotFound indicates no preset has the requested id.
var ErrPresetNotFound = errors.New("preset not found")

// PresetStore is the local preset collection. Every local mutation stamps
// the last-modified time and calls the change hook.
type PresetStore struct {
	mu       sync.Mutex
	local    Local
	now      func() time.Time
	onChange func()
}

// NewPresetStore creates a PresetStore over local.
func NewPresetStore(local Local) *PresetStore {
	return &PresetStore{local: local, now: time.Now}
}

// SetOnChange registers the hook run after each local mutation.
func (store *PresetStore) SetOnChange(onChange func()) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.onChange = onChange
}

// ListPresets returns presets sorted by order.
func (store *PresetStore) ListPresets(ctx context.Context) ([]model.TimerPreset, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.listLocked(ctx)
}

// GetPreset returns the preset with id.
func (store *PresetStore) GetPreset(ctx context.Context, id string) (model.TimerPreset, error) {
	presets, err := store.ListPresets(ctx)
	if err != nil {
		return model.TimerPreset{}, err
	}
	for _, preset := range presets {
		if preset.ID == id {
			return preset, nil
		}
	}
	return model.TimerPreset{}, fmt.Errorf("%s: %w", id, ErrPresetNotFound)
}

// CreatePreset validates draft, assigns an id and appends it.
func (store *PresetStore) CreatePreset(ctx context.Context, draft model.TimerPreset) (model.TimerPreset, error) {
	if err := draft.Validate(); err != nil {
		return model.TimerPreset{}, err
	}

	store.mu.Lock()
	presets, err := store.listLocked(ctx)
	if err != nil {
		store.mu.Unlock()
		return model.TimerPreset{}, err
	}

	draft.ID = uuid.NewString()
	draft.Order = nextOrder(presets)
	presets = append(presets, draft)
	onChange, err := store.commitLocked(ctx, presets)
	store.mu.Unlock()
	if err != nil {
		return model.TimerPreset{}, err
	}
	notify(onChange)
	return draft, nil
}

// UpdatePreset replaces the fields of an existing preset. Order is only
// changed through ReorderPresets.
func (store *PresetStore) UpdatePreset(ctx context.Context, preset model.TimerPreset) (model.TimerPreset, error) {
	if err := preset.Validate(); err != nil {
		return model.TimerPreset{}, err
	}

	store.mu.Lock()
	presets, err := store.listLocked(ctx)
	if err != nil {
		store.mu.Unlock()
		return model.TimerPreset{}, err
	}
	index := indexOf(presets, preset.ID)
	if index < 0 {
		store.mu.Unlock()
		return model.TimerPreset{}, fmt.Errorf("%s: %w", preset.ID, ErrPresetNotFound)
	}
	preset.Order = presets[index].Order
	presets[index] = preset
	onChange, err := store.commitLocked(ctx, presets)
	store.mu.Unlock()
	if err != nil {
		return model.TimerPreset{}, err
	}
	notify(onChange)
	return preset, nil
}

// DeletePreset removes the preset with id.
func (store *PresetStore) DeletePreset(ctx context.Context, id string) error {
	store.mu.Lock()
	presets, err := store.listLocked(ctx)
	if err != nil {
		store.mu.Unlock()
		return err
	}
	index := indexOf(presets, id)
	if index < 0 {
		store.mu.Unlock()
		return fmt.Errorf("%s: %w", id, ErrPresetNotFound)
	}
	presets = append(presets[:index], presets[index+1:]...)
	onChange, err := store.commitLocked(ctx, presets)
	store.mu.Unlock()
	if err != nil {
		return err
	}
	notify(onChange)
	return nil
}

// ReorderPresets assigns orders following ids. Presets not named keep their
// relative order after the named ones.
func (store *PresetStore) ReorderPresets(ctx context.Context, ids []string) ([]model.TimerPreset, error) {
	store.mu.Lock()
	presets, err := store.listLocked(ctx)
	if err != nil {
		store.mu.Unlock()
		return nil, err
	}

	reordered := make([]model.TimerPreset, 0, len(presets))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		index := indexOf(presets, id)
		if index < 0 {
			store.mu.Unlock()
			return nil, fmt.Errorf("%s: %w", id, ErrPresetNotFound)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		reordered = append(reordered, presets[index])
	}
	for _, preset := range presets {
		if !seen[preset.ID] {
			reordered = append(reordered, preset)
		}
	}
	for i := range reordered {
		reordered[i].Order = float64(i)
	}

	onChange, err := store.commitLocked(ctx, reordered)
	store.mu.Unlock()
	if err != nil {
		return nil, err
	}
	notify(onChange)
	return model.ClonePresets(reordered), nil
}

// ReplacePresets overwrites the collection with presets adopted from the
// remote store. It neither stamps the timestamp nor calls the change hook.
func (store *PresetStore) ReplacePresets(ctx context.Context, presets []model.TimerPreset) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	sorted := model.ClonePresets(presets)
	if sorted == nil {
		sorted = []model.TimerPreset{}
	}
	model.SortPresets(sorted)
	return store.local.Set(ctx, KeyPresets, sorted)
}

// LastModified returns the local last-modified time, zero if never set.
func (store *PresetStore) LastModified(ctx context.Context) (time.Time, error) {
	var millis int64
	ok, err := store.local.Get(ctx, KeyLastUpdated, &millis)
	if err != nil || !ok {
		return time.Time{}, err
	}
	return time.UnixMilli(millis), nil
}

// SetLastModified records the local last-modified time.
func (store *PresetStore) SetLastModified(ctx context.Context, at time.Time) error {
	return store.local.Set(ctx, KeyLastUpdated, at.UnixMilli())
}

// LastSettings returns the last used duration.
func (store *PresetStore) LastSettings(ctx context.Context) (model.LastSettings, error) {
	var settings model.LastSettings
	if _, err := store.local.Get(ctx, KeyLastSettings, &settings); err != nil {
		return model.LastSettings{}, err
	}
	return settings, nil
}

// SaveLastSettings records the last used duration.
func (store *PresetStore) SaveLastSettings(ctx context.Context, settings model.LastSettings) error {
	return store.local.Set(ctx, KeyLastSettings, settings)
}

// AppState returns the popup route snapshot.
func (store *PresetStore) AppState(ctx context.Context) (model.AppState, error) {
	var state model.AppState
	if _, err := store.local.Get(ctx, KeyAppState, &state); err != nil {
		return model.AppState{Route: model.RouteTimerList}, err
	}
	return state.Normalize(), nil
}

// SaveAppState records the popup route snapshot.
func (store *PresetStore) SaveAppState(ctx context.Context, state model.AppState) error {
	return store.local.Set(ctx, KeyAppState, state.Normalize())
}

func (store *PresetStore) listLocked(ctx context.Context) ([]model.TimerPreset, error) {
	var presets []model.TimerPreset
	if _, err := store.local.Get(ctx, KeyPresets, &presets); err != nil {
		return nil, err
	}
	model.SortPresets(presets)
	return presets, nil
}

func (store *PresetStore) commitLocked(ctx context.Context, presets []model.TimerPreset) (func(), error) {
	if err := store.local.Set(ctx, KeyPresets, presets); err != nil {
		return nil, err
	}
	if err := store.local.Set(ctx, KeyLastUpdated, store.now().UnixMilli()); err != nil {
		return nil, err
	}
	return store.onChange, nil
}

func notify(onChange func()) {
	if onChange != nil {
		onChange()
	}
}

func nextOrder(presets []model.TimerPreset) float64 {
	if len(presets) == 0 {
		return 0
	}
	highest := presets[0].Order
	for _, preset := range presets[1:] {
		if preset.Order > highest {
			highest = preset.Order
		}
	}
	return highest + 1
}

func indexOf(presets []model.TimerPreset, id string) int {
	for i, preset := range presets {
		if preset.ID == id {
			return i
		}
	}
	return -1
}
