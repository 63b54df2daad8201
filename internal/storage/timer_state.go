package storage

import (
	"context"

	"tabtimer/internal/core/model"
)

// StateStore persists the TimerState record.
type StateStore struct {
	local Local
}

// NewStateStore creates a StateStore over local.
func NewStateStore(local Local) *StateStore {
	return &StateStore{local: local}
}

// LoadTimerState returns the persisted state and whether one exists.
func (store *StateStore) LoadTimerState(ctx context.Context) (model.TimerState, bool, error) {
	var state model.TimerState
	ok, err := store.local.Get(ctx, KeyTimerState, &state)
	if err != nil || !ok {
		return model.TimerState{}, false, err
	}
	return state, true, nil
}

// SaveTimerState overwrites the persisted state.
func (store *StateStore) SaveTimerState(ctx context.Context, state model.TimerState) error {
	return store.local.Set(ctx, KeyTimerState, state)
}

// ClearTimerState removes the persisted state.
func (store *StateStore) ClearTimerState(ctx context.Context) error {
	return store.local.Remove(ctx, KeyTimerState)
}
