package service

import (
	"sync"

	"labdesk/internal/models"
)

// ActionLocks is the per-request busy map of a session. A key holds at
// most one in-flight mutation; the map is the gate, not a hint.
type ActionLocks struct {
	mu    sync.Mutex
	state map[string]models.ActionState
}

func NewActionLocks() *ActionLocks {
	return &ActionLocks{state: make(map[string]models.ActionState)}
}

// TryAcquire marks key busy with state. It fails when key is already busy.
func (l *ActionLocks) TryAcquire(key string, state models.ActionState) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.state[key]; ok && cur != models.ActionIdle {
		return false
	}
	l.state[key] = state
	return true
}

func (l *ActionLocks) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.state, key)
}

// State returns the busy marker of key, ActionIdle when none.
func (l *ActionLocks) State(key string) models.ActionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok := l.state[key]; ok {
		return st
	}
	return models.ActionIdle
}

// Snapshot copies the busy entries.
func (l *ActionLocks) Snapshot() map[string]models.ActionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]models.ActionState, len(l.state))
	for k, v := range l.state {
		out[k] = v
	}
	return out
}
