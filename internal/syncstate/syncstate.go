// Package syncstate persists the cross-cycle sync parameters: when the last
// successful cycle started and whether the next cycle should ignore it.
package syncstate

import (
	"context"
	"sync"
	"time"
)

// State is the persisted sync state.
type State struct {
	LastSync time.Time `json:"last_sync"`
	Reset    bool      `json:"reset"`
}

// Store loads and saves State.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}

// Advance returns the state to store after a cycle that started at started
// and did not fail: the watermark moves forward and a pending reset is
// consumed.
func Advance(started time.Time) State {
	return State{LastSync: started.UTC(), Reset: false}
}

// Memory is an in-process Store.
type Memory struct {
	mu    sync.Mutex
	state State
}

// NewMemory creates a Memory store seeded with initial.
func NewMemory(initial State) *Memory {
	return &Memory{state: initial}
}

// Load returns the current state.
func (m *Memory) Load(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

// Save replaces the current state.
func (m *Memory) Save(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	return nil
}
