package jobs

import (
	"errors"
	"sync"
)

// Actions guarded by Flight.
const (
	ActionRead    = "read"
	ActionSave    = "save"
	ActionPreview = "preview"
	ActionRefresh = "refresh"
)

// ErrActionInProgress is returned when the same action is triggered twice.
var ErrActionInProgress = errors.New("action already in progress")

// Flight allows one in-flight run per action name. Different actions do not
// exclude each other.
type Flight struct {
	mu     sync.Mutex
	active map[string]bool
}

// NewFlight creates an empty guard.
func NewFlight() *Flight {
	return &Flight{active: make(map[string]bool)}
}

// Acquire marks action as running and returns its release func.
func (f *Flight) Acquire(action string) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.active[action] {
		return nil, ErrActionInProgress
	}
	f.active[action] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.active, action)
			f.mu.Unlock()
		})
	}, nil
}

// Active reports whether action is running.
func (f *Flight) Active(action string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active[action]
}
