package jobs

import (
	"errors"
	"fmt"
	"sync"

	"xtts-desktop/internal/domain"
)

// ErrJobAlreadyRunning is returned when starting a second active job.
var ErrJobAlreadyRunning = errors.New("a batch is already running")

// ErrNoRunningJob is returned when cancel is requested for idle state.
var ErrNoRunningJob = errors.New("no running batch")

// Manager tracks the single allowed batch job and its transitions.
type Manager struct {
	mu      sync.RWMutex
	current domain.Job
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.Job{
			Status: domain.JobStatusIdle,
		},
	}
}

// Start creates a new job for inputPath and moves it to running.
func (m *Manager) Start(jobID, inputPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status == domain.JobStatusRunning {
		return ErrJobAlreadyRunning
	}

	m.current = domain.Job{
		ID:        jobID,
		Status:    domain.JobStatusRunning,
		InputPath: inputPath,
	}
	return nil
}

// Progress records chunk counters for the running job.
func (m *Manager) Progress(processed, failed, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status != domain.JobStatusRunning {
		return
	}
	m.current.Processed = processed
	m.current.Failed = failed
	m.current.Total = total
}

// Transition validates and applies state transitions for current job.
func (m *Manager) Transition(status domain.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" && status != domain.JobStatusIdle {
		return fmt.Errorf("cannot transition without an active job")
	}
	if status == m.current.Status {
		return nil
	}
	if !isValidTransition(m.current.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, status)
	}

	m.current.Status = status
	return nil
}

// Current returns a snapshot of the current job.
func (m *Manager) Current() domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reset clears job metadata and returns manager to idle.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.Job{Status: domain.JobStatusIdle}
}

// IsRunning reports whether a batch is in progress.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Status == domain.JobStatusRunning
}

// Cancel flags the running job. The worker finishes its current chunk and then
// transitions to cancelled.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status != domain.JobStatusRunning {
		return ErrNoRunningJob
	}
	m.current.CancelRequested = true
	return nil
}

// isValidTransition enforces the allowed job state machine edges.
func isValidTransition(from, to domain.JobStatus) bool {
	switch from {
	case domain.JobStatusIdle:
		return to == domain.JobStatusRunning
	case domain.JobStatusRunning:
		return to.Terminal()
	case domain.JobStatusCompleted, domain.JobStatusFailed, domain.JobStatusCancelled:
		return to == domain.JobStatusRunning || to == domain.JobStatusIdle
	default:
		return false
	}
}
