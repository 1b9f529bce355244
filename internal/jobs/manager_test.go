package jobs

import (
	"testing"

	"xtts-desktop/internal/domain"
)

// TestManagerLifecycle verifies normal progression to completed state.
func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	if m.IsRunning() {
		t.Fatal("new manager should be idle")
	}

	if err := m.Start("job-1", "/tmp/book.txt"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !m.IsRunning() {
		t.Fatal("expected running after start")
	}

	m.Progress(2, 1, 5)
	if err := m.Transition(domain.JobStatusCompleted); err != nil {
		t.Fatalf("transition to completed: %v", err)
	}

	current := m.Current()
	if current.Status != domain.JobStatusCompleted {
		t.Fatalf("current status = %s, want completed", current.Status)
	}
	if current.Processed != 2 || current.Failed != 1 || current.Total != 5 || current.InputPath != "/tmp/book.txt" {
		t.Fatalf("current = %+v", current)
	}

	m.Progress(9, 9, 9)
	if m.Current().Processed != 2 {
		t.Fatal("progress applied after terminal state")
	}
}

// TestManagerRejectsSecondStart verifies the single active job rule.
func TestManagerRejectsSecondStart(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1", "a.txt"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Start("job-2", "b.txt"); err != ErrJobAlreadyRunning {
		t.Fatalf("second start error = %v, want %v", err, ErrJobAlreadyRunning)
	}

	if err := m.Transition(domain.JobStatusFailed); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := m.Start("job-2", "b.txt"); err != nil {
		t.Fatalf("restart after terminal: %v", err)
	}
	if m.Current().ID != "job-2" {
		t.Fatalf("id = %s", m.Current().ID)
	}
}

// TestManagerRejectsInvalidTransition checks state machine constraints.
func TestManagerRejectsInvalidTransition(t *testing.T) {
	m := NewManager()
	if err := m.Transition(domain.JobStatusCompleted); err == nil {
		t.Fatal("expected error without an active job")
	}

	if err := m.Start("job-1", "a.txt"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Transition(domain.JobStatusIdle); err == nil {
		t.Fatal("expected invalid transition error")
	}
}

// TestManagerCancel verifies cancel requests and repeated cancel handling.
func TestManagerCancel(t *testing.T) {
	m := NewManager()
	if err := m.Cancel(); err != ErrNoRunningJob {
		t.Fatalf("idle cancel error = %v, want %v", err, ErrNoRunningJob)
	}
	if err := m.Start("job-1", "a.txt"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := m.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	current := m.Current()
	if current.Status != domain.JobStatusRunning || !current.CancelRequested {
		t.Fatalf("current = %+v, want running with cancel requested", current)
	}

	if err := m.Transition(domain.JobStatusCancelled); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := m.Cancel(); err != ErrNoRunningJob {
		t.Fatalf("second cancel error = %v, want %v", err, ErrNoRunningJob)
	}
}
