package jobs

import (
	"sync"
	"time"

	"xtts-desktop/internal/domain"
)

// EventType classifies messages emitted by workers.
type EventType string

const (
	EventTypeStatus     EventType = "status"
	EventTypeProgress   EventType = "progress"
	EventTypeChunkError EventType = "chunk_error"
	EventTypeLog        EventType = "log"
	EventTypeResult     EventType = "result"
	EventTypeError      EventType = "error"
	EventTypeNotice     EventType = "notice"
	EventTypeSession    EventType = "session"
)

// Event is a sequenced payload consumed by UI subscribers. JobID is empty for
// events of one-shot actions, which carry Action instead. A non-empty Title
// marks the event as a user notification.
type Event struct {
	Seq       int64            `json:"seq"`
	Timestamp time.Time        `json:"timestamp"`
	JobID     string           `json:"jobId,omitempty"`
	Action    string           `json:"action,omitempty"`
	Type      EventType        `json:"type"`
	Status    domain.JobStatus `json:"status,omitempty"`
	Stage     string           `json:"stage,omitempty"`
	Title     string           `json:"title,omitempty"`
	Message   string           `json:"message,omitempty"`
	Kind      domain.ErrorKind `json:"kind,omitempty"`
	Index     int              `json:"index,omitempty"`
	Total     int              `json:"total,omitempty"`
	Command   string           `json:"command,omitempty"`
	Args      []string         `json:"args,omitempty"`
	ExitCode  int              `json:"exitCode,omitempty"`
	Stderr    string           `json:"stderr,omitempty"`
	Path      string           `json:"path,omitempty"`
	Size      string           `json:"size,omitempty"`
}

// EventBus stores recent events and provides incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event and assigns sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// Last returns the most recent sequence number.
func (b *EventBus) Last() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}
