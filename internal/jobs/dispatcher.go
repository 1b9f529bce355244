package jobs

import (
	"context"
	"sync"
)

// EmitFunc forwards a published event to the UI runtime.
type EmitFunc func(event Event)

// Dispatcher is the single loop that turns worker messages into UI updates.
// Workers call Send; only the loop publishes to the bus and emits.
type Dispatcher struct {
	bus  *EventBus
	emit EmitFunc
	in   chan Event
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewDispatcher creates a dispatcher with a buffered inbox.
func NewDispatcher(bus *EventBus, emit EmitFunc, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		bus:  bus,
		emit: emit,
		in:   make(chan Event, buffer),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// SetEmitter replaces the UI hook. It must be called before Run.
func (d *Dispatcher) SetEmitter(emit EmitFunc) {
	d.emit = emit
}

// Run drains the inbox until ctx is cancelled or Close is called, then
// publishes whatever is still buffered.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case event := <-d.in:
			d.deliver(event)
		case <-ctx.Done():
			d.drain()
			return
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// Send queues an event. It blocks while the inbox is full and drops the event
// once the dispatcher has stopped.
func (d *Dispatcher) Send(event Event) {
	select {
	case <-d.stop:
		return
	default:
	}

	select {
	case d.in <- event:
	case <-d.stop:
	case <-d.done:
	}
}

// Close stops the loop and waits for buffered events to be delivered.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.stop) })
	<-d.done
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.in:
			d.deliver(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(event Event) {
	published := d.bus.Publish(event)
	if d.emit != nil {
		d.emit(published)
	}
}
