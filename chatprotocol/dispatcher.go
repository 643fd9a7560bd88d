package chatprotocol

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// EventHandler is a callback receiving every inbound event. A returned error
// (or a panic) is logged and does not affect other handlers.
type EventHandler func(event Event) error

// Subscription is the handle returned by Subscribe. Handlers are identified
// by their subscription, so subscribing the same function twice delivers
// each event to it twice.
type Subscription struct {
	id       uint64
	handler  EventHandler
	name     string
	location string
}

// ID returns the subscription's process-unique number.
func (s *Subscription) ID() uint64 {
	return s.id
}

// Dispatcher fans events out to subscribers and keeps them in the inbound
// queue until drained.
//
// Thread Safety:
// The subscriber list and the inbound queue are guarded by separate locks
// that are never held together, and no lock is held while handlers run, so
// handlers may subscribe, unsubscribe, drain or enqueue freely.
type Dispatcher struct {
	subMu sync.RWMutex
	subs  []*Subscription

	inMu    sync.Mutex
	inbound []Event

	logger *zap.Logger
}

var nextSubscriptionID atomic.Uint64

// NewDispatcher creates a dispatcher logging handler failures to logger.
// A nil logger discards them.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{logger: logger}
}

// Subscribe appends handler to the subscriber list. A nil handler is
// ignored and yields a nil subscription.
func (d *Dispatcher) Subscribe(handler EventHandler) *Subscription {
	if handler == nil {
		return nil
	}
	name, location := describeFunc(handler)
	sub := &Subscription{
		id:       nextSubscriptionID.Add(1),
		handler:  handler,
		name:     name,
		location: location,
	}

	d.subMu.Lock()
	d.subs = append(d.subs, sub)
	d.subMu.Unlock()
	return sub
}

// Unsubscribe removes sub. Unknown or nil subscriptions are ignored.
func (d *Dispatcher) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	d.subMu.Lock()
	defer d.subMu.Unlock()
	for i, s := range d.subs {
		if s == sub {
			// Copy so snapshots taken by a running Dispatch stay intact.
			subs := make([]*Subscription, 0, len(d.subs)-1)
			subs = append(subs, d.subs[:i]...)
			d.subs = append(subs, d.subs[i+1:]...)
			return
		}
	}
}

// Subscribers returns the number of registered subscriptions.
func (d *Dispatcher) Subscribers() int {
	d.subMu.RLock()
	defer d.subMu.RUnlock()
	return len(d.subs)
}

// Dispatch calls every subscriber in registration order, then appends event
// to the inbound queue.
func (d *Dispatcher) Dispatch(event Event) {
	d.subMu.RLock()
	subs := d.subs
	d.subMu.RUnlock()

	for _, sub := range subs {
		if err := d.invoke(sub, event); err != nil {
			d.logger.Warn("Subscriber raised an error",
				zap.Uint64("subscription", sub.id),
				zap.String("handler", sub.name),
				zap.String("location", locationOf(err, sub)),
				zap.Stringer("event", event.Kind),
				zap.Error(err))
		}
	}

	d.inMu.Lock()
	d.inbound = append(d.inbound, event)
	d.inMu.Unlock()
}

// Drain returns the queued events in arrival order and empties the queue.
func (d *Dispatcher) Drain() []Event {
	d.inMu.Lock()
	events := d.inbound
	d.inbound = nil
	d.inMu.Unlock()

	if events == nil {
		return []Event{}
	}
	return events
}

// Len returns the number of queued events.
func (d *Dispatcher) Len() int {
	d.inMu.Lock()
	defer d.inMu.Unlock()
	return len(d.inbound)
}

// HandlerPanicError wraps a value recovered from a panicking handler.
type HandlerPanicError struct {
	Value    any
	Location string // file:line where the panic was raised
}

// Error implements the error interface.
func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

func (d *Dispatcher) invoke(sub *Subscription, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerPanicError{Value: r, Location: panicLocation()}
		}
	}()
	return sub.handler(event)
}

// locationOf returns where a failure originated: the panic site for panics,
// the handler definition otherwise.
func locationOf(err error, sub *Subscription) string {
	if p, ok := err.(*HandlerPanicError); ok && p.Location != "" {
		return p.Location
	}
	return sub.location
}

// describeFunc returns the qualified name and file:line of fn.
func describeFunc(fn EventHandler) (name, location string) {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "unknown", ""
	}
	file, line := f.FileLine(f.Entry())
	return f.Name(), fmt.Sprintf("%s:%d", file, line)
}

// panicLocation walks the stack of a recovering deferred call and returns
// the first frame outside the runtime, which is where panic was called.
func panicLocation() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
		if !more {
			return ""
		}
	}
}
