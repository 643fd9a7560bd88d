package chatprotocol

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestDispatcherOrder(t *testing.T) {
	d := NewDispatcher(nil)

	var calls []string
	d.Subscribe(func(Event) error { calls = append(calls, "first"); return nil })
	d.Subscribe(func(Event) error { calls = append(calls, "second"); return nil })
	d.Subscribe(func(Event) error { calls = append(calls, "third"); return nil })

	d.Dispatch(Event{Kind: KindJoin})

	assert.Equal(t, []string{"first", "second", "third"}, calls)
	assert.Equal(t, 1, d.Len())
}

func TestDispatcherSameHandlerTwice(t *testing.T) {
	d := NewDispatcher(nil)

	count := 0
	handler := func(Event) error { count++; return nil }
	first := d.Subscribe(handler)
	second := d.Subscribe(handler)
	require.NotEqual(t, first.ID(), second.ID())

	d.Dispatch(Event{Kind: KindJoin})
	assert.Equal(t, 2, count)

	d.Unsubscribe(first)
	d.Dispatch(Event{Kind: KindJoin})
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, d.Subscribers())
}

func TestDispatcherUnsubscribe(t *testing.T) {
	d := NewDispatcher(nil)

	count := 0
	sub := d.Subscribe(func(Event) error { count++; return nil })
	d.Unsubscribe(sub)
	d.Dispatch(Event{Kind: KindMessage})

	assert.Zero(t, count)
	assert.Zero(t, d.Subscribers())
	assert.Equal(t, 1, d.Len(), "events are queued without subscribers")

	// Unknown and nil subscriptions are ignored.
	d.Unsubscribe(sub)
	d.Unsubscribe(nil)
}

func TestDispatcherNilHandler(t *testing.T) {
	d := NewDispatcher(nil)
	assert.Nil(t, d.Subscribe(nil))
	assert.Zero(t, d.Subscribers())
}

func TestDispatcherHandlerErrorIsolated(t *testing.T) {
	logger, logs := newObservedLogger()
	d := NewDispatcher(logger)

	var later int
	d.Subscribe(func(Event) error { return errors.New("handler failed") })
	d.Subscribe(func(Event) error { later++; return nil })

	d.Dispatch(Event{Kind: KindNotice})

	assert.Equal(t, 1, later)
	entries := logs.FilterMessage("Subscriber raised an error").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "handler failed", fields["error"])
	assert.Equal(t, "notice", fields["event"])
	assert.Contains(t, fields["location"], "dispatcher_test.go")
}

func TestDispatcherHandlerPanicIsolated(t *testing.T) {
	logger, logs := newObservedLogger()
	d := NewDispatcher(logger)

	var later int
	d.Subscribe(func(Event) error { panic("kaboom") })
	d.Subscribe(func(Event) error { later++; return nil })

	require.NotPanics(t, func() { d.Dispatch(Event{Kind: KindMessage}) })

	assert.Equal(t, 1, later)
	assert.Equal(t, 1, d.Len())

	entries := logs.FilterMessage("Subscriber raised an error").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "handler panicked: kaboom", fields["error"])
	location, _ := fields["location"].(string)
	assert.True(t, strings.Contains(location, "dispatcher_test.go:"), "location %q", location)
}

func TestDispatcherDrainIsDestructive(t *testing.T) {
	d := NewDispatcher(nil)

	d.Dispatch(Event{Kind: KindJoin, Channel: "a"})
	d.Dispatch(Event{Kind: KindLeave, Channel: "b"})

	first := d.Drain()
	require.Len(t, first, 2)
	assert.Equal(t, KindJoin, first[0].Kind)
	assert.Equal(t, KindLeave, first[1].Kind)

	second := d.Drain()
	assert.NotNil(t, second)
	assert.Empty(t, second)
}

func TestDispatcherHandlerMayUnsubscribeItself(t *testing.T) {
	d := NewDispatcher(nil)

	count := 0
	var sub *Subscription
	sub = d.Subscribe(func(Event) error {
		count++
		d.Unsubscribe(sub)
		return nil
	})

	d.Dispatch(Event{Kind: KindJoin})
	d.Dispatch(Event{Kind: KindJoin})
	assert.Equal(t, 1, count)
}

func TestDispatcherConcurrentUse(t *testing.T) {
	d := NewDispatcher(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sub := d.Subscribe(func(Event) error { return nil })
				d.Dispatch(Event{Kind: KindMessage})
				d.Unsubscribe(sub)
			}
		}()
	}

	total := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		select {
		case <-done:
			total += len(d.Drain())
			assert.Equal(t, 800, total)
			return
		default:
			total += len(d.Drain())
		}
	}
}
