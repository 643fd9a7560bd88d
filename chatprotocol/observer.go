package chatprotocol

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// minDrainPoll is the shortest pause between outbound queue checks in
	// a graceful Stop.
	minDrainPoll = 10 * time.Millisecond

	// minIdlePause keeps an outbound pump with a zero send interval from
	// spinning on an empty queue.
	minIdlePause = time.Millisecond
)

// Observer keeps an authenticated connection to the chat service, turns
// server lines into events for subscribers and writes queued commands no
// faster than the send interval.
//
// Thread Safety:
// The connection, the outbound queue, the subscriber list and the inbound
// queue each have their own lock and no two are ever held together, so
// sending never stalls receiving. Every method is safe for concurrent use,
// except that Start and Stop must not be called from an event handler.
type Observer struct {
	nickname   string
	credential string
	opts       options
	logger     *zap.Logger

	dispatcher *Dispatcher

	// lifecycleMu serializes Start and Stop.
	lifecycleMu sync.Mutex
	active      bool
	group       atomic.Pointer[pumpGroup]
	running     atomic.Bool

	connMu sync.Mutex
	conn   Transport

	outMu    sync.Mutex
	outbound []Command
}

// pumpGroup tracks one run of the inbound and outbound pumps.
type pumpGroup struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error // set before done is closed

	forced    chan struct{}
	forceOnce sync.Once
}

// force aborts a graceful drain in progress.
func (g *pumpGroup) force() {
	g.forceOnce.Do(func() { close(g.forced) })
}

func (g *pumpGroup) isForced() bool {
	select {
	case <-g.forced:
		return true
	default:
		return false
	}
}

// New creates an observer for nickname authenticating with credential
// (an OAuth token, usually "oauth:..."). Nothing is dialed until Start.
func New(nickname, credential string, opts ...Option) *Observer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.resolve()

	logger := o.logger.With(
		zap.String("session", uuid.NewString()),
		zap.String("nickname", nickname))

	return &Observer{
		nickname:   nickname,
		credential: credential,
		opts:       o,
		logger:     logger,
		dispatcher: NewDispatcher(logger),
	}
}

// Nickname returns the nickname the observer logs in with.
func (o *Observer) Nickname() string {
	return o.nickname
}

// Start connects and logs in. See StartWithContext.
func (o *Observer) Start() error {
	return o.StartWithContext(context.Background())
}

// StartWithContext dials the service, sends the credential, nickname and
// capability requests, and processes the first server response before
// returning, so a rejected credential is reported here as an
// *AuthenticationError. On success the inbound and outbound pumps run until
// Stop. ctx bounds only the dial.
func (o *Observer) StartWithContext(ctx context.Context) error {
	o.lifecycleMu.Lock()
	defer o.lifecycleMu.Unlock()

	if o.active {
		return ErrAlreadyStarted
	}

	dialCtx, cancel := context.WithTimeout(ctx, o.opts.dialTimeout)
	conn, err := o.opts.dial(dialCtx, o.opts.address)
	cancel()
	if err != nil {
		return NewConnectionError("failed to connect to "+o.opts.address, err)
	}

	o.connMu.Lock()
	o.conn = conn
	o.connMu.Unlock()

	decoder := NewFrameDecoder()
	if err := o.handshake(decoder); err != nil {
		o.closeTransport()
		return err
	}
	lastSent := time.Now()

	pumpCtx, cancelPumps := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(pumpCtx)
	group := &pumpGroup{cancel: cancelPumps, done: make(chan struct{}), forced: make(chan struct{})}
	o.group.Store(group)
	o.running.Store(true)
	o.active = true

	g.Go(func() error { return o.inboundPump(gctx, decoder) })
	g.Go(func() error { return o.outboundPump(gctx, lastSent) })
	go func() {
		group.err = g.Wait()
		close(group.done)
	}()

	o.logger.Info("Connected", zap.String("address", o.opts.address))
	return nil
}

// handshake sends the login lines and handles the lines of one read.
func (o *Observer) handshake(decoder *FrameDecoder) error {
	lines := []string{"PASS " + o.credential, "NICK " + o.nickname}
	for _, capability := range o.opts.capabilities {
		lines = append(lines, "CAP REQ :"+capability)
	}
	for _, line := range lines {
		if err := o.writeLine(line); err != nil {
			return NewConnectionError("failed to send login", err)
		}
	}

	buf := make([]byte, o.opts.readBufferSize)
	o.connMu.Lock()
	_ = o.conn.SetReadDeadline(time.Now().Add(o.opts.handshakeWait))
	n, readErr := o.conn.Read(buf)
	o.connMu.Unlock()

	if n > 0 {
		if err := o.handleLines(decoder.Feed(buf[:n])); err != nil {
			return err
		}
	}
	switch {
	case readErr == nil, isTimeout(readErr):
		return nil
	case errors.Is(readErr, io.EOF):
		return NewConnectionError("server closed the connection during login", readErr)
	default:
		return NewConnectionError("failed to read login response", readErr)
	}
}

// Stop shuts the observer down. Unless force is set it first waits, at the
// send interval's pace, until every queued command has been written. It
// then closes the connection and waits for both pumps to exit: without
// limit when graceful, for at most the stop timeout when forced, in which
// case ErrStopTimeout is returned on expiry. A forced Stop called while a
// graceful one is draining cuts the drain short and returns once that Stop
// finishes. The error that terminated the pumps, if any, is returned.
// Stopping a stopped observer does nothing.
func (o *Observer) Stop(force bool) error {
	if group := o.group.Load(); force && group != nil {
		group.force()
	}

	o.lifecycleMu.Lock()
	defer o.lifecycleMu.Unlock()

	if !o.active {
		return nil
	}
	o.active = false
	group := o.group.Load()

	if !force {
		o.waitForDrain(group)
		force = group.isForced()
	}

	o.running.Store(false)
	o.closeTransport()
	group.cancel()

	if force {
		timer := time.NewTimer(o.opts.stopTimeout)
		defer timer.Stop()
		select {
		case <-group.done:
		case <-timer.C:
			o.logger.Warn("Pumps did not stop in time", zap.Duration("timeout", o.opts.stopTimeout))
			return ErrStopTimeout
		}
	} else {
		<-group.done
	}

	o.logger.Info("Stopped", zap.Bool("forced", force), zap.Int("unsent", o.PendingCommands()))
	return group.err
}

// waitForDrain blocks until the outbound queue is empty, the pumps exit or
// a forced Stop arrives.
func (o *Observer) waitForDrain(group *pumpGroup) {
	wait := max(o.opts.sendInterval, minDrainPoll)
	for o.PendingCommands() > 0 {
		select {
		case <-group.done:
			return
		case <-group.forced:
			return
		case <-time.After(wait):
		}
	}
}

// IsRunning reports whether both pumps are running.
func (o *Observer) IsRunning() bool {
	group := o.group.Load()
	if group == nil || !o.running.Load() {
		return false
	}
	select {
	case <-group.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the pumps of the latest Start have
// exited, either through Stop or a connection failure. It returns nil
// before the first successful Start.
func (o *Observer) Done() <-chan struct{} {
	group := o.group.Load()
	if group == nil {
		return nil
	}
	return group.done
}

// Err returns the error that terminated the pumps of the latest Start, or
// nil while they run or after a clean stop.
func (o *Observer) Err() error {
	group := o.group.Load()
	if group == nil {
		return nil
	}
	select {
	case <-group.done:
		return group.err
	default:
		return nil
	}
}

// Subscribe registers handler for every subsequent event.
func (o *Observer) Subscribe(handler EventHandler) *Subscription {
	return o.dispatcher.Subscribe(handler)
}

// Unsubscribe removes a subscription. Unknown subscriptions are ignored.
func (o *Observer) Unsubscribe(sub *Subscription) {
	o.dispatcher.Unsubscribe(sub)
}

// Events returns the events received since the previous call, oldest first.
func (o *Observer) Events() []Event {
	return o.dispatcher.Drain()
}

// Enqueue validates cmds and appends them to the outbound queue. Nothing is
// queued if any command is invalid. Enqueue never blocks on the network and
// may be called before Start.
func (o *Observer) Enqueue(cmds ...Command) error {
	for _, cmd := range cmds {
		if err := cmd.Validate(); err != nil {
			return err
		}
	}
	o.outMu.Lock()
	o.outbound = append(o.outbound, cmds...)
	o.outMu.Unlock()
	return nil
}

// EnqueueCommand queues a command built from its parts.
func (o *Observer) EnqueueCommand(verb Verb, channel, body string) error {
	return o.Enqueue(NewCommand(verb, channel, body))
}

// PendingCommands returns the number of queued commands not yet written.
func (o *Observer) PendingCommands() int {
	o.outMu.Lock()
	defer o.outMu.Unlock()
	return len(o.outbound)
}

// inboundPump reads the connection until Stop or a failure.
func (o *Observer) inboundPump(ctx context.Context, decoder *FrameDecoder) error {
	buf := make([]byte, o.opts.readBufferSize)

	for o.running.Load() {
		if ctx.Err() != nil {
			// The outbound pump failed; tell subscribers why.
			if o.running.Load() {
				o.dispatcher.Dispatch(NewDisconnectEvent(context.Cause(ctx)))
			}
			return nil
		}

		o.connMu.Lock()
		conn := o.conn
		if conn == nil {
			o.connMu.Unlock()
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(o.opts.readTimeout))
		n, readErr := conn.Read(buf)
		o.connMu.Unlock()

		if n > 0 {
			if err := o.handleLines(decoder.Feed(buf[:n])); err != nil {
				if errors.Is(err, ErrAuthenticationFailed) {
					o.closeTransport()
				}
				return o.fail(err)
			}
		}

		if readErr != nil {
			if isTimeout(readErr) {
				continue
			}
			if !o.running.Load() || errors.Is(readErr, net.ErrClosed) {
				return nil
			}
			return o.fail(NewConnectionError("read failed", readErr))
		}

		sleepContext(ctx, o.opts.pollInterval)
	}
	return nil
}

// outboundPump writes queued commands, oldest first, spaced by at least the
// send interval.
func (o *Observer) outboundPump(ctx context.Context, lastSent time.Time) error {
	for o.running.Load() {
		if ctx.Err() != nil {
			return nil
		}

		if time.Since(lastSent) > o.opts.sendInterval {
			if cmd, ok := o.peekCommand(); ok {
				line := cmd.Format()
				if err := o.writeLine(line); err != nil {
					if !o.running.Load() || errors.Is(err, ErrTransportClosed) || errors.Is(err, net.ErrClosed) {
						return nil
					}
					o.logger.Error("Failed to send command", zap.String("line", redact(line)), zap.Error(err))
					return NewConnectionError("write failed", err)
				}
				// Stamp after the write so the spacing holds on the wire.
				lastSent = time.Now()
				o.popCommand()
				o.logger.Debug("Sent", zap.String("line", redact(line)))
				continue
			}
		}

		sleepContext(ctx, max(o.opts.sendInterval/2, minIdlePause))
	}
	return nil
}

// peekCommand returns the oldest queued command. It stays queued until
// popCommand so a graceful Stop also waits for the write in flight.
func (o *Observer) peekCommand() (Command, bool) {
	o.outMu.Lock()
	defer o.outMu.Unlock()
	if len(o.outbound) == 0 {
		return Command{}, false
	}
	return o.outbound[0], true
}

func (o *Observer) popCommand() {
	o.outMu.Lock()
	defer o.outMu.Unlock()
	if len(o.outbound) == 0 {
		return
	}
	o.outbound[0] = Command{}
	o.outbound = o.outbound[1:]
}

// handleLines answers keepalives, detects a rejected login and dispatches
// everything else as events.
func (o *Observer) handleLines(lines []string) error {
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, PingPrefix):
			if err := o.writeLine(PongPrefix + strings.TrimPrefix(line, PingPrefix)); err != nil {
				return NewConnectionError("failed to answer ping", err)
			}

		case line == AuthFailedLine:
			o.logger.Error("Login authentication failed")
			return &AuthenticationError{Nickname: o.nickname}

		default:
			event, err := ParseEvent(line)
			if err != nil {
				if !errors.Is(err, ErrMalformedCommand) {
					o.logger.Debug("Dropped unparsable line", zap.String("line", line), zap.Error(err))
					continue
				}
				o.logger.Warn("Malformed command", zap.Error(err))
			}
			o.dispatcher.Dispatch(event)
		}
	}
	return nil
}

// fail reports a pump failure to subscribers and returns err.
func (o *Observer) fail(err error) error {
	o.logger.Error("Connection lost", zap.Error(err))
	o.dispatcher.Dispatch(NewDisconnectEvent(err))
	return err
}

// writeLine writes one terminated line under the connection lock.
func (o *Observer) writeLine(line string) error {
	o.connMu.Lock()
	defer o.connMu.Unlock()
	if o.conn == nil {
		return ErrTransportClosed
	}
	_, err := io.WriteString(o.conn, line+LineTerminator)
	return err
}

// closeTransport closes the connection once and forgets it.
func (o *Observer) closeTransport() {
	o.connMu.Lock()
	conn := o.conn
	o.conn = nil
	o.connMu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			o.logger.Debug("Closing connection", zap.Error(err))
		}
	}
}

// sleepContext pauses for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// redact hides the credential of a PASS line.
func redact(line string) string {
	if strings.HasPrefix(line, "PASS ") {
		return "PASS ***"
	}
	return line
}
