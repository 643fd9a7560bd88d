package chatprotocol

import (
	"time"

	"go.uber.org/zap"
)

// Option configures an Observer.
type Option func(*options)

type options struct {
	transport      TransportKind
	address        string
	dial           Dialer
	capabilities   []string
	pollInterval   time.Duration
	sendInterval   time.Duration
	readTimeout    time.Duration
	dialTimeout    time.Duration
	handshakeWait  time.Duration
	stopTimeout    time.Duration
	readBufferSize int
	logger         *zap.Logger
}

func defaultOptions() options {
	return options{
		transport:      TransportTCP,
		capabilities:   DefaultCapabilities(),
		pollInterval:   DefaultPollInterval,
		sendInterval:   DefaultSendInterval,
		readTimeout:    DefaultReadTimeout,
		dialTimeout:    DefaultDialTimeout,
		handshakeWait:  DefaultHandshakeTimeout,
		stopTimeout:    DefaultStopTimeout,
		readBufferSize: DefaultReadBufferSize,
	}
}

// resolve fills the values derived from other options.
func (o *options) resolve() {
	if o.address == "" {
		o.address = o.transport.DefaultAddress()
	}
	if o.dial == nil {
		o.dial = o.transport.Dialer()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.readBufferSize <= 0 {
		o.readBufferSize = DefaultReadBufferSize
	}
	// Poll and send intervals may be zero; a zero timeout would spin.
	if o.readTimeout == 0 {
		o.readTimeout = DefaultReadTimeout
	}
	if o.dialTimeout == 0 {
		o.dialTimeout = DefaultDialTimeout
	}
	if o.handshakeWait == 0 {
		o.handshakeWait = DefaultHandshakeTimeout
	}
	if o.stopTimeout == 0 {
		o.stopTimeout = DefaultStopTimeout
	}
}

// WithTransport selects a built-in transport. The address defaults to the
// service endpoint for that transport unless WithAddress is also given.
func WithTransport(kind TransportKind) Option {
	return func(o *options) { o.transport = kind }
}

// WithAddress overrides the server address: host:port for TCP and TLS, a
// ws:// or wss:// URL for WebSocket.
func WithAddress(address string) Option {
	return func(o *options) { o.address = address }
}

// WithDialer replaces the transport dialer, e.g. with an in-memory one.
func WithDialer(dial Dialer) Option {
	return func(o *options) { o.dial = dial }
}

// WithCapabilities replaces the capabilities requested during the handshake.
func WithCapabilities(capabilities ...string) Option {
	return func(o *options) { o.capabilities = capabilities }
}

// WithPollInterval sets the inbound pump's pause between reads.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = nonNegative(d) }
}

// WithSendInterval sets the minimum time between outbound commands.
func WithSendInterval(d time.Duration) Option {
	return func(o *options) { o.sendInterval = nonNegative(d) }
}

// WithReadTimeout bounds a single inbound read.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) { o.readTimeout = nonNegative(d) }
}

// WithDialTimeout bounds establishing the transport.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = nonNegative(d) }
}

// WithHandshakeTimeout bounds the synchronous read performed by Start.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) { o.handshakeWait = nonNegative(d) }
}

// WithStopTimeout bounds the pump join on a forced stop.
func WithStopTimeout(d time.Duration) Option {
	return func(o *options) { o.stopTimeout = nonNegative(d) }
}

// WithReadBufferSize sets the size of a single inbound read.
func WithReadBufferSize(n int) Option {
	return func(o *options) { o.readBufferSize = n }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
