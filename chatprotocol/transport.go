package chatprotocol

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// Transport is the byte stream the observer speaks the protocol over.
// net.Conn satisfies it.
type Transport interface {
	io.ReadWriteCloser

	// SetReadDeadline bounds the next Read. A Read that hits the deadline
	// returns an error whose Timeout method reports true.
	SetReadDeadline(t time.Time) error
}

// Dialer opens a transport to address.
type Dialer func(ctx context.Context, address string) (Transport, error)

// TransportKind names a built-in transport.
type TransportKind string

const (
	// TransportTCP is plain IRC over TCP.
	TransportTCP TransportKind = "tcp"
	// TransportTLS is IRC over TLS.
	TransportTLS TransportKind = "tls"
	// TransportWebSocket is IRC lines carried in WebSocket text frames.
	TransportWebSocket TransportKind = "websocket"
)

// ParseTransportKind converts a configuration value to a TransportKind.
func ParseTransportKind(s string) (TransportKind, error) {
	switch kind := TransportKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case TransportTCP, TransportTLS, TransportWebSocket:
		return kind, nil
	case "", "plain":
		return TransportTCP, nil
	case "ws", "wss":
		return TransportWebSocket, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTransport, s)
	}
}

// DefaultAddress returns the service endpoint for kind.
func (k TransportKind) DefaultAddress() string {
	switch k {
	case TransportTLS:
		return DefaultTLSAddress
	case TransportWebSocket:
		return DefaultWebSocketAddress
	default:
		return DefaultTCPAddress
	}
}

// Dialer returns the built-in dialer for kind.
func (k TransportKind) Dialer() Dialer {
	switch k {
	case TransportTLS:
		return DialTLS
	case TransportWebSocket:
		return DialWebSocket
	default:
		return DialTCP
	}
}

// DialTCP opens a plain TCP transport.
func DialTCP(ctx context.Context, address string) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// DialTLS opens a TLS transport, verifying the server against the host part
// of address.
func DialTLS(ctx context.Context, address string) (Transport, error) {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}
	d := tls.Dialer{Config: &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// isTimeout reports whether err is a deadline expiry.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
