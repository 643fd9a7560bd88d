package chatprotocol

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// closeGracePeriod bounds writing the close frame on Close.
const closeGracePeriod = time.Second

// webSocketTransport presents a WebSocket connection as a byte stream. The
// service puts one or more CRLF-terminated lines in each text frame, so the
// frames are simply concatenated and the FrameDecoder does the rest.
//
// A gorilla connection cannot be read again after a read deadline fires, so
// frames are received by a dedicated goroutine and Read applies its deadline
// to the hand-off channel instead.
type webSocketTransport struct {
	conn *websocket.Conn

	frames  chan []byte
	readErr error // set before frames is closed
	done    chan struct{}

	closeOnce sync.Once

	// Only touched by the goroutine holding the observer's connection lock.
	pending  []byte
	deadline time.Time
}

// DialWebSocket opens a WebSocket transport to a ws:// or wss:// URL.
func DialWebSocket(ctx context.Context, address string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, address, nil)
	if err != nil {
		return nil, err
	}
	return newWebSocketTransport(conn), nil
}

func newWebSocketTransport(conn *websocket.Conn) *webSocketTransport {
	t := &webSocketTransport{
		conn:   conn,
		frames: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	go t.readFrames()
	return t
}

func (t *webSocketTransport) readFrames() {
	defer close(t.frames)
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.readErr = err
			return
		}
		select {
		case t.frames <- data:
		case <-t.done:
			return
		}
	}
}

// Read implements io.Reader.
func (t *webSocketTransport) Read(p []byte) (int, error) {
	select {
	case <-t.done:
		return 0, net.ErrClosed
	default:
	}

	if len(t.pending) == 0 {
		var expired <-chan time.Time
		if !t.deadline.IsZero() {
			wait := time.Until(t.deadline)
			if wait <= 0 {
				return 0, os.ErrDeadlineExceeded
			}
			timer := time.NewTimer(wait)
			defer timer.Stop()
			expired = timer.C
		}

		select {
		case data, ok := <-t.frames:
			if !ok {
				if t.readErr != nil && !websocket.IsCloseError(t.readErr, websocket.CloseNormalClosure) {
					return 0, t.readErr
				}
				return 0, io.EOF
			}
			t.pending = data
		case <-expired:
			return 0, os.ErrDeadlineExceeded
		case <-t.done:
			return 0, net.ErrClosed
		}
	}

	n := copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

// Write sends p as one text frame.
func (t *webSocketTransport) Write(p []byte) (int, error) {
	if err := t.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// SetReadDeadline implements Transport.
func (t *webSocketTransport) SetReadDeadline(deadline time.Time) error {
	t.deadline = deadline
	return nil
}

// Close sends a close frame and closes the connection.
func (t *webSocketTransport) Close() error {
	err := net.ErrClosed
	t.closeOnce.Do(func() {
		close(t.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		err = t.conn.Close()
	})
	return err
}
