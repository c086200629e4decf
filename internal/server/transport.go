// Package server abstracts the per-connection byte stream so that sessions
// work identically over raw TCP and over the WebSocket gateway.
package server

import (
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// transport is a single bidirectional stream carrying one client connection.
// ReadChunk fills buf with at most one bounded chunk; the chunk is treated as
// exactly one command by the receive loop. WriteChunk returns only after the
// bytes have been handed to the underlying connection, which is what gives
// delivery its back-pressure.
type transport interface {
	ReadChunk(buf []byte) (int, error)
	WriteChunk(p []byte) error
	Close() error
	RemoteAddr() string
}

type tcpTransport struct {
	conn net.Conn
}

func (t *tcpTransport) ReadChunk(buf []byte) (int, error) {
	return t.conn.Read(buf)
}

func (t *tcpTransport) WriteChunk(p []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	for len(p) > 0 {
		n, err := t.conn.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

func (t *tcpTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// wsTransport adapts a WebSocket connection to the chunk contract: each text
// message is one received chunk, oversized messages are truncated to the
// read bound.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadChunk(buf []byte) (int, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return 0, err
	}
	n := copy(buf, data)
	return n, nil
}

func (t *wsTransport) WriteChunk(p []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, p)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

// isConnectionReset reports whether err indicates the peer dropped the
// connection rather than a protocol or I/O fault on our side.
func isConnectionReset(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "connection reset by peer") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "use of closed network connection") ||
		websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseAbnormalClosure)
}
