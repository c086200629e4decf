package server

import (
	"io"
	"sync"
	"testing"
	"time"
)

// testTransport is an in-memory transport: tests feed inbound chunks through
// the reads channel and observe outbound chunks on the wrote channel.
type testTransport struct {
	reads chan []byte
	wrote chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newTestTransport() *testTransport {
	return &testTransport{
		reads:  make(chan []byte),
		wrote:  make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (t *testTransport) ReadChunk(buf []byte) (int, error) {
	select {
	case data := <-t.reads:
		return copy(buf, data), nil
	case <-t.closed:
		return 0, io.EOF
	}
}

func (t *testTransport) WriteChunk(p []byte) error {
	msg := append([]byte(nil), p...)
	select {
	case t.wrote <- msg:
		return nil
	case <-t.closed:
		return io.ErrClosedPipe
	}
}

func (t *testTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

func (t *testTransport) RemoteAddr() string {
	return "pipe:test"
}

// sendChunk feeds one inbound chunk to the session's receive loop.
func (t *testTransport) sendChunk(tb testing.TB, msg string) {
	tb.Helper()
	select {
	case t.reads <- []byte(msg):
	case <-time.After(time.Second):
		tb.Fatalf("Timed out sending chunk %q", msg)
	}
}

// awaitWrite returns the next outbound chunk, failing the test on timeout.
func (t *testTransport) awaitWrite(tb testing.TB) string {
	tb.Helper()
	select {
	case msg := <-t.wrote:
		return string(msg)
	case <-time.After(time.Second):
		tb.Fatal("Timed out waiting for outbound chunk")
		return ""
	}
}

// assertSilent verifies that no outbound chunk arrives within the window.
func (t *testTransport) assertSilent(tb testing.TB) {
	tb.Helper()
	select {
	case msg := <-t.wrote:
		tb.Errorf("Expected no outbound chunk but received %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

// startSession registers a session backed by a fresh testTransport with the
// running hub and waits until the registration is processed.
func startSession(tb testing.TB, hub *Hub, dispatch *Dispatcher) (*Session, *testTransport) {
	tb.Helper()

	tr := newTestTransport()
	session := NewSession(tr, hub, dispatch)
	hub.Register(session)

	deadline := time.Now().Add(time.Second)
	for {
		hub.mutex.RLock()
		_, registered := hub.sessions[session]
		hub.mutex.RUnlock()
		if registered {
			return session, tr
		}
		if time.Now().After(deadline) {
			tb.Fatal("Timed out waiting for session registration")
		}
		time.Sleep(time.Millisecond)
	}
}

// authenticate runs the register+login flow for a fresh session and asserts
// both protocol responses.
func authenticate(tb testing.TB, tr *testTransport, login, password string) {
	tb.Helper()

	tr.sendChunk(tb, "register "+login+" "+password+" "+password)
	if got := tr.awaitWrite(tb); got != responseRegistered {
		tb.Fatalf("Expected registration response %q, got %q", responseRegistered, got)
	}

	tr.sendChunk(tb, "login "+login+" "+password)
	if got := tr.awaitWrite(tb); got != responseAuthenticated {
		tb.Fatalf("Expected authentication response %q, got %q", responseAuthenticated, got)
	}
}
