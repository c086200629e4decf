package server

import (
	"testing"
	"time"
)

func sessionCount(h *Hub) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.sessions)
}

// TestNewHub verifies that NewHub returns a properly initialized Hub with an
// empty registry.
func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if got := sessionCount(hub); got != 0 {
		t.Errorf("Expected empty registry, got %d sessions", got)
	}
}

// TestSessionRegistration verifies that registered sessions appear in the
// registry and leave it when their connection closes.
func TestSessionRegistration(t *testing.T) {
	hub := newTestHub(t)
	dispatch := newTestDispatcher(t, hub)

	_, tr := startSession(t, hub, dispatch)
	if got := sessionCount(hub); got != 1 {
		t.Fatalf("Expected 1 session after registration, got %d", got)
	}

	_ = tr.Close()

	deadline := time.Now().Add(time.Second)
	for sessionCount(hub) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for session removal")
		}
		time.Sleep(time.Millisecond)
	}
}

// TestUnregisterIsIdempotent verifies that removing an already-removed
// session is a no-op.
func TestUnregisterIsIdempotent(t *testing.T) {
	hub := newTestHub(t)
	dispatch := newTestDispatcher(t, hub)

	session, tr := startSession(t, hub, dispatch)
	startSession(t, hub, dispatch)

	_ = tr.Close()
	deadline := time.Now().Add(time.Second)
	for sessionCount(hub) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for session removal")
		}
		time.Sleep(time.Millisecond)
	}

	// A second unregister for the same session must change nothing.
	hub.unregister <- session
	time.Sleep(10 * time.Millisecond)
	if got := sessionCount(hub); got != 1 {
		t.Errorf("Expected registry unchanged after duplicate unregister, got %d sessions", got)
	}
}

// TestDeliveryToRemovedSessionIsSkipped verifies that routing to a session
// that is tearing down reports a skipped delivery instead of blocking.
func TestDeliveryToRemovedSessionIsSkipped(t *testing.T) {
	hub := newTestHub(t)
	dispatch := newTestDispatcher(t, hub)

	session, tr := startSession(t, hub, dispatch)
	authenticate(t, tr, "alice", "pw")

	_ = tr.Close()
	deadline := time.Now().Add(time.Second)
	for sessionCount(hub) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for session removal")
		}
		time.Sleep(time.Millisecond)
	}

	if session.deliver([]byte("late message")) {
		t.Error("Expected delivery to a removed session to be skipped")
	}
	if hub.SendDirect("alice", []byte("late message")) {
		t.Error("Expected no delivery to a removed recipient")
	}
}

// TestHubShutdown verifies that Shutdown closes all live sessions and
// completes within the timeout.
func TestHubShutdown(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	dispatch := newTestDispatcher(t, hub)

	_, _ = startSession(t, hub, dispatch)
	_, _ = startSession(t, hub, dispatch)

	if err := hub.Shutdown(time.Second); err != nil {
		t.Errorf("Hub shutdown failed: %v", err)
	}
}

// TestConcurrentBroadcasts verifies that multiple goroutines can fan out
// broadcasts simultaneously without panics or deadlocks.
func TestConcurrentBroadcasts(t *testing.T) {
	hub := newTestHub(t)
	dispatch := newTestDispatcher(t, hub)

	sender, trSender := startSession(t, hub, dispatch)
	_, trOther := startSession(t, hub, dispatch)
	authenticate(t, trSender, "alice", "pw")
	authenticate(t, trOther, "bob", "pw")

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(id int) {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Goroutine %d panicked: %v", id, r)
				}
				done <- true
			}()
			hub.Broadcast(sender, []byte("concurrent message"))
		}(i)
	}

	received := 0
	for received < 10 {
		if got := trOther.awaitWrite(t); got != "concurrent message" {
			t.Fatalf("Unexpected broadcast payload %q", got)
		}
		received++
	}

	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Concurrent broadcast test timed out")
		}
	}
}
