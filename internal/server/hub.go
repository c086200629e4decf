// Package server coordinates session registration, message routing, and
// connection cleanup for the messenger service via the Hub type.
package server

import (
	"context"
	"log"
	"sync"
	"time"
)

// Hub owns the registry of live sessions and routes broadcast and direct
// messages to them. Membership changes go through the register/unregister
// channels serviced by Run; routing reads a snapshot under the mutex so that
// a session tearing down mid-broadcast is simply skipped.
type Hub struct {
	sessions   map[*Session]bool
	register   chan *Session
	unregister chan *Session
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates and initializes a new Hub instance with an empty registry.
// The returned Hub is ready to manage sessions once Run is started.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		sessions:   make(map[*Session]bool),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register inserts a session into the registry. The hub launches the
// session's read and write pumps once the registration is processed.
func (h *Hub) Register(s *Session) {
	h.register <- s
}

// Run starts the hub's main event loop, handling session registration and
// unregistration. This method should be called in a separate goroutine as it
// runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownSessions()
			return

		case session := <-h.register:
			if session == nil {
				log.Printf("Received nil session registration; skipping")
				continue
			}

			h.mutex.Lock()
			session.closed = false
			h.sessions[session] = true
			sessionCount := len(h.sessions)
			h.mutex.Unlock()
			log.Printf("New client connected: %s. Total sessions: %d", session.addr, sessionCount)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				session.writePump()
			}()
			go func() {
				defer h.wg.Done()
				session.readPump()
			}()

		case session := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.sessions[session]; ok {
				delete(h.sessions, session)
				session.closed = true
				sessionCount := len(h.sessions)
				h.mutex.Unlock()
				// Release the pumps and any blocked deliverers after
				// dropping the lock.
				close(session.done)
				log.Printf("Session %s removed. Total sessions: %d", session.Identity(), sessionCount)
			} else {
				// Removing an absent session is a no-op; teardown races
				// are tolerated.
				h.mutex.Unlock()
			}
		}
	}
}

// snapshot returns the current registry members. Routing iterates the
// snapshot without holding the lock, so membership may change before a
// fan-out completes; deliveries to removed sessions are skipped.
func (h *Hub) snapshot() []*Session {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	sessions := make([]*Session, 0, len(h.sessions))
	for session := range h.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// Broadcast delivers payload to every authenticated session except the
// sender. It runs in the sender's receive loop, so a slow recipient stalls
// only the sender's command.
func (h *Hub) Broadcast(sender *Session, payload []byte) {
	for _, session := range h.snapshot() {
		if session == sender {
			continue
		}
		if !session.Authenticated() {
			continue
		}
		session.deliver(payload)
	}
}

// SendDirect delivers payload to the first authenticated session whose login
// equals recipient and reports whether any delivery happened.
func (h *Hub) SendDirect(recipient string, payload []byte) bool {
	for _, session := range h.snapshot() {
		if !session.Authenticated() || session.Login() != recipient {
			continue
		}
		if session.deliver(payload) {
			return true
		}
	}
	return false
}

// shutdownSessions closes all active connections so their receive loops exit.
func (h *Hub) shutdownSessions() {
	log.Println("Shutting down all client sessions...")

	sessions := h.snapshot()
	for _, session := range sessions {
		session.closeTransport()
	}

	log.Printf("Closed %d client sessions", len(sessions))
}

// Shutdown initiates graceful shutdown of the hub and waits for all session
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
