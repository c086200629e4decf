// Package server manages individual client sessions, handling read/write
// pumps, authentication state, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log"
	"sync"
)

// Session represents one live client connection. It owns the connection's
// output handle exclusively, tracks the authentication state machine, and
// carries the peer identity used in logs before authentication.
type Session struct {
	conn     transport
	send     chan []byte
	done     chan struct{}
	hub      *Hub
	dispatch *Dispatcher
	addr     string
	closed   bool

	mu            sync.RWMutex
	login         string
	authenticated bool

	closeOnce      sync.Once
	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
}

// NewSession creates a new Session for the given transport. The session's
// send channel is buffered so that delivery to a responsive recipient does
// not stall the sender; a full buffer blocks the delivering command until the
// write pump drains it.
func NewSession(conn transport, hub *Hub, dispatch *Dispatcher) *Session {
	cfg := currentConfig()

	var limiter *rateLimiter
	if cfg.RateLimit.Burst > 0 {
		limiter = newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval)
	}

	addr := ""
	if conn != nil {
		addr = conn.RemoteAddr()
	}

	return &Session{
		conn:           conn,
		send:           make(chan []byte, 256),
		done:           make(chan struct{}),
		hub:            hub,
		dispatch:       dispatch,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    limiter,
		rateLimit:      cfg.RateLimit,
	}
}

// Login returns the authenticated login, or the empty string while the
// session is still unknown.
func (s *Session) Login() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.login
}

// Authenticated reports whether the session has completed a successful login.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Identity returns the login when authenticated, falling back to the peer
// address for unknown sessions. It is the identifier used in log lines.
func (s *Session) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.login != "" {
		return s.login
	}
	return s.addr
}

// setAuthenticated performs the only state transition the session state
// machine has: Unknown to Authenticated with a non-empty login.
func (s *Session) setAuthenticated(login string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.login = login
	s.authenticated = true
}

// deliver hands message to the session's write pump. It blocks while the
// outbound buffer is full, so a slow recipient stalls only the delivering
// command. Delivery to a session that is tearing down is skipped and reported
// as false.
func (s *Session) deliver(message []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- message:
		return true
	case <-s.done:
		return false
	case <-s.hub.ctx.Done():
		return false
	}
}

// respond sends a protocol response string back to this session's client.
func (s *Session) respond(text string) {
	s.deliver([]byte(text))
}

// closeTransport closes the connection exactly once; both pumps call it on
// their exit paths.
func (s *Session) closeTransport() {
	s.closeOnce.Do(func() {
		if s.conn == nil {
			return
		}
		if err := s.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error closing connection from %s: %v", s.addr, err)
			}
		}
	})
}

// handleReadError logs the read failure that ended the receive loop, using
// the login when authenticated and the peer address otherwise.
func (s *Session) handleReadError(err error) {
	if errors.Is(err, io.EOF) || isConnectionReset(err) {
		log.Printf("Client %s disconnected: %v", s.Identity(), err)
		return
	}
	log.Printf("Connection error from %s: %v", s.Identity(), err)
}

// checkRateLimit verifies if the session has exceeded its message budget and
// returns true if the message should be processed. Sessions without a
// limiter are never throttled.
func (s *Session) checkRateLimit() bool {
	if s.rateLimiter != nil && !s.rateLimiter.allow() {
		log.Printf("Rate limit exceeded for %s (%d messages per %s); discarding message", s.Identity(), s.rateLimit.Burst, s.rateLimit.RefillInterval)
		return false
	}
	return true
}

// readPump drives the receive loop: each bounded chunk read from the
// connection is decoded as text and dispatched as exactly one command. The
// loop ends on the first read error, and the deferred unregister guarantees
// the session leaves the registry on every exit path.
func (s *Session) readPump() {
	defer func() {
		// During hub shutdown the run loop is gone; the registry dies with it.
		select {
		case s.hub.unregister <- s:
		case <-s.hub.ctx.Done():
		}
		s.closeTransport()
	}()

	buf := make([]byte, s.maxMessageSize)
	for {
		n, err := s.conn.ReadChunk(buf)
		if err != nil {
			s.handleReadError(err)
			return
		}

		message := string(buf[:n])
		if message == "" {
			continue
		}

		if !s.checkRateLimit() {
			continue
		}

		s.dispatch.Dispatch(s, message)
	}
}

// writePump drains the outbound buffer into the connection until the session
// is torn down or a write fails.
func (s *Session) writePump() {
	defer s.closeTransport()

	for {
		select {
		case message := <-s.send:
			if err := s.conn.WriteChunk(message); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error writing to %s: %v", s.Identity(), err)
				}
				return
			}
		case <-s.done:
			return
		case <-s.hub.ctx.Done():
			return
		}
	}
}
