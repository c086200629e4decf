// Package server implements the TCP connection manager: the listener, the
// accept loop, and session construction.
package server

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
)

// Server accepts TCP connections and hands each one to the hub as a new
// session. It runs until Shutdown closes the listener.
type Server struct {
	hub      *Hub
	dispatch *Dispatcher

	mu sync.Mutex
	ln net.Listener
}

// NewServer creates a Server that registers accepted connections with hub and
// dispatches their commands through dispatch.
func NewServer(hub *Hub, dispatch *Dispatcher) *Server {
	return &Server{hub: hub, dispatch: dispatch}
}

// Listen binds the listener on addr. A bind failure is fatal to the caller:
// there is no retry.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	log.Printf("Server listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound listener address. It is only valid after Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until the listener is closed. Each accepted
// connection becomes a Session registered with the hub, which launches its
// receive and write pumps.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("serve called before listen")
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		session := NewSession(&tcpTransport{conn: conn}, s.hub, s.dispatch)
		s.hub.Register(session)
	}
}

// ListenAndServe binds addr and then serves until shutdown.
func (s *Server) ListenAndServe(addr string) error {
	if err := s.Listen(addr); err != nil {
		return err
	}
	return s.Serve()
}

// Shutdown closes the listener, ending the accept loop. Live sessions are
// torn down by the hub's own shutdown.
func (s *Server) Shutdown() {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	if ln != nil {
		if err := ln.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing listener: %v", err)
		}
	}
}
