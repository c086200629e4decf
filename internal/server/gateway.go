// Package server exposes the optional WebSocket gateway: an HTTP endpoint
// that bridges WebSocket connections into ordinary sessions, so browser
// clients speak the same command protocol as raw TCP clients.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// Gateway upgrades HTTP requests to WebSocket connections and registers them
// with the hub. Each text message from the socket is treated as one received
// chunk, matching the TCP wire contract.
type Gateway struct {
	hub      *Hub
	dispatch *Dispatcher
}

// NewGateway creates a Gateway feeding the given hub and dispatcher.
func NewGateway(hub *Hub, dispatch *Dispatcher) *Gateway {
	return &Gateway{hub: hub, dispatch: dispatch}
}

// ServeWS handles WebSocket upgrade requests. It validates the method,
// upgrades the connection, and registers the resulting session; the hub
// launches the session's pumps.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	session := NewSession(&wsTransport{conn: conn}, g.hub, g.dispatch)
	g.hub.Register(session)
}

// HealthHandler provides a simple health check endpoint that returns server
// status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Messenger server is running!")
}

// SetupRoutes configures and returns an HTTP ServeMux with the gateway
// routes: health check at / and the WebSocket endpoint at /ws.
func SetupRoutes(g *Gateway) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", g.ServeWS)
	return mux
}

// CreateHTTPServer creates and configures the gateway HTTP server with the
// specified address and handler, applying production timeout values.
func CreateHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ShutdownHTTPServer gracefully shuts down the gateway HTTP server, waiting
// for active connections to close or until the timeout is reached.
func ShutdownHTTPServer(server *http.Server, timeout time.Duration) error {
	log.Println("Shutting down WebSocket gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Gateway shutdown error: %v", err)
		return err
	}

	log.Println("Gateway shutdown completed")
	return nil
}
