// Package server implements the core of the messenger service: the TCP
// connection manager, per-session state machine, command protocol, and the
// hub that routes broadcast and direct messages between sessions.
//
// The implementation is organized into specialized files for configuration,
// hub management, sessions, protocol parsing, dispatching, and the optional
// WebSocket gateway to keep the codebase maintainable and testable.
package server
