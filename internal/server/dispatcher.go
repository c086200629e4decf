// Package server dispatches parsed commands against the session state
// machine, driving the credential flow and the routing engine.
package server

import (
	"errors"
	"log"

	"github.com/Trylar/go-messenger/internal/store"
)

// Fixed protocol responses. These strings are part of the wire contract.
const (
	responseBadCommand = "Incorrect format of message or you don't have enough rights. " +
		"Send 'help' message for information"
	responsePasswordMismatch = "Passwords don't match"
	responseLoginTaken       = "Error: login already in use"
	responseRegistered       = "Successful registration. Now you can log in"
	responseUnknownLogin     = "Error: unknown login"
	responseAuthenticated    = "Successful authentication"
	responseWrongPassword    = "Incorrect password"
	responseRecipientOffline = "User with this login doesn't exist or is offline"
	responseStoreErrorPrefix = "Error occurred: "
)

// Dispatcher routes parsed commands to their handlers. It holds the hub for
// message routing and the credential store for the register/login flow.
type Dispatcher struct {
	hub         *Hub
	credentials store.CredentialStore
	helpMessage string
}

// NewDispatcher creates a Dispatcher delivering through hub and verifying
// credentials against credentials. The help message is served verbatim in
// response to the "help" command.
func NewDispatcher(hub *Hub, credentials store.CredentialStore, helpMessage string) *Dispatcher {
	return &Dispatcher{
		hub:         hub,
		credentials: credentials,
		helpMessage: helpMessage,
	}
}

// Dispatch handles one received command on behalf of session. Command
// failures answer the client and never tear the session down; only the
// receive loop ends a session.
func (d *Dispatcher) Dispatch(session *Session, msg string) {
	cmd := parseCommand(session.Authenticated(), msg)

	switch cmd.kind {
	case cmdHelp:
		session.respond(d.helpMessage)
	case cmdRegister:
		d.handleRegister(session, cmd.payload)
	case cmdLogin:
		d.handleLogin(session, cmd.payload)
	case cmdBroadcast:
		d.handleBroadcast(session, cmd.payload)
	case cmdDirect:
		d.handleDirect(session, cmd.recipient, cmd.payload)
	default:
		d.rejectCommand(session)
	}
}

// rejectCommand answers a malformed or unauthorized command with the fixed
// error response.
func (d *Dispatcher) rejectCommand(session *Session) {
	log.Printf("%s: %s", session.Identity(), responseBadCommand)
	session.respond(responseBadCommand)
}

// handleRegister creates a new credential record. The store enforces login
// uniqueness, so a registration racing another one for the same login loses
// cleanly with a duplicate error.
func (d *Dispatcher) handleRegister(session *Session, payload string) {
	login, password, confirm, ok := splitRegisterPayload(payload)
	if !ok {
		d.rejectCommand(session)
		return
	}

	if password != confirm {
		log.Printf("%s: %s", session.addr, responsePasswordMismatch)
		session.respond(responsePasswordMismatch)
		return
	}

	_, err := d.credentials.FindByLogin(login)
	switch {
	case err == nil:
		log.Printf("%s: %s: %s", session.addr, responseLoginTaken, login)
		session.respond(responseLoginTaken)
	case errors.Is(err, store.ErrUnknownLogin):
		d.insertCredentials(session, login, password)
	default:
		d.reportStoreError(session, err)
	}
}

func (d *Dispatcher) insertCredentials(session *Session, login, password string) {
	hash, err := store.HashPassword(password)
	if err != nil {
		d.reportStoreError(session, err)
		return
	}

	if err := d.credentials.Insert(login, hash); err != nil {
		if errors.Is(err, store.ErrDuplicateLogin) {
			log.Printf("%s: %s: %s", session.addr, responseLoginTaken, login)
			session.respond(responseLoginTaken)
			return
		}
		d.reportStoreError(session, err)
		return
	}

	log.Printf("%s: %s: %s", session.addr, responseRegistered, login)
	session.respond(responseRegistered)
}

// reportStoreError logs a credential store failure and surfaces it to the
// requesting user; the session itself stays up.
func (d *Dispatcher) reportStoreError(session *Session, err error) {
	log.Printf("Credential store error for %s: %v", session.Identity(), err)
	session.respond(responseStoreErrorPrefix + err.Error())
}

// handleLogin verifies the supplied credentials and, on success, performs the
// session's only state transition.
func (d *Dispatcher) handleLogin(session *Session, payload string) {
	login, password, ok := splitLoginPayload(payload)
	if !ok {
		d.rejectCommand(session)
		return
	}

	hash, err := d.credentials.FindByLogin(login)
	if errors.Is(err, store.ErrUnknownLogin) {
		log.Printf("%s: %s: %s", session.addr, responseUnknownLogin, login)
		session.respond(responseUnknownLogin)
		return
	}
	if err != nil {
		d.reportStoreError(session, err)
		return
	}

	if !store.VerifyPassword(password, hash) {
		log.Printf("%s: %s", session.addr, responseWrongPassword)
		session.respond(responseWrongPassword)
		return
	}

	session.setAuthenticated(login)
	log.Printf("%s %s: %s", session.addr, responseAuthenticated, login)
	session.respond(responseAuthenticated)
}

// handleBroadcast fans the message out to every authenticated session except
// the sender. The sender gets no acknowledgment.
func (d *Dispatcher) handleBroadcast(session *Session, payload string) {
	message := session.Login() + "->all:" + payload
	d.hub.Broadcast(session, []byte(message))
}

// handleDirect delivers the message to the recipient's session, telling the
// sender when no authenticated session carries that login.
func (d *Dispatcher) handleDirect(session *Session, recipient, body string) {
	message := session.Login() + "->" + recipient + ":" + body
	if !d.hub.SendDirect(recipient, []byte(message)) {
		log.Printf("%s: %s", responseRecipientOffline, recipient)
		session.respond(responseRecipientOffline)
	}
}
