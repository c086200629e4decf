// Package server parses raw command text into structured commands. The
// grammar is purely structural: prefix and substring tests evaluated in a
// fixed precedence order against the raw chunk.
package server

import "strings"

type commandKind int

const (
	cmdHelp commandKind = iota
	cmdRegister
	cmdLogin
	cmdBroadcast
	cmdDirect
	cmdUnknown
)

type command struct {
	kind      commandKind
	payload   string
	recipient string
}

// parseCommand classifies one received chunk. The precedence order (help,
// register, login, "all:" prefix, first-":" split, fallback) is part of the
// wire contract: a direct-message body containing ":" before the split point
// changes the parse on purpose.
func parseCommand(authenticated bool, msg string) command {
	switch {
	case msg == "help":
		return command{kind: cmdHelp}
	case !authenticated && strings.HasPrefix(msg, "register"):
		return command{kind: cmdRegister, payload: msg[len("register"):]}
	case !authenticated && strings.HasPrefix(msg, "login"):
		return command{kind: cmdLogin, payload: msg[len("login"):]}
	case authenticated && strings.HasPrefix(msg, "all:"):
		return command{kind: cmdBroadcast, payload: msg[len("all:"):]}
	case authenticated && strings.Contains(msg, ":"):
		recipient, body, _ := strings.Cut(msg, ":")
		return command{kind: cmdDirect, recipient: recipient, payload: body}
	default:
		return command{kind: cmdUnknown}
	}
}

// splitRegisterPayload extracts (login, password, passwordConfirm) from the
// text following the "register" keyword. The trailing field keeps any
// remaining spaces.
func splitRegisterPayload(payload string) (login, password, confirm string, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(payload), " ", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// splitLoginPayload extracts (login, password) from the text following the
// "login" keyword. The password keeps any spaces it contains.
func splitLoginPayload(payload string) (login, password string, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(payload), " ", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
