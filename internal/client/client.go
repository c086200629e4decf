// Package client implements the interactive messenger client: it forwards
// console input to the server, prints everything the server sends back, and
// reconnects when an established connection is lost.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"

	"github.com/fatih/color"
)

const readBufferSize = 1024

var incoming = color.New(color.FgCyan)

// Client connects to a messenger server and shuttles text between the
// console and the connection.
type Client struct {
	addr  string
	input io.Reader
	out   io.Writer
}

// New creates a Client for the server at addr, reading commands from input
// and printing server messages to out.
func New(addr string, input io.Reader, out io.Writer) *Client {
	return &Client{addr: addr, input: input, out: out}
}

// Run connects and serves the console until the user sends "exit" or a fatal
// error occurs. A lost connection triggers a reconnect attempt; a failed
// connect is fatal and is returned to the caller for orderly shutdown.
func (c *Client) Run() error {
	lines := make(chan string)
	go c.readInput(lines)

	log.Println("Trying to connect to server...")
	for {
		reconnect, err := c.session(lines)
		if err != nil {
			return err
		}
		if !reconnect {
			return nil
		}
		log.Println("Trying to reconnect to server...")
	}
}

// readInput forwards console lines to the session loop and closes the
// channel when the console reaches EOF.
func (c *Client) readInput(lines chan<- string) {
	scanner := bufio.NewScanner(c.input)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
	close(lines)
}

// session runs one connection. It reports reconnect=true when the connection
// was lost and should be re-established, and a non-nil error only for fatal
// conditions.
func (c *Client) session(lines <-chan string) (reconnect bool, err error) {
	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		return false, fmt.Errorf("connect to %s: %w", c.addr, err)
	}
	defer conn.Close()
	log.Println("Connected")

	connErr := make(chan error, 1)
	go c.listen(conn, connErr)

	for {
		select {
		case line, ok := <-lines:
			if !ok || line == "exit" {
				return false, nil
			}
			if line == "" {
				continue
			}
			if _, err := conn.Write([]byte(line)); err != nil {
				return isConnectionLost(err), connFatal(err)
			}
		case err := <-connErr:
			return isConnectionLost(err), connFatal(err)
		}
	}
}

// listen prints server messages until the connection fails.
func (c *Client) listen(conn net.Conn, connErr chan<- error) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			connErr <- err
			return
		}
		if n > 0 {
			_, _ = incoming.Fprintln(c.out, string(buf[:n]))
		}
	}
}

// isConnectionLost reports whether err means the server went away, which is
// recoverable by reconnecting.
func isConnectionLost(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "connection reset by peer") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "use of closed network connection")
}

// connFatal maps a connection error to the session result: recoverable
// errors are swallowed so the caller reconnects, anything else propagates.
func connFatal(err error) error {
	if isConnectionLost(err) {
		return nil
	}
	return err
}
