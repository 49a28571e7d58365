// Package sshutil opens SSH connections to GPU hosts using the same settings
// the user's ssh client would pick up: ~/.ssh/config aliases, the agent,
// default identity files and known_hosts.
package sshutil

import (
	stderrors "errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/gputweak/gputweak/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Client is an open SSH connection plus the names it was reached by.
type Client struct {
	*ssh.Client
	Host    string // alias or host string as given by the user
	Address string // resolved host:port
}

// WarningHandler receives non-fatal warnings such as an ssh config Match
// block hiding a host. Nil sends them to the standard logger.
var WarningHandler func(message string)

func warn(message string) {
	if WarningHandler != nil {
		WarningHandler(message)
		return
	}
	log.Printf("Warning: %s", message)
}

// Dial connects to host, which may be an ssh config alias, a bare hostname,
// user@host, host:port or user@host:port.
func Dial(host string, timeout time.Duration) (*Client, error) {
	settings := resolveSettings(host, defaultConfigPath())

	config, err := clientConfig(settings)
	if err != nil {
		var gtErr *errors.Error
		if stderrors.As(err, &gtErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't set up SSH for '%s'", host),
			"Check your keys are loaded: ssh-add -l")
	}

	address := settings.address()
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			dialSuggestion(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()

		var mismatch *HostKeyMismatchError
		if stderrors.As(err, &mismatch) {
			return nil, errors.New(errors.ErrSSH, mismatch.Error(), mismatch.Suggestion())
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			handshakeSuggestion(err, settings.encryptedKeys))
	}

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    host,
		Address: address,
	}, nil
}

// Close closes the connection. Closing a zero Client is a no-op.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
