package sshutil

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gputweak/gputweak/internal/errors"
	"golang.org/x/crypto/ssh"
)

// ExecContext runs cmd in a new session and returns its output. A non-zero
// exit is reported through exitCode with a nil error. When ctx ends first
// the remote process is signalled, the session closed, and ctx.Err returned.
func (c *Client) ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to open an SSH session on "+c.Host,
			"The connection may have dropped. Try again.")
	}
	defer session.Close()

	var outBuf, errBuf bytes.Buffer
	session.Stdout = &outBuf
	session.Stderr = &errBuf

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return nil, nil, -1, ctx.Err()
	case runErr := <-done:
		if runErr == nil {
			return outBuf.Bytes(), errBuf.Bytes(), 0, nil
		}
		if exitErr, ok := runErr.(*ssh.ExitError); ok {
			return outBuf.Bytes(), errBuf.Bytes(), exitErr.ExitStatus(), nil
		}
		return nil, nil, -1, errors.WrapWithCode(runErr, errors.ErrSSH,
			fmt.Sprintf("Lost the session while running: %s", cmd),
			"Check the connection to "+c.Host)
	}
}
