package exec

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/logger"
	"github.com/gputweak/gputweak/internal/util"
	"github.com/gputweak/gputweak/pkg/sshutil"
)

// RemoteClient runs one shell command line on a remote host.
// *sshutil.Client satisfies it.
type RemoteClient interface {
	ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error)
}

// DialFunc opens a RemoteClient for host.
type DialFunc func(host string, timeout time.Duration) (RemoteClient, error)

// DefaultDialTimeout bounds the SSH handshake.
const DefaultDialTimeout = 10 * time.Second

func dialSSH(host string, timeout time.Duration) (RemoteClient, error) {
	c, err := sshutil.Dial(host, timeout)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SSHRunner runs commands on a remote host. The connection is opened on the
// first Run and reopened after a transport failure.
type SSHRunner struct {
	Host        string
	Timeout     time.Duration
	DialTimeout time.Duration
	Dial        DialFunc
	Log         logger.Logger

	mu     sync.Mutex
	client RemoteClient
}

// NewSSHRunner creates a runner for host ("alias", "user@host" or "host:port").
func NewSSHRunner(host string, timeout time.Duration) *SSHRunner {
	return &SSHRunner{
		Host:        host,
		Timeout:     timeout,
		DialTimeout: DefaultDialTimeout,
		Dial:        dialSSH,
	}
}

func (r *SSHRunner) connect() (RemoteClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return r.client, nil
	}
	dial := r.Dial
	if dial == nil {
		dial = dialSSH
	}
	timeout := r.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	c, err := dial(r.Host, timeout)
	if err != nil {
		return nil, err
	}
	r.client = c
	return c, nil
}

func (r *SSHRunner) drop(c RemoteClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != c {
		return
	}
	if closer, ok := c.(io.Closer); ok {
		_ = closer.Close()
	}
	r.client = nil
}

// Run quotes name and args into one remote command line and executes it.
func (r *SSHRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	client, err := r.connect()
	if err != nil {
		return Result{ExitCode: -1}, err
	}

	cmdline := RemoteCommandLine(name, args...)
	logger.OrDefault(r.Log).Debug("[exec] %s: %s", r.Host, cmdline)

	start := time.Now()
	stdout, stderr, code, err := client.ExecContext(ctx, cmdline)
	res := Result{
		Stdout:   string(stdout),
		Stderr:   string(stderr),
		ExitCode: code,
		Duration: time.Since(start),
	}

	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, timeoutError(ctx, CommandLine(name, args...), res.Duration)
	}
	if err != nil {
		res.ExitCode = -1
		// The session or connection broke; dial again next time.
		r.drop(client)
		if errors.CodeOf(err) != "" {
			return res, err
		}
		return res, errors.WrapWithCode(err, errors.ErrSSH,
			"Lost the SSH connection to '"+r.Host+"'",
			"Check the host is reachable: ssh "+r.Host)
	}
	return res, nil
}

// Close releases the SSH connection, if one is open.
func (r *SSHRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	var err error
	if closer, ok := r.client.(io.Closer); ok {
		err = closer.Close()
	}
	r.client = nil
	return err
}

// RemoteCommandLine quotes the words the remote shell would otherwise
// glob or split, such as the brackets in [gpu:0]/GPUCoreTemp.
func RemoteCommandLine(name string, args ...string) string {
	return util.ShellJoin(append([]string{name}, args...)...)
}
