package doctor

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh/agent"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/exec"
)

// keyNames are the default identities, in order of preference.
var keyNames = []string{"id_ed25519", "id_rsa", "id_ecdsa"}

func keyPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(keyNames))
	for i, name := range keyNames {
		paths[i] = filepath.Join(home, ".ssh", name)
	}
	return paths, nil
}

// SSHKeyCheck verifies an SSH key exists.
type SSHKeyCheck struct{}

func (c *SSHKeyCheck) Name() string     { return "ssh_key" }
func (c *SSHKeyCheck) Category() string { return CategorySSH }

func (c *SSHKeyCheck) Run(context.Context) CheckResult {
	paths, err := keyPaths()
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Cannot determine home directory",
			Suggestion: "Check HOME environment variable",
		}
	}

	for _, keyPath := range paths {
		if _, err := os.Stat(keyPath + ".pub"); err == nil {
			return CheckResult{
				Name:    c.Name(),
				Status:  StatusPass,
				Message: fmt.Sprintf("SSH key found: ~/.ssh/%s.pub", filepath.Base(keyPath)),
			}
		}
	}

	// An agent or IdentityFile can still authenticate.
	return CheckResult{
		Name:       c.Name(),
		Status:     StatusWarn,
		Message:    "No default SSH key found",
		Suggestion: "Generate a key with: ssh-keygen -t ed25519",
	}
}

func (c *SSHKeyCheck) Fix() error {
	return nil
}

// SSHAgentCheck verifies the SSH agent is running and holds keys.
type SSHAgentCheck struct{}

func (c *SSHAgentCheck) Name() string     { return "ssh_agent" }
func (c *SSHAgentCheck) Category() string { return CategorySSH }

func (c *SSHAgentCheck) Run(context.Context) CheckResult {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent not running",
			Suggestion: "Fix: eval $(ssh-agent) && ssh-add",
		}
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent socket not accessible",
			Suggestion: "Fix: eval $(ssh-agent) && ssh-add",
		}
	}
	defer conn.Close() //nolint:errcheck // Best-effort close, error not actionable

	keys, err := agent.NewClient(conn).List()
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "Cannot query SSH agent",
			Suggestion: "Check SSH agent: ssh-add -l",
		}
	}
	if len(keys) == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent running but no keys loaded",
			Suggestion: "Add a key with: ssh-add",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("SSH agent running with %d key%s loaded", len(keys), pluralize(len(keys))),
	}
}

func (c *SSHAgentCheck) Fix() error {
	// Running ssh-add would require interaction, so not auto-fixable
	return nil
}

// SSHKeyPermissionsCheck verifies SSH private keys are not group or world
// readable, which ssh refuses.
type SSHKeyPermissionsCheck struct{}

func (c *SSHKeyPermissionsCheck) Name() string     { return "ssh_key_permissions" }
func (c *SSHKeyPermissionsCheck) Category() string { return CategorySSH }

func (c *SSHKeyPermissionsCheck) insecure() ([]string, bool) {
	paths, err := keyPaths()
	if err != nil {
		return nil, false
	}
	var bad []string
	found := false
	for _, keyPath := range paths {
		info, err := os.Stat(keyPath)
		if err != nil {
			continue
		}
		found = true
		if info.Mode().Perm()&0o077 != 0 {
			bad = append(bad, keyPath)
		}
	}
	return bad, found
}

func (c *SSHKeyPermissionsCheck) Run(context.Context) CheckResult {
	bad, found := c.insecure()
	if !found {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass, // SSH key check will catch this
			Message: "No private keys to check",
		}
	}

	if len(bad) > 0 {
		names := make([]string, len(bad))
		for i, p := range bad {
			names[i] = filepath.Base(p)
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "Insecure permissions on: " + strings.Join(names, ", "),
			Suggestion: "Fix: chmod 600 ~/.ssh/<keyfile>, or run 'gputweak doctor --fix'",
			Fixable:    true,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "SSH key permissions OK",
	}
}

func (c *SSHKeyPermissionsCheck) Fix() error {
	bad, _ := c.insecure()
	for _, keyPath := range bad {
		if err := os.Chmod(keyPath, 0o600); err != nil {
			return fmt.Errorf("failed to fix permissions on %s: %w", keyPath, err)
		}
	}
	return nil
}

// SSHConnectCheck opens a connection to the target host and reports the
// handshake latency.
type SSHConnectCheck struct {
	Host    string
	Timeout time.Duration
	Dial    exec.DialFunc

	Latency time.Duration // Populated after Run()
}

func (c *SSHConnectCheck) Name() string     { return "ssh_connect" }
func (c *SSHConnectCheck) Category() string { return CategorySSH }

func (c *SSHConnectCheck) Run(context.Context) CheckResult {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = exec.DefaultDialTimeout
	}

	start := time.Now()
	client, err := c.Dial(c.Host, timeout)
	c.Latency = time.Since(start)
	if err != nil {
		suggestion := fmt.Sprintf("Try connecting directly: ssh %s", c.Host)
		var gtErr *errors.Error
		if stderrors.As(err, &gtErr) && gtErr.Suggestion != "" {
			suggestion = gtErr.Suggestion
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: %s", c.Host, errors.Headline(err)),
			Suggestion: suggestion,
		}
	}
	if closer, ok := client.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: connected (%s)", c.Host, c.Latency.Round(time.Millisecond)),
	}
}

func (c *SSHConnectCheck) Fix() error {
	return nil // Network issues can't be auto-fixed
}

// NewSSHChecks creates the checks for a remote target.
// A nil dial uses the real SSH transport.
func NewSSHChecks(host string, dial exec.DialFunc) []Check {
	if dial == nil {
		dial = exec.NewSSHRunner(host, 0).Dial
	}
	return []Check{
		&SSHKeyCheck{},
		&SSHAgentCheck{},
		&SSHKeyPermissionsCheck{},
		&SSHConnectCheck{Host: host, Dial: dial},
	}
}
