package doctor

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/exec"
)

// fakeHome points HOME at a temp dir with an empty ~/.ssh.
func fakeHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.MkdirAll(filepath.Join(home, ".ssh"), 0o700); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(home, ".ssh")
}

func TestSSHKeyCheck(t *testing.T) {
	check := &SSHKeyCheck{}
	ctx := context.Background()

	t.Run("name and category", func(t *testing.T) {
		if check.Name() != "ssh_key" {
			t.Errorf("expected name 'ssh_key', got %s", check.Name())
		}
		if check.Category() != "SSH" {
			t.Errorf("expected category 'SSH', got %s", check.Category())
		}
	})

	t.Run("no key", func(t *testing.T) {
		fakeHome(t)

		if got := check.Run(ctx).Status; got != StatusWarn {
			t.Errorf("expected StatusWarn, got %v", got)
		}
	})

	t.Run("public key present", func(t *testing.T) {
		sshDir := fakeHome(t)
		if err := os.WriteFile(filepath.Join(sshDir, "id_rsa.pub"), []byte("ssh-rsa AAAA"), 0o644); err != nil {
			t.Fatal(err)
		}

		result := check.Run(ctx)
		if result.Status != StatusPass {
			t.Errorf("expected StatusPass, got %v", result.Status)
		}
		if !strings.Contains(result.Message, "id_rsa.pub") {
			t.Errorf("unexpected message %q", result.Message)
		}
	})
}

func TestSSHAgentCheck(t *testing.T) {
	check := &SSHAgentCheck{}
	ctx := context.Background()

	t.Run("without SSH_AUTH_SOCK", func(t *testing.T) {
		t.Setenv("SSH_AUTH_SOCK", "")

		if got := check.Run(ctx).Status; got != StatusWarn {
			t.Errorf("expected StatusWarn when SSH_AUTH_SOCK not set, got %v", got)
		}
	})

	t.Run("dead socket", func(t *testing.T) {
		t.Setenv("SSH_AUTH_SOCK", filepath.Join(t.TempDir(), "agent.sock"))

		result := check.Run(ctx)
		if result.Status != StatusWarn || result.Message != "SSH agent socket not accessible" {
			t.Errorf("unexpected result %+v", result)
		}
	})
}

func TestSSHKeyPermissionsCheck(t *testing.T) {
	check := &SSHKeyPermissionsCheck{}
	ctx := context.Background()

	t.Run("no keys", func(t *testing.T) {
		fakeHome(t)

		if got := check.Run(ctx).Status; got != StatusPass {
			t.Errorf("expected StatusPass, got %v", got)
		}
	})

	t.Run("fix insecure permissions", func(t *testing.T) {
		sshDir := fakeHome(t)
		keyPath := filepath.Join(sshDir, "id_ed25519")
		if err := os.WriteFile(keyPath, []byte("fake-key"), 0o644); err != nil {
			t.Fatal(err)
		}

		result := check.Run(ctx)
		if result.Status != StatusWarn || !result.Fixable {
			t.Fatalf("expected a fixable warning, got %+v", result)
		}

		if err := check.Fix(); err != nil {
			t.Fatalf("Fix() = %v", err)
		}
		info, err := os.Stat(keyPath)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("expected 0600 after fix, got %o", perm)
		}
		if got := check.Run(ctx).Status; got != StatusPass {
			t.Errorf("expected StatusPass after fix, got %v", got)
		}
	})
}

type closingClient struct {
	closed bool
}

func (c *closingClient) ExecContext(context.Context, string) ([]byte, []byte, int, error) {
	return nil, nil, 0, nil
}

func (c *closingClient) Close() error {
	c.closed = true
	return nil
}

func TestSSHConnectCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("connected", func(t *testing.T) {
		client := &closingClient{}
		var gotTimeout time.Duration
		check := &SSHConnectCheck{
			Host: "gpu-box",
			Dial: func(host string, timeout time.Duration) (exec.RemoteClient, error) {
				gotTimeout = timeout
				return client, nil
			},
		}

		result := check.Run(ctx)

		if result.Status != StatusPass {
			t.Errorf("expected StatusPass, got %v", result.Status)
		}
		if !client.closed {
			t.Error("connection should be closed after the check")
		}
		if gotTimeout != exec.DefaultDialTimeout {
			t.Errorf("expected default dial timeout, got %s", gotTimeout)
		}
	})

	t.Run("structured failure keeps suggestion", func(t *testing.T) {
		check := &SSHConnectCheck{
			Host: "gpu-box",
			Dial: func(string, time.Duration) (exec.RemoteClient, error) {
				return nil, errors.New(errors.ErrSSH, "Host key changed", "Remove the old key: ssh-keygen -R gpu-box")
			},
		}

		result := check.Run(ctx)

		if result.Status != StatusFail {
			t.Errorf("expected StatusFail, got %v", result.Status)
		}
		if result.Message != "gpu-box: Host key changed" {
			t.Errorf("unexpected message %q", result.Message)
		}
		if !strings.Contains(result.Suggestion, "ssh-keygen -R") {
			t.Errorf("unexpected suggestion %q", result.Suggestion)
		}
	})

	t.Run("plain failure", func(t *testing.T) {
		check := &SSHConnectCheck{
			Host: "gpu-box",
			Dial: func(string, time.Duration) (exec.RemoteClient, error) {
				return nil, stderrors.New("connection refused")
			},
		}

		result := check.Run(ctx)

		if result.Suggestion != "Try connecting directly: ssh gpu-box" {
			t.Errorf("unexpected suggestion %q", result.Suggestion)
		}
	})
}

func TestNewSSHChecks(t *testing.T) {
	checks := NewSSHChecks("gpu-box", nil)

	if len(checks) != 4 {
		t.Errorf("expected 4 SSH checks, got %d", len(checks))
	}

	names := make(map[string]bool)
	for _, check := range checks {
		if check.Category() != "SSH" {
			t.Errorf("expected SSH category, got %s", check.Category())
		}
		names[check.Name()] = true
	}

	for _, name := range []string{"ssh_key", "ssh_agent", "ssh_key_permissions", "ssh_connect"} {
		if !names[name] {
			t.Errorf("expected check %q not found", name)
		}
	}
}
