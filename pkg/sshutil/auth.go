package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gputweak/gputweak/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// StrictHostKeyChecking verifies host keys against ~/.ssh/known_hosts.
// Turning it off is insecure and only meant for throwaway lab machines.
var StrictHostKeyChecking = true

var (
	agentOnce   sync.Once
	agentConn   net.Conn
	agentClient agent.ExtendedAgent
)

// EncryptedKeyError is returned for a key file that needs a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// clientConfig collects auth methods in the order ssh would try them:
// agent, GPUTWEAK_SSH_KEY, the configured IdentityFile, then default keys.
func clientConfig(s *settings) (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod
	tried := make(map[string]bool)

	tryKey := func(path string) {
		if path == "" || tried[path] {
			return
		}
		tried[path] = true
		m, err := keyFileAuth(path)
		if err != nil {
			if _, ok := err.(*EncryptedKeyError); ok {
				s.encryptedKeys = append(s.encryptedKeys, path)
			}
			return
		}
		methods = append(methods, m)
	}

	if m := agentAuth(); m != nil {
		methods = append(methods, m)
	}
	tryKey(os.Getenv("GPUTWEAK_SSH_KEY"))
	tryKey(s.identityFile)
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		tryKey(filepath.Join(homeDir(), ".ssh", name))
	}

	if len(methods) == 0 {
		if len(s.encryptedKeys) > 0 {
			return nil, errors.New(errors.ErrSSH,
				"Found SSH key(s) but they're encrypted: "+strings.Join(s.encryptedKeys, ", "),
				addKeysHint("Add your key(s) to the agent:", s.encryptedKeys))
		}
		return nil, errors.New(errors.ErrSSH,
			"No SSH auth methods available",
			"Check your keys are loaded: ssh-add -l")
	}

	hostKeys := ssh.InsecureIgnoreHostKey() //nolint:gosec // only when the user disabled checking
	if StrictHostKeyChecking {
		cb, err := knownHostsCallback(filepath.Join(homeDir(), ".ssh", "known_hosts"))
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
		hostKeys = cb
	}

	return &ssh.ClientConfig{
		User:            s.user,
		Auth:            methods,
		HostKeyCallback: hostKeys,
		Timeout:         10 * time.Second,
	}, nil
}

// agentAuth returns nil when there is no agent or it holds no keys; an
// empty agent listed first makes servers give up before the key files.
func agentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}
	agentOnce.Do(func() {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return
		}
		agentConn = conn
		agentClient = agent.NewClient(conn)
	})
	if agentClient == nil {
		return nil
	}
	if signers, err := agentClient.Signers(); err != nil || len(signers) == 0 {
		return nil
	}
	return ssh.PublicKeysCallback(agentClient.Signers)
}

// CloseAgent closes the shared agent connection.
func CloseAgent() {
	if agentConn != nil {
		agentConn.Close()
	}
}

func keyFileAuth(path string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) ||
			strings.Contains(err.Error(), "passphrase") ||
			bytes.Contains(key, []byte("ENCRYPTED")) {
			return nil, &EncryptedKeyError{Path: path}
		}
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func addKeysHint(header string, keys []string) string {
	var sb strings.Builder
	sb.WriteString(header + "\n")
	for _, key := range keys {
		if runtime.GOOS == "darwin" {
			sb.WriteString(fmt.Sprintf("  ssh-add --apple-use-keychain %s\n", key))
		} else {
			sb.WriteString(fmt.Sprintf("  ssh-add %s\n", key))
		}
	}
	sb.WriteString("\nNot sure which key? Check with: ssh -v <host>")
	return sb.String()
}
