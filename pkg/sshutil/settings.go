package sshutil

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kevinburke/ssh_config"
)

// settings are the connection parameters for one host after applying
// ~/.ssh/config.
type settings struct {
	hostname      string
	port          string
	user          string
	identityFile  string
	encryptedKeys []string
}

func (s *settings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

var matchWarningOnce sync.Once

func defaultConfigPath() string {
	return filepath.Join(homeDir(), ".ssh", "config")
}

// splitHost parses user@host:port. Missing parts come back empty.
func splitHost(host string) (user, hostname, port string) {
	if at := strings.Index(host, "@"); at != -1 {
		user = host[:at]
		host = host[at+1:]
	}
	if colon := strings.LastIndex(host, ":"); colon != -1 && isDigits(host[colon+1:]) {
		port = host[colon+1:]
		host = host[:colon]
	}
	return user, host, port
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// resolveSettings applies explicit user/port from the host string first,
// then fills the rest from the ssh config file at configPath.
func resolveSettings(host, configPath string) *settings {
	user, hostname, port := splitHost(host)

	s := &settings{hostname: hostname, port: "22", user: currentUser()}
	if user != "" {
		s.user = user
	} else if u := os.Getenv("GPUTWEAK_SSH_USER"); u != "" {
		s.user = u
	}
	if port != "" {
		s.port = port
	}

	content, matchLine, err := stripMatchBlocks(configPath)
	if err != nil {
		return s
	}
	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return s
	}

	found := false
	lookup := func(key string) string {
		v, _ := cfg.Get(hostname, key)
		if v != "" {
			found = true
		}
		return v
	}

	if v := lookup("HostName"); v != "" {
		s.hostname = v
	}
	if v := lookup("Port"); v != "" && port == "" {
		s.port = v
	}
	if v := lookup("User"); v != "" && user == "" {
		s.user = v
	}
	if v := lookup("IdentityFile"); v != "" {
		s.identityFile = expandPath(v)
	}

	if matchLine > 0 && !found {
		matchWarningOnce.Do(func() {
			warn(fmt.Sprintf(
				"Host '%s' not found in SSH config; a Match block at line %d may hide later entries. "+
					"Move the host above line %d in ~/.ssh/config.",
				hostname, matchLine, matchLine))
		})
	}
	return s
}

// stripMatchBlocks returns the config content before the first Match
// directive, which ssh_config cannot parse, and that directive's line number.
func stripMatchBlocks(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			return []byte(strings.Join(lines[:i], "\n")), i + 1, nil
		}
	}
	return content, 0, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func dialSuggestion(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Is sshd running on that box? Try: ssh <host>"
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "Can't route to the host. Check your network connection."
	case strings.Contains(msg, "timeout"):
		return "Connection timed out. The host might be offline or behind a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

func handshakeSuggestion(err error, encryptedKeys []string) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"), strings.Contains(msg, "no supported methods"):
		if len(encryptedKeys) > 0 {
			return addKeysHint("Your key(s) are encrypted. Add them to the agent:", encryptedKeys)
		}
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	case strings.Contains(msg, "host key"):
		return "Host key issue. Connect once by hand first: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}
