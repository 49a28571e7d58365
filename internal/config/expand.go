package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandToolPath resolves ~ and $VARS in a local tool path. Remote paths are
// returned as written; the remote shell expands them against its own home.
func ExpandToolPath(path, host string) string {
	if path == "" || host != "" {
		return path
	}

	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}
