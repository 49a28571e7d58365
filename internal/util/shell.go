// Package util holds small string helpers shared by the CLI, doctor and
// the SSH runner.
package util

import "strings"

// shellSafe reports whether s can be passed to sh as one word without quoting.
func shellSafe(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("-_./=:,@%+", r):
		default:
			return false
		}
	}
	return true
}

// ShellQuote returns s as a single sh word. Words made only of safe
// characters pass through; anything else is single-quoted.
func ShellQuote(s string) string {
	if shellSafe(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ShellJoin quotes each word and joins them with spaces.
func ShellJoin(words ...string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = ShellQuote(w)
	}
	return strings.Join(quoted, " ")
}

// QuoteToolPath quotes a tool path for a remote shell, leaving a leading
// ~/ outside the quotes so the remote home directory is used.
func QuoteToolPath(path string) string {
	switch {
	case path == "~":
		return path
	case strings.HasPrefix(path, "~/"):
		return "~/" + ShellQuote(path[2:])
	default:
		return ShellQuote(path)
	}
}
