package exec

import "regexp"

// commandNotFoundPatterns extract the missing command from shell errors.
// They only apply with exit code 127.
var commandNotFoundPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bash: (\S+): command not found`),
	regexp.MustCompile(`(?i)zsh: command not found: (\S+)`),
	regexp.MustCompile(`(?i)sh: \d+: (\S+): not found`),
	regexp.MustCompile(`(?i)-bash: (\S+): No such file or directory`),
	regexp.MustCompile(`(?i)(\S+): command not found`),
	regexp.MustCompile(`(?i)(\S+): not found`),
}

// IsCommandNotFound checks if the output of a remote shell indicates a
// missing command. Returns the command name when it can be extracted.
func IsCommandNotFound(stderr string, exitCode int) (string, bool) {
	if exitCode != 127 {
		return "", false
	}
	for _, pattern := range commandNotFoundPatterns {
		if m := pattern.FindStringSubmatch(stderr); len(m) > 1 {
			return m[1], true
		}
	}
	return "", true
}
