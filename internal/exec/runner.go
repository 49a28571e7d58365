// Package exec runs the external telemetry tool. Every invocation goes through
// the Runner interface so the adapter can be pointed at the local machine, a
// remote host over SSH, or a scripted fake in tests.
package exec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gputweak/gputweak/internal/errors"
)

// DefaultTimeout bounds a single tool invocation when the caller sets none.
const DefaultTimeout = 5 * time.Second

// Result is the captured outcome of one invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Success reports whether the command exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner runs a command to completion and captures its output.
//
// A command that ran but exited non-zero is not an error: the exit code is
// reported in the Result. Errors are reserved for commands that could not be
// started, were cut off by the context deadline, or lost their transport.
// All returned errors carry the EXEC or SSH code.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, name string, args ...string) (Result, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return f(ctx, name, args...)
}

// CommandLine renders name and args the way a user would type them.
// Only used for messages; remote execution quotes arguments separately.
func CommandLine(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// withTimeout applies timeout to ctx unless ctx already ends sooner.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// timeoutError reports a command that was killed because ctx expired.
func timeoutError(ctx context.Context, cmdline string, elapsed time.Duration) error {
	return errors.WrapWithCode(ctx.Err(), errors.ErrExec,
		fmt.Sprintf("'%s' didn't finish after %s", cmdline, elapsed.Round(time.Millisecond)),
		"The tool may be hung. Raise tool.timeout or check the driver with: gputweak doctor")
}

// ExitError builds the EXEC error for a command that ran but failed.
// Callers that treat a non-zero exit as fatal use it to report stderr.
func ExitError(cmdline string, res Result) error {
	msg := fmt.Sprintf("'%s' exited with status %d", cmdline, res.ExitCode)
	suggestion := "Run the command by hand to see the full output."
	if name, ok := IsCommandNotFound(res.Stderr, res.ExitCode); ok {
		if name == "" {
			name = strings.Fields(cmdline)[0]
		}
		msg = fmt.Sprintf("'%s' isn't installed on the target host", name)
		suggestion = "Install the NVIDIA driver utilities or point tool.path at the binary."
	}
	var cause error
	if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
		cause = fmt.Errorf("%s", stderr)
	}
	return errors.WrapWithCode(cause, errors.ErrExec, msg, suggestion)
}
