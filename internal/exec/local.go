package exec

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/logger"
)

// LocalRunner runs commands on this machine with os/exec.
type LocalRunner struct {
	// Timeout bounds each invocation. Zero means DefaultTimeout.
	Timeout time.Duration
	// Env, when set, replaces the inherited environment.
	Env []string
	Log logger.Logger
}

// NewLocalRunner creates a LocalRunner with the given per-invocation timeout.
func NewLocalRunner(timeout time.Duration) *LocalRunner {
	return &LocalRunner{Timeout: timeout}
}

// Run executes name directly, without a shell, and captures its output.
func (r *LocalRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	cmdline := CommandLine(name, args...)
	logger.OrDefault(r.Log).Debug("[exec] %s", cmdline)

	cmd := exec.CommandContext(ctx, name, args...)
	if r.Env != nil {
		cmd.Env = r.Env
	}
	// Children that inherit the pipes can keep Wait blocked after the kill.
	cmd.WaitDelay = 500 * time.Millisecond

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runErr == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, timeoutError(ctx, cmdline, res.Duration)
	}

	var exitErr *exec.ExitError
	if stderrors.As(runErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	res.ExitCode = -1
	if stderrors.Is(runErr, exec.ErrNotFound) {
		return res, errors.WrapWithCode(runErr, errors.ErrExec,
			fmt.Sprintf("Couldn't find '%s' in PATH", name),
			"Install the NVIDIA driver utilities or set tool.path in .gputweak.yaml")
	}
	return res, errors.WrapWithCode(runErr, errors.ErrExec,
		fmt.Sprintf("Couldn't run '%s'", cmdline),
		"Make sure the command exists and is executable.")
}
