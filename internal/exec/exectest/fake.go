// Package exectest provides a scripted exec.Runner for tests.
package exectest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/exec"
)

// Call is one recorded invocation.
type Call struct {
	Name string
	Args []string
}

// String renders the call as a command line.
func (c Call) String() string {
	return exec.CommandLine(c.Name, c.Args...)
}

// Response is the scripted outcome for an argument line.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
	// Hang blocks until the context is done, like a stuck tool.
	Hang bool
	// Delay is slept before answering, still honoring the context.
	Delay time.Duration
}

// FakeRunner answers invocations from a table keyed by the space-joined
// arguments (the command name is ignored). Unscripted invocations succeed
// with empty output unless a fallback is set.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string]Response
	fallback  *Response
	calls     []Call
}

// New creates an empty FakeRunner.
func New() *FakeRunner {
	return &FakeRunner{responses: make(map[string]Response)}
}

// On scripts the response for an exact argument line, e.g. "-q gpus".
func (f *FakeRunner) On(args string, resp Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[args] = resp
	return f
}

// OnQuery scripts "-t -q <path>" to print value.
func (f *FakeRunner) OnQuery(path, value string) *FakeRunner {
	return f.On("-t -q "+path, Response{Stdout: value + "\n"})
}

// OnQueryErr scripts "-t -q <path>" to fail with err.
func (f *FakeRunner) OnQueryErr(path string, err error) *FakeRunner {
	return f.On("-t -q "+path, Response{Err: err, ExitCode: -1})
}

// Fallback sets the response for unscripted invocations.
func (f *FakeRunner) Fallback(resp Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = &resp
	return f
}

// Run implements exec.Runner.
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) (exec.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	resp, ok := f.responses[strings.Join(args, " ")]
	if !ok && f.fallback != nil {
		resp = *f.fallback
	}
	f.mu.Unlock()

	if resp.Hang {
		<-ctx.Done()
		return exec.Result{ExitCode: -1}, errors.WrapWithCode(ctx.Err(), errors.ErrExec,
			"'"+exec.CommandLine(name, args...)+"' didn't finish", "")
	}
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return exec.Result{ExitCode: -1}, errors.WrapWithCode(ctx.Err(), errors.ErrExec,
				"'"+exec.CommandLine(name, args...)+"' didn't finish", "")
		}
	}

	res := exec.Result{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}
	return res, resp.Err
}

// Calls returns every invocation so far, in order.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallLines returns the argument lines of every invocation, in order.
func (f *FakeRunner) CallLines() []string {
	calls := f.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = strings.Join(c.Args, " ")
	}
	return lines
}

// Assignments returns the argument lines of every "-a" invocation.
func (f *FakeRunner) Assignments() []string {
	var out []string
	for _, line := range f.CallLines() {
		if strings.HasPrefix(line, "-a ") || strings.Contains(line, " -a ") {
			out = append(out, line)
		}
	}
	return out
}

// Reset forgets recorded calls but keeps the script.
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}
