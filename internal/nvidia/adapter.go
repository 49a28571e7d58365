// Package nvidia talks to NVIDIA GPUs through the nvidia-settings command
// line tool: discovery, attribute queries, compound value parsing and
// attribute assignment, plus the Device implementation built on them.
package nvidia

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/exec"
	"github.com/gputweak/gputweak/internal/gpu"
	"github.com/gputweak/gputweak/internal/logger"
)

// DefaultTool is looked up in PATH when no tool path is configured.
const DefaultTool = "nvidia-settings"

// Adapter issues nvidia-settings invocations through a Runner.
type Adapter struct {
	runner  exec.Runner
	tool    string
	display string
	log     logger.Logger
	now     func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTool sets the nvidia-settings binary. Empty keeps DefaultTool.
func WithTool(path string) Option {
	return func(a *Adapter) {
		if path != "" {
			a.tool = path
		}
	}
}

// WithDisplay passes "-c <display>" on every invocation, for hosts where
// the X server is not on the default display.
func WithDisplay(display string) Option {
	return func(a *Adapter) { a.display = display }
}

// WithLogger sets the logger used for degraded readings.
func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// WithClock overrides the time source for Variables.UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// NewAdapter creates an adapter that runs the tool through runner.
func NewAdapter(runner exec.Runner, opts ...Option) *Adapter {
	a := &Adapter{
		runner: runner,
		tool:   DefaultTool,
		log:    logger.NewEnvLogger("[nvidia]"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tool returns the configured binary.
func (a *Adapter) Tool() string { return a.tool }

// Display returns the configured control display, if any.
func (a *Adapter) Display() string { return a.display }

// run invokes the tool and turns a non-zero exit into an EXEC error.
func (a *Adapter) run(ctx context.Context, args ...string) (exec.Result, error) {
	args = a.withDisplay(args)
	res, err := a.runner.Run(ctx, a.tool, args...)
	if err != nil {
		return res, err
	}
	if !res.Success() {
		return res, exec.ExitError(exec.CommandLine(a.tool, args...), res)
	}
	return res, nil
}

func (a *Adapter) withDisplay(args []string) []string {
	if a.display == "" {
		return args
	}
	return append([]string{"-c", a.display}, args...)
}

// ListGPUs runs "-q gpus" and parses the listing. A tool that cannot run
// or exits non-zero is an EXEC error; a listing without GPUs is an empty
// slice and a nil error.
func (a *Adapter) ListGPUs(ctx context.Context) ([]Discovered, error) {
	res, err := a.run(ctx, "-q", "gpus")
	if err != nil {
		return nil, err
	}
	list := ParseGPUList(res.Stdout)
	a.log.Debug("discovered %d GPU(s)", len(list))
	return list, nil
}

// NoGPUsError is the DISCOVERY error for a listing that ran fine but named
// no GPUs. Callers that need at least one device return it.
func NoGPUsError(tool string) error {
	return errors.New(errors.ErrDiscovery,
		fmt.Sprintf("'%s -q gpus' found no GPUs", tool),
		"Make sure the NVIDIA driver is loaded and an X server is running (set tool.display, e.g. :0)")
}

// Discover lists the GPUs and builds a Device for each one, loading its
// constants and a first set of variables. Per-device load failures are
// logged; the device is still returned and recovers on the next poll.
func (a *Adapter) Discover(ctx context.Context) ([]gpu.Device, error) {
	list, err := a.ListGPUs(ctx)
	if err != nil {
		return nil, err
	}

	devices := make([]gpu.Device, 0, len(list))
	for _, d := range list {
		g := NewGPU(a, d.ID, d.Name)
		if err := g.FetchConstants(ctx); err != nil {
			a.log.Warn("%s: couldn't load constants: %s", g.Identifier(), errors.Headline(err))
		}
		if err := g.FetchVariables(ctx); err != nil {
			a.log.Warn("%s: couldn't load readings: %s", g.Identifier(), errors.Headline(err))
		}
		devices = append(devices, g)
	}
	return devices, nil
}

// Query runs "-t -q <path>" and returns the trimmed value text.
func (a *Adapter) Query(ctx context.Context, path AttributePath) (string, error) {
	res, err := a.run(ctx, "-t", "-q", path.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// QueryInt queries an integer attribute. Non-numeric text reads as 0 and
// logs a warning; only invocation failures are returned.
func (a *Adapter) QueryInt(ctx context.Context, path AttributePath) (int, error) {
	text, err := a.Query(ctx, path)
	if err != nil {
		return 0, err
	}
	n, err := ParseInt(text)
	if err != nil {
		a.log.Warn("%s: %s, using 0", path, errors.Headline(err))
		return 0, nil
	}
	return n, nil
}

// read is Query for device loads. The tool reports an attribute or target
// the GPU lacks by exiting non-zero, so a completed run that failed logs a
// warning and reads as empty with ok false. Invocation failures and a
// missing tool are still returned.
func (a *Adapter) read(ctx context.Context, path AttributePath) (text string, ok bool, err error) {
	args := a.withDisplay([]string{"-t", "-q", path.String()})
	res, err := a.runner.Run(ctx, a.tool, args...)
	if err != nil {
		return "", false, err
	}
	if res.Success() {
		return strings.TrimSpace(res.Stdout), true, nil
	}
	if _, missing := exec.IsCommandNotFound(res.Stderr, res.ExitCode); missing {
		return "", false, exec.ExitError(exec.CommandLine(a.tool, args...), res)
	}
	a.log.Warn("%s: exited with status %d, using 0", path, res.ExitCode)
	return "", false, nil
}

// readInt is QueryInt with read's handling of unsupported attributes.
func (a *Adapter) readInt(ctx context.Context, path AttributePath) (int, error) {
	text, ok, err := a.read(ctx, path)
	if err != nil || !ok {
		return 0, err
	}
	n, err := ParseInt(text)
	if err != nil {
		a.log.Warn("%s: %s, using 0", path, errors.Headline(err))
		return 0, nil
	}
	return n, nil
}

// compoundOrZero reads key from a compound value, logging a warning and
// returning 0 when the key is missing or malformed.
func (a *Adapter) compoundOrZero(path AttributePath, value, key string) int {
	n, err := ParseCompound(value, key)
	if err != nil {
		a.log.Warn("%s: %s, using 0", path, errors.Headline(err))
		return 0
	}
	return n
}

// Set runs "-a <path>=<value>". The tool's output is not inspected; a
// failed invocation or non-zero exit is returned for the caller to log.
func (a *Adapter) Set(ctx context.Context, path AttributePath, value string) error {
	_, err := a.run(ctx, "-a", path.String()+"="+value)
	if err != nil {
		a.log.Debug("assign %s=%s failed: %s", path, value, errors.Headline(err))
	}
	return err
}

// SetInt assigns an integer value.
func (a *Adapter) SetInt(ctx context.Context, path AttributePath, value int) error {
	return a.Set(ctx, path, strconv.Itoa(value))
}
