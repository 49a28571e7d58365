package doctor

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	osexec "os/exec"
	"regexp"
	"strings"

	"github.com/gputweak/gputweak/internal/config"
	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/exec"
	"github.com/gputweak/gputweak/internal/util"
)

// ToolCheck verifies nvidia-settings can be found on the target and
// reports its version.
type ToolCheck struct {
	Tool   string
	Runner exec.Runner
	// Host is the SSH target, or empty for the local machine.
	Host string
	// LookPath resolves a local tool. Defaults to os/exec.LookPath.
	LookPath func(string) (string, error)

	Version string // Populated after Run()
}

func (c *ToolCheck) Name() string     { return "tool" }
func (c *ToolCheck) Category() string { return CategoryTool }

func (c *ToolCheck) where() string {
	if c.Host == "" {
		return "local"
	}
	return c.Host
}

func (c *ToolCheck) Run(ctx context.Context) CheckResult {
	path, res, ok := c.locate(ctx)
	if !ok {
		return res
	}

	out, err := c.Runner.Run(ctx, path, "--version")
	if err != nil || !out.Success() {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s found at %s (version unknown)", c.Tool, path),
		}
	}

	c.Version = parseToolVersion(out.Stdout + out.Stderr)
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s %s (%s)", c.Tool, c.Version, c.where()),
	}
}

// locate resolves the binary path, locally through PATH or remotely with
// the shell's command -v.
func (c *ToolCheck) locate(ctx context.Context) (string, CheckResult, bool) {
	notFound := CheckResult{
		Name:       c.Name(),
		Status:     StatusFail,
		Message:    fmt.Sprintf("%s not found (%s)", c.Tool, c.where()),
		Suggestion: "Install the NVIDIA driver utilities, or set tool.path in " + config.ConfigFileName,
	}

	if c.Host == "" {
		lookPath := c.LookPath
		if lookPath == nil {
			lookPath = osexec.LookPath
		}
		path, err := lookPath(c.Tool)
		if err != nil {
			return "", notFound, false
		}
		return path, CheckResult{}, true
	}

	out, err := c.Runner.Run(ctx, "sh", "-c", "command -v "+util.QuoteToolPath(c.Tool))
	if err != nil {
		suggestion := "Check the SSH connection"
		var gtErr *errors.Error
		if stderrors.As(err, &gtErr) && gtErr.Suggestion != "" {
			suggestion = gtErr.Suggestion
		}
		return "", CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Couldn't look for %s on %s: %s", c.Tool, c.Host, errors.Headline(err)),
			Suggestion: suggestion,
		}, false
	}
	path := strings.TrimSpace(out.Stdout)
	if !out.Success() || path == "" {
		return "", notFound, false
	}
	return path, CheckResult{}, true
}

func (c *ToolCheck) Fix() error {
	return nil // Driver installation is out of scope
}

var (
	toolVersionRe = regexp.MustCompile(`version\s+(\d+(?:\.\d+)+)`)
	anyVersionRe  = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)
)

// parseToolVersion extracts the version from --version output, e.g.
// "nvidia-settings:  version 470.82.00".
func parseToolVersion(output string) string {
	if m := toolVersionRe.FindStringSubmatch(output); len(m) >= 2 {
		return m[1]
	}
	for _, line := range strings.Split(output, "\n") {
		if m := anyVersionRe.FindStringSubmatch(line); len(m) >= 2 {
			return m[1]
		}
	}
	return "unknown"
}

// DisplayCheck warns when nvidia-settings will have no X display to talk
// to. Only meaningful for the local machine.
type DisplayCheck struct {
	// Display is tool.display from the config.
	Display string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

func (c *DisplayCheck) Name() string     { return "display" }
func (c *DisplayCheck) Category() string { return CategoryTool }

func (c *DisplayCheck) Run(context.Context) CheckResult {
	if c.Display != "" {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: fmt.Sprintf("Control display %s (tool.display)", c.Display),
		}
	}

	getenv := c.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if display := getenv("DISPLAY"); display != "" {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: fmt.Sprintf("X display %s", display),
		}
	}

	return CheckResult{
		Name:       c.Name(),
		Status:     StatusWarn,
		Message:    "No X display set",
		Suggestion: "nvidia-settings needs a running X server. Export DISPLAY or set tool.display (e.g. :0)",
	}
}

func (c *DisplayCheck) Fix() error {
	return nil
}
