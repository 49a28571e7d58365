package doctor

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/gputweak/gputweak/internal/config"
	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/exec"
	"github.com/gputweak/gputweak/internal/gpu"
	"github.com/gputweak/gputweak/internal/nvidia"
)

// DiscoveryCheck lists the GPUs nvidia-settings can see.
type DiscoveryCheck struct {
	Adapter *nvidia.Adapter

	Found []nvidia.Discovered // Populated after Run()
}

func (c *DiscoveryCheck) Name() string     { return "discovery" }
func (c *DiscoveryCheck) Category() string { return CategoryGPU }

func (c *DiscoveryCheck) Run(ctx context.Context) CheckResult {
	list, err := c.Adapter.ListGPUs(ctx)
	if err != nil {
		return failure(c, err)
	}
	c.Found = list
	if len(list) == 0 {
		return failure(c, nvidia.NoGPUsError(c.Adapter.Tool()))
	}

	names := make([]string, len(list))
	for i, d := range list {
		names[i] = fmt.Sprintf("%s (%s)", gpu.Identifier(d.ID), d.Name)
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Found %d GPU%s: %s", len(list), pluralize(len(list)), strings.Join(names, ", ")),
	}
}

func (c *DiscoveryCheck) Fix() error {
	return nil
}

// AttributeReadCheck reads the core temperature and utilization of every
// discovered GPU, parsing them strictly so a renamed attribute or changed
// value format shows up here instead of as a silent zero on the dashboard.
type AttributeReadCheck struct {
	Adapter   *nvidia.Adapter
	Discovery *DiscoveryCheck
}

func (c *AttributeReadCheck) Name() string     { return "attribute_read" }
func (c *AttributeReadCheck) Category() string { return CategoryGPU }

func (c *AttributeReadCheck) Run(ctx context.Context) CheckResult {
	if c.Discovery == nil || len(c.Discovery.Found) == 0 {
		return skipped(c, "Attribute read skipped: no GPUs discovered")
	}

	readings := make([]string, 0, len(c.Discovery.Found))
	for _, d := range c.Discovery.Found {
		reading, res, ok := c.read(ctx, d.ID)
		if !ok {
			return res
		}
		readings = append(readings, reading)
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: strings.Join(readings, "; "),
	}
}

func (c *AttributeReadCheck) read(ctx context.Context, id int) (string, CheckResult, bool) {
	tempPath := nvidia.GPUAttr(id, nvidia.AttrCoreTemp)
	text, err := c.Adapter.Query(ctx, tempPath)
	if err != nil {
		return "", failure(c, err), false
	}
	temp, err := nvidia.ParseInt(text)
	if err != nil {
		return "", unreadable(c, tempPath, err), false
	}

	usePath := nvidia.GPUAttr(id, nvidia.AttrUtilization)
	text, err = c.Adapter.Query(ctx, usePath)
	if err != nil {
		return "", failure(c, err), false
	}
	use, err := nvidia.ParseCompound(text, nvidia.KeyCoreUse)
	if err != nil {
		return "", unreadable(c, usePath, err), false
	}

	return fmt.Sprintf("%s: %d°C, %d%% busy", gpu.Identifier(id), temp, use), CheckResult{}, true
}

func (c *AttributeReadCheck) Fix() error {
	return nil
}

// failure turns an invocation error into a failed result, keeping the
// error's own suggestion when it has one.
func failure(c Check, err error) CheckResult {
	res := CheckResult{
		Name:    c.Name(),
		Status:  StatusFail,
		Message: errors.Headline(err),
	}
	var gtErr *errors.Error
	if stderrors.As(err, &gtErr) {
		res.Suggestion = gtErr.Suggestion
	}
	return res
}

// unreadable reports a value that came back but did not parse. The
// dashboard would show 0 for it, so it is a warning, not a failure.
func unreadable(c Check, path nvidia.AttributePath, err error) CheckResult {
	return CheckResult{
		Name:       c.Name(),
		Status:     StatusWarn,
		Message:    fmt.Sprintf("%s: %s", path, errors.Headline(err)),
		Suggestion: fmt.Sprintf("Inspect the raw value: gputweak query %d %s --all", path.ID, path.Name),
	}
}

// Options selects the checks NewChecks builds.
type Options struct {
	// ConfigPath is the --config flag value, if any.
	ConfigPath string
	Config     *config.Config
	Runner     exec.Runner
	Adapter    *nvidia.Adapter
	// Dial overrides the SSH transport for the connection check.
	Dial exec.DialFunc
	// LookPath and Getenv override the local environment in tests.
	LookPath func(string) (string, error)
	Getenv   func(string) string
}

// NewChecks builds the full report in order: config, SSH (remote targets
// only), tool, then GPU.
func NewChecks(opts Options) []Check {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	checks := NewConfigChecks(opts.ConfigPath)

	if cfg.Remote() {
		checks = append(checks, NewSSHChecks(cfg.Host, opts.Dial)...)
		for _, c := range checks {
			if sc, ok := c.(*SSHConnectCheck); ok {
				sc.Timeout = dialTimeout(cfg)
			}
		}
	}

	checks = append(checks, &ToolCheck{
		Tool:     opts.Adapter.Tool(),
		Runner:   opts.Runner,
		Host:     cfg.Host,
		LookPath: opts.LookPath,
	})
	if !cfg.Remote() {
		checks = append(checks, &DisplayCheck{Display: cfg.Tool.Display, Getenv: opts.Getenv})
	}

	discovery := &DiscoveryCheck{Adapter: opts.Adapter}
	checks = append(checks, discovery, &AttributeReadCheck{Adapter: opts.Adapter, Discovery: discovery})
	return checks
}

func dialTimeout(cfg *config.Config) time.Duration {
	if cfg.Tool.Timeout > exec.DefaultDialTimeout {
		return cfg.Tool.Timeout
	}
	return exec.DefaultDialTimeout
}
