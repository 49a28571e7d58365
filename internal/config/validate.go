package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/history"
)

// MinPollInterval keeps the poll loop from hammering the tool.
const MinPollInterval = 100 * time.Millisecond

// ValidColors are the accepted output.color values.
var ValidColors = []string{"auto", "always", "never"}

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but gputweak only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Update gputweak, or lower 'version' in the config file.")
	}

	if err := validateHost(cfg.Host); err != nil {
		return err
	}

	if err := validateTool(cfg.Tool); err != nil {
		return errors.New(errors.ErrConfig, err.Error(), "Check the 'tool' section in your .gputweak.yaml.")
	}

	if err := validatePoll(cfg.Poll); err != nil {
		return errors.New(errors.ErrConfig, err.Error(), "Check the 'poll' section in your .gputweak.yaml.")
	}

	if err := validateHistory(cfg.History, cfg.Poll); err != nil {
		return errors.New(errors.ErrConfig, err.Error(), "Check the 'history' section in your .gputweak.yaml.")
	}

	if err := validateMonitor(cfg.Monitor); err != nil {
		return errors.New(errors.ErrConfig, err.Error(), "Check the 'monitor' section in your .gputweak.yaml.")
	}

	if err := validateOutput(cfg.Output); err != nil {
		return errors.New(errors.ErrConfig, err.Error(), "Check the 'output' section in your .gputweak.yaml.")
	}

	return nil
}

// validateHost checks the SSH target: an ssh_config alias, host, user@host
// or host:port.
func validateHost(host string) error {
	if host == "" {
		return nil
	}
	if strings.ContainsAny(host, " \t/") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' isn't a valid SSH target", host),
			"Use an SSH config alias, a hostname, or user@hostname.")
	}
	if strings.HasPrefix(host, "@") || strings.HasSuffix(host, "@") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' is missing a user or hostname", host),
			"Use the form user@hostname.")
	}
	return nil
}

func validateTool(t ToolConfig) error {
	if strings.TrimSpace(t.Path) == "" {
		return fmt.Errorf("tool.path is empty")
	}
	if t.Timeout <= 0 {
		return fmt.Errorf("tool.timeout must be positive, got %s", t.Timeout)
	}
	return nil
}

func validatePoll(p PollConfig) error {
	if p.Interval < MinPollInterval {
		return fmt.Errorf("poll.interval must be at least %s, got %s", MinPollInterval, p.Interval)
	}
	if p.DeviceTimeout <= 0 {
		return fmt.Errorf("poll.device_timeout must be positive, got %s", p.DeviceTimeout)
	}
	return nil
}

func validateHistory(h HistoryConfig, p PollConfig) error {
	if h.Window <= 0 {
		return fmt.Errorf("history.window must be positive, got %s", h.Window)
	}
	if h.Window < p.Interval {
		return fmt.Errorf("history.window (%s) is shorter than poll.interval (%s), graphs would stay empty", h.Window, p.Interval)
	}
	seen := make(map[string]bool)
	for _, name := range h.Metrics {
		if _, err := history.ParseMetric(name); err != nil {
			return fmt.Errorf("history.metrics: %w", err)
		}
		if seen[name] {
			return fmt.Errorf("history.metrics lists '%s' twice", name)
		}
		seen[name] = true
	}
	return nil
}

func validateMonitor(m MonitorConfig) error {
	if m.Refresh <= 0 {
		return fmt.Errorf("monitor.refresh must be positive, got %s", m.Refresh)
	}
	th := m.Thresholds
	if th.Warning <= 0 || th.Critical <= 0 {
		return fmt.Errorf("monitor.thresholds must be positive")
	}
	if th.Warning >= th.Critical {
		return fmt.Errorf("monitor.thresholds.warning (%d) must be below critical (%d)", th.Warning, th.Critical)
	}
	return nil
}

func validateOutput(o OutputConfig) error {
	for _, c := range ValidColors {
		if o.Color == c {
			return nil
		}
	}
	return fmt.Errorf("output.color must be one of %s, got '%s'", strings.Join(ValidColors, ", "), o.Color)
}

// Metrics converts history.metrics to typed values. Call after Validate.
func (c *Config) Metrics() []history.Metric {
	out := make([]history.Metric, 0, len(c.History.Metrics))
	for _, name := range c.History.Metrics {
		if m, err := history.ParseMetric(name); err == nil {
			out = append(out, m)
		}
	}
	return out
}
