package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .gputweak.yaml configuration file.
type Config struct {
	Version int           `yaml:"version" mapstructure:"version"`
	Host    string        `yaml:"host" mapstructure:"host"`
	Tool    ToolConfig    `yaml:"tool" mapstructure:"tool"`
	Poll    PollConfig    `yaml:"poll" mapstructure:"poll"`
	History HistoryConfig `yaml:"history" mapstructure:"history"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
}

// ToolConfig describes how nvidia-settings is invoked.
type ToolConfig struct {
	// Path is the executable, looked up in PATH when not absolute.
	Path string `yaml:"path" mapstructure:"path"`

	// Display is passed as "-c <display>" when set, e.g. ":0".
	Display string `yaml:"display" mapstructure:"display"`

	// Timeout bounds every single invocation.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// PollConfig controls the refresh loop.
type PollConfig struct {
	Interval      time.Duration `yaml:"interval" mapstructure:"interval"`
	DeviceTimeout time.Duration `yaml:"device_timeout" mapstructure:"device_timeout"`
}

// HistoryConfig controls how much telemetry is kept for graphs.
type HistoryConfig struct {
	Window time.Duration `yaml:"window" mapstructure:"window"`

	// Metrics lists the tracked series, e.g. core_temp, core_use.
	Metrics []string `yaml:"metrics" mapstructure:"metrics"`
}

// MonitorConfig controls the stats dashboard.
type MonitorConfig struct {
	// Refresh is how often graphs are redrawn.
	Refresh time.Duration `yaml:"refresh" mapstructure:"refresh"`

	// Thresholds color temperature readings.
	Thresholds TemperatureThresholds `yaml:"thresholds" mapstructure:"thresholds"`
}

// TemperatureThresholds are °C limits for warning and critical colors.
type TemperatureThresholds struct {
	Warning  int `yaml:"warning" mapstructure:"warning"`
	Critical int `yaml:"critical" mapstructure:"critical"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	// "auto" disables color when output is piped.
	Color string `yaml:"color" mapstructure:"color"`
}

// Remote reports whether the tool runs on another machine over SSH.
func (c *Config) Remote() bool {
	return c.Host != ""
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Tool: ToolConfig{
			Path:    "nvidia-settings",
			Timeout: 5 * time.Second,
		},
		Poll: PollConfig{
			Interval:      2 * time.Second,
			DeviceTimeout: 15 * time.Second,
		},
		History: HistoryConfig{
			Window:  60 * time.Second,
			Metrics: []string{"core_temp", "core_use", "memory_use"},
		},
		Monitor: MonitorConfig{
			Refresh: time.Second,
			Thresholds: TemperatureThresholds{
				Warning:  70,
				Critical: 85,
			},
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}
