package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/gputweak/gputweak/internal/errors"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".gputweak.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/gputweak"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. GPUTWEAK_TOOL_DISPLAY.
	EnvPrefix = "GPUTWEAK"
)

// Load reads config from the specified path. Environment overrides apply.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'gputweak config init' to create a config file, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .gputweak.yaml in current directory
// 3. .gputweak.yaml in parent directories (stops at git root or home)
// 4. ~/.config/gputweak/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	home, _ := os.UserHomeDir()
	if !isGitRoot(cwd) {
		dir := cwd
		for {
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			if home != "" && parent == home {
				// Don't go above home directory
				break
			}
			dir = parent

			configPath := filepath.Join(dir, ConfigFileName)
			if _, err := os.Stat(configPath); err == nil {
				return configPath, nil
			}

			if isGitRoot(dir) {
				break
			}
		}
	}

	if globalConfig := GlobalPath(); globalConfig != "" {
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// GlobalPath returns ~/.config/gputweak/config.yaml, or "" without a home.
func GlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}

// LoadOrDefault loads the config found from explicit, or returns defaults
// (with environment overrides) when there is no file. The returned path is
// empty in the latter case.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg, err := parseConfig(newViper(), "environment")
		return cfg, "", err
	}

	cfg, err := Load(path)
	return cfg, path, err
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every key so environment overrides reach Unmarshal
// even when the file leaves the key out.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("host", d.Host)
	v.SetDefault("tool.path", d.Tool.Path)
	v.SetDefault("tool.display", d.Tool.Display)
	v.SetDefault("tool.timeout", d.Tool.Timeout)
	v.SetDefault("poll.interval", d.Poll.Interval)
	v.SetDefault("poll.device_timeout", d.Poll.DeviceTimeout)
	v.SetDefault("history.window", d.History.Window)
	v.SetDefault("history.metrics", d.History.Metrics)
	v.SetDefault("monitor.refresh", d.Monitor.Refresh)
	v.SetDefault("monitor.thresholds.warning", d.Monitor.Thresholds.Warning)
	v.SetDefault("monitor.thresholds.critical", d.Monitor.Thresholds.Critical)
	v.SetDefault("output.color", d.Output.Color)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, source string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+source)
	}

	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Tool.Path = ExpandToolPath(cfg.Tool.Path, cfg.Host)

	return cfg, nil
}

// isGitRoot checks if a directory is a git repository root.
func isGitRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	if err != nil {
		return false
	}
	return info.IsDir()
}
