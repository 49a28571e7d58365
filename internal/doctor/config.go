package doctor

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/gputweak/gputweak/internal/config"
	"github.com/gputweak/gputweak/internal/errors"
)

// ConfigFileCheck reports which config file is in effect. Running without
// one is fine: the defaults target the local nvidia-settings.
type ConfigFileCheck struct {
	ConfigPath string // Explicit path, or empty to search
}

func (c *ConfigFileCheck) Name() string     { return "config_file" }
func (c *ConfigFileCheck) Category() string { return CategoryConfig }

func (c *ConfigFileCheck) Run(context.Context) CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    errors.Headline(err),
			Suggestion: "Check the --config path, or drop it to use the search order",
		}
	}

	if path == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusPass,
			Message:    "No config file, using defaults",
			Suggestion: "Run 'gputweak config init' to create " + config.ConfigFileName,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Config file: %s", path),
	}
}

func (c *ConfigFileCheck) Fix() error {
	return nil // config init is interactive
}

// ConfigSchemaCheck loads and validates the config, environment overrides
// included.
type ConfigSchemaCheck struct {
	ConfigPath string
}

func (c *ConfigSchemaCheck) Name() string     { return "config_schema" }
func (c *ConfigSchemaCheck) Category() string { return CategoryConfig }

func (c *ConfigSchemaCheck) Run(context.Context) CheckResult {
	cfg, _, err := config.LoadOrDefault(c.ConfigPath)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Failed to load config: %s", errors.Headline(err)),
			Suggestion: "Check the YAML syntax in your config file",
		}
	}

	if err := config.Validate(cfg); err != nil {
		suggestion := "Fix the configuration errors in " + config.ConfigFileName
		var gtErr *errors.Error
		if stderrors.As(err, &gtErr) && gtErr.Suggestion != "" {
			suggestion = gtErr.Suggestion
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Schema error: %s", errors.Headline(err)),
			Suggestion: suggestion,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Schema valid",
	}
}

func (c *ConfigSchemaCheck) Fix() error {
	return nil // Schema issues require manual intervention
}

// NewConfigChecks creates all config-related checks.
func NewConfigChecks(configPath string) []Check {
	return []Check{
		&ConfigFileCheck{ConfigPath: configPath},
		&ConfigSchemaCheck{ConfigPath: configPath},
	}
}
