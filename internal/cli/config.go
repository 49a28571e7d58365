package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/gputweak/gputweak/internal/config"
	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/ui"
	"github.com/gputweak/gputweak/pkg/sshutil"
)

// ConfigInitOptions holds the "config init" flags.
type ConfigInitOptions struct {
	Host    string
	Display string
	Global  bool
	Force   bool
}

var configInitOpts ConfigInitOptions

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create, show or edit the gputweak config",
	Long: `gputweak reads .gputweak.yaml from the current directory or a parent
(stopping at the git root), then ~/.config/gputweak/config.yaml. Any key can
be overridden with a GPUTWEAK_ environment variable, e.g. GPUTWEAK_HOST.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a new config file",
	Long: `Write a config file with the defaults. Without --host, pick the target
from your ~/.ssh/config aliases or choose the local machine.

Examples:
  gputweak config init
  gputweak config init --host gpu-box
  gputweak config init --global --display :1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := configInitOpts
		interactive := isTerminal(os.Stdin) && isTerminal(os.Stdout)
		if !cmd.Flags().Changed("host") && interactive {
			host, cancelled, err := promptHost(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if cancelled {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			opts.Host = host
		}

		path := configInitPath(opts.Global)
		if _, err := os.Stat(path); err == nil && !opts.Force && interactive {
			overwrite, err := confirmOverwrite(path)
			if err != nil {
				return err
			}
			if !overwrite {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			opts.Force = true
		}
		return configInitCommand(cmd.OutOrStdout(), path, opts)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config",
	Long: `Print the config after defaults, the config file, environment variables
and global flags have been applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		return configShowCommand(cmd.OutOrStdout(), cfg, path)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one key in the config file",
	Long: `Set a dotted key in the config file that would be loaded. Comments and
key order are kept. Lists take comma-separated values.

Examples:
  gputweak config set host gpu-box
  gputweak config set poll.interval 5s
  gputweak config set history.metrics core_temp,fan_speed`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Find(cfgFile)
		if err != nil {
			return err
		}
		return configSetCommand(cmd.OutOrStdout(), path, args[0], args[1])
	},
}

func init() {
	f := configInitCmd.Flags()
	f.StringVar(&configInitOpts.Host, "host", "", "SSH host running the X server (empty for this machine)")
	f.StringVar(&configInitOpts.Display, "display", "", "X display for nvidia-settings, e.g. :0")
	f.BoolVar(&configInitOpts.Global, "global", false, "write ~/.config/gputweak/config.yaml instead of ./"+config.ConfigFileName)
	f.BoolVar(&configInitOpts.Force, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd, configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func configInitPath(global bool) string {
	if global {
		return config.GlobalPath()
	}
	return filepath.Join(".", config.ConfigFileName)
}

func configInitCommand(w io.Writer, path string, opts ConfigInitOptions) error {
	cfg := config.DefaultConfig()
	cfg.Host = strings.TrimSpace(opts.Host)
	if cfg.Host == ui.LocalHost {
		cfg.Host = ""
	}
	cfg.Tool.Display = opts.Display
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Write(path, cfg, opts.Force); err != nil {
		return err
	}

	target := cfg.Host
	if target == "" {
		target = ui.LocalHost
	}
	fmt.Fprintf(w, "%s Wrote %s (target: %s)\n", ui.SuccessStyle().Render(ui.SymbolSuccess), path, target)
	fmt.Fprintln(w, ui.MutedStyle().Render("  Run 'gputweak doctor' to check the setup."))
	return nil
}

// hostOptions offers the local machine first, then every ssh config alias.
func hostOptions(entries []sshutil.HostEntry) []ui.HostOption {
	opts := []ui.HostOption{{Name: ui.LocalHost, Description: "nvidia-settings on this machine"}}
	for _, e := range entries {
		opts = append(opts, ui.HostOption{
			Name:        e.Alias,
			Description: e.Description(),
			Search:      e.Hostname,
		})
	}
	return opts
}

func promptHost(out io.Writer) (host string, cancelled bool, err error) {
	entries, err := sshutil.ConfiguredHosts()
	if err != nil {
		// A missing or unreadable ssh config only limits the choices.
		entries = nil
	}

	name, manual, cancelled, err := ui.PickHost(hostOptions(entries), os.Stdin, out)
	if err != nil {
		return "", false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Pass --host to skip the picker")
	}
	if cancelled || !manual {
		return name, cancelled, nil
	}

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("SSH host").
			Description("user@host, host:port or an alias").
			Value(&host),
	))
	if err := form.Run(); err != nil {
		return "", false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Pass --host to skip the prompt")
	}
	return host, false, nil
}

func confirmOverwrite(path string) (bool, error) {
	var overwrite bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("'%s' already exists. Overwrite?", path)).
			Value(&overwrite),
	))
	if err := form.Run(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Try running with --force to overwrite")
	}
	return overwrite, nil
}

func configShowCommand(w io.Writer, cfg *config.Config, path string) error {
	data, err := config.Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't render config", "")
	}
	source := path
	if source == "" {
		source = "defaults (no config file found)"
	}
	fmt.Fprintf(w, "# source: %s\n", source)
	_, err = w.Write(data)
	return err
}

func configSetCommand(w io.Writer, path, key, value string) error {
	if path == "" {
		return errors.New(errors.ErrConfig,
			"No config file to change",
			"Run 'gputweak config init' first")
	}
	if err := config.SetValue(path, key, value); err != nil {
		return errors.WrapWithCode(err, errors.CodeOrDefault(err, errors.ErrConfig),
			fmt.Sprintf("Couldn't set %s", key),
			"Check the key name and value; 'gputweak config show' lists the keys")
	}
	fmt.Fprintf(w, "%s %s = %s in %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), key, value, path)
	return nil
}
