package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gputweak/gputweak/internal/config"
	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/exec"
	"github.com/gputweak/gputweak/internal/logger"
	"github.com/gputweak/gputweak/internal/nvidia"
	"github.com/gputweak/gputweak/internal/ui"
	"github.com/gputweak/gputweak/internal/util"
)

// Global flags, shared by every command.
var (
	cfgFile     string
	hostFlag    string
	toolFlag    string
	timeoutFlag time.Duration
	verboseFlag bool
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "gputweak",
	Short: "Monitor and tune NVIDIA GPUs through nvidia-settings",
	Long: `gputweak reads GPU telemetry through nvidia-settings, graphs it in a
terminal dashboard and adjusts fan control.

It runs nvidia-settings on this machine, or on another one over SSH
when a host is configured (--host or "host" in .gputweak.yaml).

Examples:
  gputweak list
  gputweak stats
  gputweak fan 0 70
  gputweak --host gpu-box stats`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verboseFlag {
			os.Setenv(logger.DebugEnv, "1")
		}
		if noColorFlag {
			ui.DisableColors()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .gputweak.yaml, then ~/.config/gputweak/config.yaml)")
	pf.StringVar(&hostFlag, "host", "", "run nvidia-settings on this SSH host instead of locally")
	pf.StringVar(&toolFlag, "tool", "", "path to nvidia-settings")
	pf.DurationVar(&timeoutFlag, "timeout", 0, "timeout for each nvidia-settings invocation (e.g. 5s)")
	pf.BoolVarP(&verboseFlag, "verbose", "v", false, "print debug output")
	pf.BoolVar(&noColorFlag, "no-color", false, "disable colored output")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError renders structured errors as-is and adds a hint for mistyped
// commands.
func printError(w io.Writer, err error) {
	var silent errSilent
	if stderrors.As(err, &silent) {
		return
	}

	if isUnknownCommandError(err) {
		fmt.Fprintln(w, ui.ErrorStyle().Render(ui.SymbolFail+" "+err.Error()))
		if name := extractUnknownCommand(err); name != "" {
			if similar := util.SuggestSimilar(name, commandNames(), 3); len(similar) > 0 {
				fmt.Fprintf(w, "\n  Did you mean: %s?\n", strings.Join(similar, ", "))
			}
		}
		fmt.Fprintln(w, "\n  Run 'gputweak --help' to see the available commands.")
		return
	}

	var structured *errors.Error
	if stderrors.As(err, &structured) {
		fmt.Fprint(w, ui.ErrorStyle().Render(strings.TrimRight(err.Error(), "\n")))
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintln(w, ui.ErrorStyle().Render(ui.SymbolFail+" "+err.Error()))
}

func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag")
}

// extractUnknownCommand pulls the name out of cobra's
// `unknown command "foo" for "gputweak"`.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

func commandNames() []string {
	var names []string
	for _, c := range rootCmd.Commands() {
		if !c.Hidden {
			names = append(names, c.Name())
		}
	}
	return names
}

// session is what a GPU command needs: the effective config and an adapter
// talking to the configured target.
type session struct {
	cfg     *config.Config
	cfgPath string
	runner  exec.Runner
	adapter *nvidia.Adapter
	log     logger.Logger
	out     io.Writer
	close   func()

	// progress receives discovery spinners; nil keeps them off.
	progress io.Writer
}

// newRunner builds the transport for cfg. Tests replace it with a fake.
var newRunner = func(cfg *config.Config, log logger.Logger) (exec.Runner, func()) {
	if cfg.Remote() {
		r := exec.NewSSHRunner(cfg.Host, cfg.Tool.Timeout)
		r.Log = log
		return r, func() { r.Close() }
	}
	return exec.NewLocalRunner(cfg.Tool.Timeout), func() {}
}

// loadConfig finds and validates the config, then applies the global flags.
func loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, "", err
	}
	if hostFlag != "" {
		cfg.Host = hostFlag
	}
	if toolFlag != "" {
		cfg.Tool.Path = toolFlag
	}
	if timeoutFlag > 0 {
		cfg.Tool.Timeout = timeoutFlag
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}

	if !noColorFlag {
		ui.ConfigureColors(cfg.Output.Color, isTerminal(os.Stdout))
	}
	return cfg, path, nil
}

// openSession loads the config and connects an adapter to the target.
func openSession(out io.Writer) (*session, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s := newSession(cfg, path, out, logger.NewEnvLogger("[gputweak]"))
	if isTerminal(os.Stderr) && !logger.DebugEnabled() {
		s.progress = os.Stderr
	}
	return s, nil
}

func newSession(cfg *config.Config, path string, out io.Writer, log logger.Logger) *session {
	runner, closeFn := newRunner(cfg, log)
	adapter := nvidia.NewAdapter(runner,
		nvidia.WithTool(cfg.Tool.Path),
		nvidia.WithDisplay(cfg.Tool.Display),
		nvidia.WithLogger(log),
	)
	return &session{
		cfg:     cfg,
		cfgPath: path,
		runner:  runner,
		adapter: adapter,
		log:     log,
		out:     out,
		close:   closeFn,
	}
}

// target names where nvidia-settings runs, for headers and messages.
func (s *session) target() string {
	if s.cfg.Remote() {
		return s.cfg.Host
	}
	return ui.LocalHost
}

// startSpinner shows label on the progress writer. The returned func
// finishes it with the outcome of err and relabels it on success.
func (s *session) startSpinner(label string) func(done string, err error) {
	if s.progress == nil {
		return func(string, error) {}
	}
	sp := ui.NewSpinner(label)
	sp.SetOutput(s.progress)
	sp.Start()
	return func(done string, err error) {
		if err != nil {
			sp.Fail()
			return
		}
		sp.SetLabel(done)
		sp.Success()
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
