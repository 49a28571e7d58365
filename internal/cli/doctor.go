package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gputweak/gputweak/internal/config"
	"github.com/gputweak/gputweak/internal/doctor"
	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/logger"
	"github.com/gputweak/gputweak/internal/ui"
)

var (
	doctorJSON bool
	doctorFix  bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose config, SSH, nvidia-settings and GPU access",
	Long: `Run a series of checks against the configured target and report what
is missing: the config file, SSH access for remote hosts, the nvidia-settings
binary, the X display, GPU discovery and a sample attribute read.

Examples:
  gputweak doctor
  gputweak doctor --host gpu-box
  gputweak doctor --fix
  gputweak doctor --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := doctorSession(cmd.OutOrStdout())
		defer s.close()
		return doctorCommand(cmd.Context(), s, doctor.NewChecks(doctor.Options{
			ConfigPath: s.cfgPath,
			Config:     s.cfg,
			Runner:     s.runner,
			Adapter:    s.adapter,
		}), doctorFix, doctorJSON)
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output in JSON format")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "attempt automatic fixes where possible")
	rootCmd.AddCommand(doctorCmd)
}

// doctorSession opens a session even when the config is broken; the config
// checks report the problem instead.
func doctorSession(out io.Writer) *session {
	log := logger.NewEnvLogger("[gputweak]")
	cfg, path, err := loadConfig()
	if err != nil {
		log.Debug("doctor: config unusable, checking with defaults: %v", err)
		cfg = config.DefaultConfig()
		if hostFlag != "" {
			cfg.Host = hostFlag
		}
		if toolFlag != "" {
			cfg.Tool.Path = toolFlag
		}
		if timeoutFlag > 0 {
			cfg.Tool.Timeout = timeoutFlag
		}
		path = cfgFile
	}
	return newSession(cfg, path, out, log)
}

// DoctorOutput is the JSON shape of "doctor".
type DoctorOutput struct {
	Target  string               `json:"target"`
	Results []doctor.CheckResult `json:"results"`
	Summary SummaryOutput        `json:"summary"`
}

// SummaryOutput counts the results by status.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	Skip     int  `json:"skip"`
	Fixable  int  `json:"fixable"`
	AllClear bool `json:"all_clear"`
}

// errChecksFailed is returned after the report when a check failed.
var errChecksFailed = errSilent{errors.New(errors.ErrConfig, "Some checks failed", "")}

func doctorCommand(ctx context.Context, s *session, checks []doctor.Check, fix, asJSON bool) error {
	results := doctor.RunAll(ctx, checks)
	if fix {
		results = doctor.FixAll(ctx, checks, results)
	}

	if asJSON {
		counts := doctor.CountByStatus(results)
		out := DoctorOutput{
			Target:  s.target(),
			Results: results,
			Summary: SummaryOutput{
				Pass:     counts[doctor.StatusPass],
				Warn:     counts[doctor.StatusWarn],
				Fail:     counts[doctor.StatusFail],
				Skip:     counts[doctor.StatusSkip],
				Fixable:  doctor.FixableCount(results),
				AllClear: !doctor.HasIssues(results),
			},
		}
		if err := WriteJSONSuccess(s.out, out); err != nil {
			return err
		}
	} else {
		renderDoctor(s.out, s.target(), results, fix)
	}

	if doctor.HasFailures(results) {
		return errChecksFailed
	}
	return nil
}

func renderDoctor(w io.Writer, target string, results []doctor.CheckResult, fixed bool) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.BoldStyle().Render("gputweak diagnostics")+ui.MutedStyle().Render(" for "+target))
	fmt.Fprintln(w)
	fmt.Fprint(w, ui.RenderDoctorTable(doctor.Rows(results)))
	fmt.Fprintln(w, strings.Repeat("━", 60))

	if !doctor.HasIssues(results) {
		fmt.Fprintf(w, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), doctor.Summary(results))
		return
	}
	fmt.Fprintf(w, "%s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), doctor.Summary(results))
	if n := doctor.FixableCount(results); n > 0 && !fixed {
		fmt.Fprintf(w, "\n  Run with %s to attempt automatic fixes where possible.\n",
			ui.MutedStyle().Render("--fix"))
	}
}
