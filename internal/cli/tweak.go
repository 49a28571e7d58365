package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/tweak"
	"github.com/gputweak/gputweak/internal/ui"
)

// Actions offered at the end of the tweak form.
const (
	tweakApply  = "apply"
	tweakReset  = "reset"
	tweakCancel = "cancel"
)

var tweakCmd = &cobra.Command{
	Use:   "tweak <gpu>",
	Short: "Edit fan control interactively",
	Long: `Open a form with the current fan settings of a GPU. Edits stay pending
until you choose Apply; Reset hands the fan back to automatic control.

Examples:
  gputweak tweak 0`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
			return errors.New(errors.ErrConfig,
				"tweak needs an interactive terminal",
				"Use 'gputweak fan <gpu> <percent|auto>' in scripts")
		}

		s, err := openSession(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer s.close()

		d, err := s.device(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := d.FetchVariables(cmd.Context()); err != nil {
			return err
		}

		p := tweak.New(d)
		form, action := newTweakForm(p)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Check terminal compatibility or use 'gputweak fan'")
		}
		return finishTweak(cmd.Context(), s, p, action.choice, action.manual, action.speed)
	},
}

func init() {
	rootCmd.AddCommand(tweakCmd)
}

// tweakAnswers receives the form fields.
type tweakAnswers struct {
	manual bool
	speed  string
	choice string
}

func newTweakForm(p *tweak.Pending) (*huh.Form, *tweakAnswers) {
	st := p.Settings()
	d := p.Device()
	a := &tweakAnswers{
		manual: st.FanManual,
		speed:  strconv.Itoa(st.FanSpeed),
		choice: tweakApply,
	}

	clockNote := fmt.Sprintf("Core %d MHz, memory %d MHz. Clock control isn't available on this GPU.",
		st.CoreClock, st.MemoryClock)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(d.Identifier()+"  "+d.Name()).
				Description(fmt.Sprintf("Now %d°C, fan %d%%", d.Variables().CoreTemp, d.Variables().FanSpeed)),
			huh.NewConfirm().
				Title("Manual fan control").
				Affirmative("Manual").
				Negative("Auto").
				Value(&a.manual),
			huh.NewInput().
				Title("Fan speed (%)").
				Description("Used when manual control is on").
				Value(&a.speed).
				Validate(validateFanSpeed),
			huh.NewNote().
				Title("Clocks").
				Description(clockNote),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What now?").
				Options(
					huh.NewOption("Apply", tweakApply),
					huh.NewOption("Reset to automatic", tweakReset),
					huh.NewOption("Cancel", tweakCancel),
				).
				Value(&a.choice),
		),
	)
	return form, a
}

func validateFanSpeed(s string) error {
	v, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if err != nil {
		return fmt.Errorf("enter a whole number")
	}
	if v != tweak.Clamp(v) {
		return fmt.Errorf("fan speed must be between 0 and 100")
	}
	return nil
}

// finishTweak records the answers in p and applies them.
func finishTweak(ctx context.Context, s *session, p *tweak.Pending, choice string, manual bool, speed string) error {
	d := p.Device()
	switch choice {
	case tweakCancel:
		fmt.Fprintln(s.out, "Cancelled.")
		return nil
	case tweakReset:
		p.Reset()
	default:
		p.SetFanManual(manual)
		p.SetFanSpeedText(speed)
	}

	if !p.Dirty() {
		fmt.Fprintln(s.out, ui.MutedStyle().Render("Nothing to apply."))
		return nil
	}

	if err := p.Apply(ctx); err != nil {
		return errors.WrapWithCode(err, errors.CodeOrDefault(err, errors.ErrExec),
			fmt.Sprintf("Couldn't apply settings to %s", d.Identifier()),
			"Your edits were not applied. Manual fan control needs Coolbits enabled.")
	}

	st := p.Settings()
	fmt.Fprintf(s.out, "%s Applied to %s: fan %s\n",
		ui.SuccessStyle().Render(ui.SymbolSuccess), d.Identifier(), describeFan(st.FanManual, st.FanSpeed))
	return nil
}
