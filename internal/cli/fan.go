package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/gpu"
	"github.com/gputweak/gputweak/internal/tweak"
	"github.com/gputweak/gputweak/internal/ui"
)

var fanCmd = &cobra.Command{
	Use:   "fan <gpu> <percent|auto>",
	Short: "Set a fixed fan speed or hand control back to the driver",
	Long: `Enable manual fan control and set the target speed, or return the fan
to automatic control.

Manual fan control needs Coolbits enabled in the X server configuration.

Examples:
  gputweak fan 0 70
  gputweak fan gpu:1 auto`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer s.close()

		manual, speed, err := parseFanArg(args[1])
		if err != nil {
			return err
		}
		d, err := s.device(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return fanCommand(cmd.Context(), s, d, manual, speed)
	},
}

func init() {
	rootCmd.AddCommand(fanCmd)
}

// parseFanArg accepts "auto" or a percentage such as "70" or "70%".
func parseFanArg(arg string) (manual bool, speed int, err error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	if arg == "auto" {
		return false, 0, nil
	}
	speed, err = strconv.Atoi(strings.TrimSuffix(arg, "%"))
	if err != nil {
		return false, 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' isn't a fan speed", arg),
			"Pass a percentage between 0 and 100, or 'auto'")
	}
	if speed < 0 || speed > 100 {
		return false, 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("Fan speed %d%% is out of range", speed),
			"Pass a percentage between 0 and 100")
	}
	return true, speed, nil
}

// fanCommand applies the fan setting through a pending edit so the control
// state is switched before the speed is written.
func fanCommand(ctx context.Context, s *session, d gpu.Device, manual bool, speed int) error {
	if err := d.FetchVariables(ctx); err != nil {
		return err
	}

	p := tweak.New(d)
	p.SetFanManual(manual)
	if manual {
		p.SetFanSpeed(speed)
	}

	if !p.Dirty() {
		fmt.Fprintf(s.out, "%s %s fan is already %s\n",
			ui.MutedStyle().Render(ui.SymbolComplete), d.Identifier(), describeFan(manual, speed))
		return nil
	}

	if err := p.Apply(ctx); err != nil {
		return errors.WrapWithCode(err, errors.CodeOrDefault(err, errors.ErrExec),
			fmt.Sprintf("Couldn't change the fan of %s", d.Identifier()),
			"Manual fan control needs Coolbits, e.g. 'nvidia-xconfig --cool-bits=4', and a restarted X server")
	}

	v := d.Variables()
	fmt.Fprintf(s.out, "%s %s fan %s (now %d%%)\n",
		ui.SuccessStyle().Render(ui.SymbolSuccess), d.Identifier(), describeFan(manual, speed), v.FanSpeed)
	return nil
}

func describeFan(manual bool, speed int) string {
	if !manual {
		return "on automatic control"
	}
	return fmt.Sprintf("set to %d%%", speed)
}
