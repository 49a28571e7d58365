package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gputweak/gputweak/internal/gpu"
	"github.com/gputweak/gputweak/internal/nvidia"
	"github.com/gputweak/gputweak/internal/ui"
	"github.com/gputweak/gputweak/internal/util"
)

var (
	listJSON bool
	infoJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the GPUs nvidia-settings can see",
	Long: `List every GPU reported by 'nvidia-settings -q gpus'.

Examples:
  gputweak list
  gputweak list --json
  gputweak --host gpu-box list`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer s.close()
		return listCommand(cmd.Context(), s, listJSON)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <gpu>",
	Short: "Show constants and current readings of one GPU",
	Long: `Show the driver version, bus, memory and CUDA cores of a GPU along with
its current temperature, clocks, utilization and fan state.

Examples:
  gputweak info 0
  gputweak info gpu:1 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer s.close()
		return infoCommand(cmd.Context(), s, args[0], infoJSON)
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output in JSON format")
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "output in JSON format")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
}

// ListOutput is the JSON shape of "list".
type ListOutput struct {
	Target string      `json:"target"`
	GPUs   []GPUOutput `json:"gpus"`
}

// GPUOutput identifies one GPU.
type GPUOutput struct {
	ID         int    `json:"id"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

func listCommand(ctx context.Context, s *session, asJSON bool) error {
	list, err := s.adapter.ListGPUs(ctx)
	if err != nil {
		if asJSON {
			return jsonFailure(s.out, err)
		}
		return err
	}
	if len(list) == 0 {
		err := nvidia.NoGPUsError(s.adapter.Tool())
		if asJSON {
			return jsonFailure(s.out, err)
		}
		return err
	}

	out := ListOutput{Target: s.target(), GPUs: make([]GPUOutput, len(list))}
	for i, d := range list {
		out.GPUs[i] = GPUOutput{ID: d.ID, Identifier: gpu.Identifier(d.ID), Name: d.Name}
	}
	if asJSON {
		return WriteJSONSuccess(s.out, out)
	}

	titles := []string{"GPU", "NAME"}
	rows := make([][]string, len(out.GPUs))
	for i, g := range out.GPUs {
		rows[i] = []string{g.Identifier, g.Name}
	}
	fmt.Fprintln(s.out, ui.RenderSimpleTable(ui.FitColumns(titles, rows, 48), rows))
	fmt.Fprintln(s.out, ui.MutedStyle().Render(fmt.Sprintf("%d %s on %s",
		len(list), util.Pluralize(len(list), "GPU", "GPUs"), s.target())))
	return nil
}

// InfoOutput is the JSON shape of "info".
type InfoOutput struct {
	GPUOutput
	Vendor      string        `json:"vendor"`
	Constants   ConstantsJSON `json:"constants"`
	Variables   VariablesJSON `json:"variables"`
	CUDACores   *int          `json:"cuda_cores,omitempty"`
	FanControl  bool          `json:"fan_control_available"`
	ClockOffset bool          `json:"clock_control_available"`
}

// ConstantsJSON mirrors gpu.Constants.
type ConstantsJSON struct {
	DriverVersion string `json:"driver_version"`
	BusType       string `json:"bus_type"`
	BusID         string `json:"bus_id"`
	TotalMemoryMB int    `json:"total_memory_mb"`
}

// VariablesJSON mirrors gpu.Variables.
type VariablesJSON struct {
	CoreTemp          int  `json:"core_temp"`
	FanSpeed          int  `json:"fan_speed"`
	CoreClock         int  `json:"core_clock"`
	MemoryClock       int  `json:"memory_clock"`
	CoreUse           int  `json:"core_use"`
	MemoryUse         int  `json:"memory_use"`
	FanControlEnabled bool `json:"fan_control_enabled"`
}

func infoCommand(ctx context.Context, s *session, arg string, asJSON bool) error {
	fail := func(err error) error {
		if asJSON {
			return jsonFailure(s.out, err)
		}
		return err
	}

	d, err := s.device(ctx, arg)
	if err != nil {
		return fail(err)
	}
	if err := d.FetchConstants(ctx); err != nil {
		return fail(err)
	}
	if err := d.FetchVariables(ctx); err != nil {
		return fail(err)
	}

	out := infoOutput(d)
	if asJSON {
		return WriteJSONSuccess(s.out, out)
	}
	renderInfo(s.out, out, s.cfg.Monitor.Thresholds.Warning, s.cfg.Monitor.Thresholds.Critical)
	return nil
}

func infoOutput(d gpu.Device) InfoOutput {
	c, v := d.Constants(), d.Variables()
	out := InfoOutput{
		GPUOutput: GPUOutput{ID: d.ID(), Identifier: d.Identifier(), Name: d.Name()},
		Vendor:    d.Vendor(),
		Constants: ConstantsJSON{
			DriverVersion: c.DriverVersion,
			BusType:       c.BusType(),
			BusID:         c.BusID(),
			TotalMemoryMB: c.TotalMemoryMB,
		},
		Variables: VariablesJSON{
			CoreTemp:          v.CoreTemp,
			FanSpeed:          v.FanSpeed,
			CoreClock:         v.CoreClock,
			MemoryClock:       v.MemoryClock,
			CoreUse:           v.CoreUse,
			MemoryUse:         v.MemoryUse,
			FanControlEnabled: v.FanControlEnabled,
		},
		FanControl:  d.FanControlAvailable(),
		ClockOffset: d.CoreClockControlAvailable() || d.MemoryClockControlAvailable(),
	}
	if cores, ok := d.Extended(gpu.ExtCUDACores); ok {
		out.CUDACores = &cores
	}
	return out
}

func renderInfo(w io.Writer, out InfoOutput, warning, critical int) {
	c, v := out.Constants, out.Variables

	device := []ui.KeyValue{
		{Key: "Vendor", Value: out.Vendor},
		{Key: "Driver", Value: c.DriverVersion},
		{Key: "Bus", Value: c.BusType},
		{Key: "Bus ID", Value: c.BusID},
		{Key: "Memory", Value: fmt.Sprintf("%d MB", c.TotalMemoryMB)},
	}
	if out.CUDACores != nil {
		device = append(device, ui.KeyValue{Key: "CUDA cores", Value: fmt.Sprintf("%d", *out.CUDACores)})
	}
	fmt.Fprint(w, ui.RenderKeyValues(out.Identifier+"  "+out.Name, device))
	fmt.Fprintln(w)

	temp := ui.TemperatureStyle(v.CoreTemp, warning, critical).Render(fmt.Sprintf("%d°C", v.CoreTemp))
	fanMode := "auto"
	if v.FanControlEnabled {
		fanMode = "manual"
	}
	readings := []ui.KeyValue{
		{Key: "Temperature", Value: temp},
		{Key: "Core clock", Value: fmt.Sprintf("%d MHz", v.CoreClock)},
		{Key: "Memory clock", Value: fmt.Sprintf("%d MHz", v.MemoryClock)},
		{Key: "Core usage", Value: percent(v.CoreUse)},
		{Key: "Memory usage", Value: percent(v.MemoryUse)},
		{Key: "Fan", Value: fmt.Sprintf("%d%% (%s)", v.FanSpeed, fanMode)},
	}
	fmt.Fprint(w, ui.RenderKeyValues("Readings", readings))
}

func percent(v int) string {
	return ui.PercentStyle(float64(v)).Render(fmt.Sprintf("%d%%", v))
}

// jsonFailure writes err as a JSON envelope and still fails the command.
func jsonFailure(w io.Writer, err error) error {
	if werr := WriteJSONFromError(w, err); werr != nil {
		return werr
	}
	return errSilent{err}
}

// errSilent marks an error already reported on stdout.
type errSilent struct{ error }

func (e errSilent) Unwrap() error { return e.error }
