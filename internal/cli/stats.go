package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gputweak/gputweak/internal/config"
	"github.com/gputweak/gputweak/internal/gpu"
	"github.com/gputweak/gputweak/internal/history"
	"github.com/gputweak/gputweak/internal/logger"
	"github.com/gputweak/gputweak/internal/monitor"
	"github.com/gputweak/gputweak/internal/poller"
	"github.com/gputweak/gputweak/internal/ui"
)

// StatsOptions holds the stats flags. Zero values fall back to the config.
type StatsOptions struct {
	Interval time.Duration
	Refresh  time.Duration
	Window   time.Duration
	Metrics  []string
	// Plain prints one line per GPU per poll instead of the dashboard.
	Plain bool
	// Count stops plain output after this many polls. Zero runs until
	// interrupted.
	Count int
}

var statsOpts StatsOptions

// sparklineWidth is how many recent samples plain output shows.
const sparklineWidth = 20

var statsCmd = &cobra.Command{
	Use:   "stats [gpu...]",
	Short: "Live dashboard of GPU temperature, usage and clocks",
	Long: `Poll the GPUs and graph their readings over a sliding window.

On a terminal this opens an interactive dashboard. When output is piped,
or with --plain, one line per GPU is printed after every poll.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r           Poll now
  s           Cycle sort order (id/temperature/core usage)
  up/k        Select previous GPU
  down/j      Select next GPU
  Enter       Show GPU detail
  Esc         Back
  ?           Show help

Examples:
  gputweak stats
  gputweak stats 0 --window 5m
  gputweak stats --interval 5s --metrics core_temp,fan_speed
  gputweak stats --plain --count 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ParseInterval("interval", statsOpts.Interval); err != nil {
			return err
		}
		if err := ParseInterval("refresh", statsOpts.Refresh); err != nil {
			return err
		}

		s, err := openSession(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer s.close()

		interactive := !statsOpts.Plain && isTerminal(os.Stdout)
		if interactive && !logger.DebugEnabled() {
			// The dashboard owns the terminal; refresh warnings show up in it.
			log.SetOutput(io.Discard)
			defer log.SetOutput(os.Stderr)
		}
		return statsCommand(cmd.Context(), s, args, statsOpts, interactive)
	},
}

func init() {
	f := statsCmd.Flags()
	f.DurationVar(&statsOpts.Interval, "interval", 0, "time between polls (default from config, 2s)")
	f.DurationVar(&statsOpts.Refresh, "refresh", 0, "time between redraws (default from config, 1s)")
	f.DurationVar(&statsOpts.Window, "window", 0, "how much history the graphs show (default from config, 1m)")
	f.StringSliceVar(&statsOpts.Metrics, "metrics", nil, "metrics to graph, e.g. core_temp,core_use,fan_speed")
	f.BoolVar(&statsOpts.Plain, "plain", false, "print lines instead of the dashboard")
	f.IntVar(&statsOpts.Count, "count", 0, "with --plain, stop after this many polls")
	rootCmd.AddCommand(statsCmd)
}

// statsSetup is the wired poller and store for a stats run.
type statsSetup struct {
	poller  *poller.Poller
	store   *history.Store
	refresh time.Duration
}

func newStatsSetup(cfg *config.Config, devices []gpu.Device, opts StatsOptions, log logger.Logger) (*statsSetup, error) {
	metrics := cfg.Metrics()
	if len(opts.Metrics) > 0 {
		parsed, err := ParseMetrics(opts.Metrics)
		if err != nil {
			return nil, err
		}
		metrics = parsed
	}

	window := firstPositive(opts.Window, cfg.History.Window)
	store := history.New(window, history.WithMetrics(metrics...))

	p := poller.New(devices,
		poller.WithInterval(firstPositive(opts.Interval, cfg.Poll.Interval)),
		poller.WithDeviceTimeout(cfg.Poll.DeviceTimeout),
		poller.WithLogger(log),
	)
	p.Bind(store)

	// Discovery already read every device once.
	for _, d := range devices {
		if !d.Variables().UpdatedAt.IsZero() {
			store.Observe(d)
		}
	}

	return &statsSetup{
		poller:  p,
		store:   store,
		refresh: firstPositive(opts.Refresh, cfg.Monitor.Refresh),
	}, nil
}

func statsCommand(ctx context.Context, s *session, args []string, opts StatsOptions, interactive bool) error {
	devices, err := s.discover(ctx)
	if err != nil {
		return err
	}
	devices, err = selectDevices(devices, args)
	if err != nil {
		return err
	}

	setup, err := newStatsSetup(s.cfg, devices, opts, s.log)
	if err != nil {
		return err
	}
	defer setup.poller.Unbind()

	if interactive {
		m := monitor.NewModel(setup.poller, setup.store, monitor.Options{
			Host:       s.cfg.Host,
			Refresh:    setup.refresh,
			Thresholds: s.cfg.Monitor.Thresholds,
			Context:    ctx,
		})
		return monitor.Run(m)
	}
	return streamStats(ctx, s.out, setup, s.cfg.Monitor.Thresholds, opts.Count)
}

// streamStats polls in the background and prints a block per finished
// round until ctx is done or count rounds were printed.
func streamStats(ctx context.Context, w io.Writer, setup *statsSetup, th config.TemperatureThresholds, count int) error {
	ctx, cancel := context.WithCancel(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		setup.poller.Run(ctx)
	}()
	// The poller only returns once ctx is cancelled.
	defer func() {
		cancel()
		<-done
	}()

	printed := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-setup.poller.Updates():
			fmt.Fprintln(w, ui.MutedStyle().Render(u.Time.Format("15:04:05")))
			for _, d := range setup.poller.Devices() {
				fmt.Fprintln(w, statsLine(d, setup, th))
			}
			printed++
			if count > 0 && printed >= count {
				return nil
			}
		}
	}
}

// statsLine renders one GPU, e.g. "gpu:0  54°C ▂▃▅  core 37% ▁▂  mem 12%  fan auto".
func statsLine(d gpu.Device, setup *statsSetup, th config.TemperatureThresholds) string {
	v := d.Variables()
	parts := []string{ui.BoldStyle().Render(d.Identifier())}

	if st, ok := setup.poller.Status(d.ID()); ok && st.LastError != nil {
		parts = append(parts, ui.ErrorStyle().Render(ui.SymbolFail+" refresh failed"))
	}

	for _, m := range setup.store.Metrics() {
		series := setup.store.Series(d.ID(), m)
		values := make([]float64, len(series))
		for i, sample := range series {
			values[i] = sample.Value
		}

		var text, spark string
		switch {
		case m == history.CoreTemp:
			text = ui.TemperatureStyle(v.CoreTemp, th.Warning, th.Critical).Render(fmt.Sprintf("%d°C", v.CoreTemp))
			spark = ui.RenderSparkline(values, sparklineWidth, 30, 100, ui.TemperatureColor(v.CoreTemp, th.Warning, th.Critical))
		case m.IsPercent():
			cur, _ := m.Value(v)
			text = fmt.Sprintf("%s %s", shortName(m), ui.PercentStyle(cur).Render(fmt.Sprintf("%.0f%%", cur)))
			spark = ui.RenderPercentSparkline(values, sparklineWidth)
		default:
			cur, _ := m.Value(v)
			text = fmt.Sprintf("%s %.0f%s", shortName(m), cur, m.Unit())
			spark = ui.RenderSparkline(values, sparklineWidth, minOf(values), maxOf(values), ui.ColorInfo)
		}
		if spark != "" {
			text += " " + spark
		}
		parts = append(parts, text)
	}

	fanMode := "auto"
	if v.FanControlEnabled {
		fanMode = "manual"
	}
	parts = append(parts, ui.MutedStyle().Render("fan "+fanMode))
	return strings.Join(parts, "  ")
}

func shortName(m history.Metric) string {
	switch m {
	case history.CoreUse:
		return "core"
	case history.MemoryUse:
		return "mem"
	case history.FanSpeed:
		return "fan"
	case history.CoreClock:
		return "clk"
	case history.MemoryClock:
		return "memclk"
	}
	return string(m)
}

func firstPositive(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	lo := values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
	}
	return lo
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	hi := values[0]
	for _, v := range values[1:] {
		hi = max(hi, v)
	}
	return hi
}
