package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/gpu"
	"github.com/gputweak/gputweak/internal/history"
	"github.com/gputweak/gputweak/internal/nvidia"
	"github.com/gputweak/gputweak/internal/util"
)

// MinInterval keeps the poll loop from hammering nvidia-settings.
const MinInterval = 500 * time.Millisecond

// ParseInterval validates a --interval or --refresh value. Zero means the
// flag was not given.
func ParseInterval(flag string, d time.Duration) error {
	if d == 0 {
		return nil
	}
	if d < MinInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("--%s %s is too short", flag, d),
			"Minimum interval is 500ms to avoid overwhelming nvidia-settings")
	}
	return nil
}

// ParseMetrics parses a --metrics list such as "core_temp,fan_speed".
func ParseMetrics(list []string) ([]history.Metric, error) {
	var out []history.Metric
	for _, item := range list {
		for _, name := range strings.Split(item, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			m, err := history.ParseMetric(name)
			if err != nil {
				suggestion := "Valid metrics: " + util.JoinOrNone(metricNames())
				if similar := util.SuggestSimilar(name, metricNames(), 1); len(similar) > 0 {
					suggestion = "Did you mean " + similar[0] + "?"
				}
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					fmt.Sprintf("Unknown metric '%s'", name), suggestion)
			}
			out = append(out, m)
		}
	}
	return out, nil
}

func metricNames() []string {
	all := history.AllMetrics()
	names := make([]string, len(all))
	for i, m := range all {
		names[i] = string(m)
	}
	return names
}

// parseGPUArg accepts "0" or "gpu:0".
func parseGPUArg(arg string) (int, error) {
	id, err := gpu.ParseIdentifier(arg)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' isn't a GPU", arg),
			"Pass an index from 'gputweak list', like 0 or gpu:0")
	}
	return id, nil
}

// discover returns every GPU with constants and readings loaded. An empty
// listing is a DISCOVERY error here: every caller needs at least one GPU.
func (s *session) discover(ctx context.Context) ([]gpu.Device, error) {
	finish := s.startSpinner("Reading GPUs on " + s.target())

	devices, err := s.adapter.Discover(ctx)
	if err == nil && len(devices) == 0 {
		err = nvidia.NoGPUsError(s.adapter.Tool())
	}
	if err != nil {
		finish("", err)
		return nil, err
	}

	finish(fmt.Sprintf("Read %d %s on %s", len(devices), util.Pluralize(len(devices), "GPU", "GPUs"), s.target()), nil)
	return devices, nil
}

// device resolves one <gpu> argument without loading anything from it.
func (s *session) device(ctx context.Context, arg string) (*nvidia.GPU, error) {
	id, err := parseGPUArg(arg)
	if err != nil {
		return nil, err
	}

	list, err := s.adapter.ListGPUs(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nvidia.NoGPUsError(s.adapter.Tool())
	}

	available := make([]string, len(list))
	for i, d := range list {
		if d.ID == id {
			return nvidia.NewGPU(s.adapter, d.ID, d.Name), nil
		}
		available[i] = gpu.Identifier(d.ID)
	}
	return nil, errors.New(errors.ErrDiscovery,
		fmt.Sprintf("There is no %s on %s", gpu.Identifier(id), s.target()),
		"Available GPUs: "+util.JoinOrNone(available))
}

// selectDevices keeps the devices named in args, in argument order. No
// args selects all of them.
func selectDevices(devices []gpu.Device, args []string) ([]gpu.Device, error) {
	if len(args) == 0 {
		return devices, nil
	}

	selected := make([]gpu.Device, 0, len(args))
	seen := make(map[int]bool)
	for _, arg := range args {
		id, err := parseGPUArg(arg)
		if err != nil {
			return nil, err
		}
		d, ok := gpu.Find(devices, id)
		if !ok {
			return nil, errors.New(errors.ErrDiscovery,
				fmt.Sprintf("There is no %s", gpu.Identifier(id)),
				"Run 'gputweak list' to see the available GPUs")
		}
		if !seen[id] {
			seen[id] = true
			selected = append(selected, d)
		}
	}
	return selected, nil
}
