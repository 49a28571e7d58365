package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gputweak/gputweak/internal/nvidia"
)

// QueryOptions selects what "query" prints.
type QueryOptions struct {
	Fan bool   // address [fan:N] instead of [gpu:N]
	Key string // print one integer from a compound value
	All bool   // print every key=value pair of a compound value
}

var queryOpts QueryOptions

var queryCmd = &cobra.Command{
	Use:   "query <gpu> <attribute>",
	Short: "Read one raw nvidia-settings attribute",
	Long: `Read a single attribute the way gputweak does internally: "-t -q [gpu:N]/Name".

Compound values such as GPUUtilization ("graphics=37, memory=12, ...") can
be split with --key or --all.

Examples:
  gputweak query 0 GPUCoreTemp
  gputweak query 0 GPUUtilization --key graphics
  gputweak query 0 GPUCurrentClockFreqsString --all
  gputweak query 0 GPUCurrentFanSpeed --fan`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer s.close()
		return queryCommand(cmd.Context(), s, args[0], args[1], queryOpts)
	},
}

func init() {
	queryCmd.Flags().BoolVar(&queryOpts.Fan, "fan", false, "query the fan target ([fan:N]) instead of the GPU")
	queryCmd.Flags().StringVar(&queryOpts.Key, "key", "", "print one key of a compound value")
	queryCmd.Flags().BoolVar(&queryOpts.All, "all", false, "print every key of a compound value")
	queryCmd.MarkFlagsMutuallyExclusive("key", "all")
	rootCmd.AddCommand(queryCmd)
}

func queryCommand(ctx context.Context, s *session, gpuArg, attribute string, opts QueryOptions) error {
	id, err := parseGPUArg(gpuArg)
	if err != nil {
		return err
	}

	path := nvidia.GPUAttr(id, attribute)
	if opts.Fan {
		path = nvidia.FanAttr(id, attribute)
	}

	value, err := s.adapter.Query(ctx, path)
	if err != nil {
		return err
	}

	switch {
	case opts.Key != "":
		n, err := nvidia.ParseCompound(value, opts.Key)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, n)
	case opts.All:
		pairs := nvidia.ParseCompoundAll(value)
		keys := make([]string, 0, len(pairs))
		for k := range pairs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(s.out, "%s=%d\n", k, pairs[k])
		}
	default:
		fmt.Fprintln(s.out, value)
	}
	return nil
}
