package cli

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"taskrun/internal/argstr"
	"taskrun/internal/emit"
	"taskrun/internal/graph"
	"taskrun/internal/runopts"
	"taskrun/internal/task"
)

func newRunCommand(logger hclog.Logger) *cobra.Command {
	var (
		argStr        string
		configPath    string
		failfast      bool
		randomOrder   bool
		debug         bool
		rerunFailures int
		discoverAll   bool
		structuredLog string
	)

	cmd := &cobra.Command{
		Use:   "run <task-class>",
		Short: "Build a graph rooted at the named task class and execute it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			entry, err := findClass(positional[0], discoverAll)
			if err != nil {
				return err
			}

			args, err := argstr.Parse(argStr)
			if err != nil {
				return &InvocationError{ExitCode: ExitInvalidInvocation, Message: err.Error()}
			}

			root := entry.Class.New(args)

			emitters := []emit.Emitter{emit.NewTerminalEmitter()}
			if structuredLog != "" {
				f, ferr := openStructuredLog(structuredLog)
				if ferr != nil {
					return &InvocationError{ExitCode: ExitInternalError, Message: ferr.Error()}
				}
				emitters = append(emitters, emit.NewStructuredFileEmitter(f))
			}

			g, err := graph.NewRunnerGraph([]task.Task{root})
			if err != nil {
				return &InvocationError{ExitCode: ExitInternalError, Message: err.Error()}
			}

			opts := &runopts.Options{
				RandomOrder:    randomOrder,
				ConfigFilepath: configPath,
				Emitters:       emitters,
				Debug:          debug,
				Failfast:       failfast,
			}
			if cmd.Flags().Changed("rerun-failures") {
				opts.RerunFailures = &rerunFailures
			}

			success, err := g.Run(opts)
			if err != nil {
				logger.Error("run aborted", "error", err)
				return &InvocationError{ExitCode: ExitInternalError, Message: err.Error()}
			}
			if !success {
				return &InvocationError{ExitCode: ExitRunFailure, Message: "run completed with failures"}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "run completed successfully")
			return nil
		},
	}

	cmd.Flags().StringVar(&argStr, "args", "", "comma-separated key=value arguments for the root task")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	cmd.Flags().BoolVar(&failfast, "failfast", false, "abort the run on the first non-skip failure")
	cmd.Flags().BoolVar(&randomOrder, "random-order", false, "shuffle sibling task and teardown order")
	cmd.Flags().BoolVar(&debug, "debug", false, "drop into a post-mortem hook on task failure")
	cmd.Flags().IntVar(&rerunFailures, "rerun-failures", 0, "retry failed branches this many times")
	cmd.Flags().BoolVar(&discoverAll, "all", false, "allow selecting task classes not marked discoverable")
	cmd.Flags().StringVar(&structuredLog, "json-log", "", "also write JSON-lines events to this file")

	return cmd
}
