package cli

import (
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the taskrun command tree. logger is the ambient
// operational logger for diagnostics that fall outside a RunContext's own
// emitters; currently only the run subcommand writes to it, when a run
// aborts with an error.
func NewRootCommand(logger hclog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskrun",
		Short:         "Run declaratively linked setup/run/teardown task graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand(logger))
	root.AddCommand(newGraphCommand(logger))
	root.AddCommand(newListCommand(logger))
	return root
}
