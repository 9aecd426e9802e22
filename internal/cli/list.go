package cli

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"taskrun/internal/discover"
)

func newListCommand(logger hclog.Logger) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered task classes",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, e := range discover.Walk(all) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.Package, e.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include task classes not marked discoverable")
	return cmd
}

func findClass(name string, all bool) (*discover.Entry, error) {
	for _, e := range discover.Walk(all) {
		if e.Name == name {
			return &e, nil
		}
	}
	return nil, &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf("no registered task class named %q", name)}
}
