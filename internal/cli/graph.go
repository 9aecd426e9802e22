package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"taskrun/internal/argstr"
	"taskrun/internal/graph"
	"taskrun/internal/task"
)

func newGraphCommand(logger hclog.Logger) *cobra.Command {
	var (
		argStr      string
		discoverAll bool
	)

	cmd := &cobra.Command{
		Use:   "graph <task-class>",
		Short: "Print the graph rooted at the named task class without running it",
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
			g, err := graph.NewRunnerGraph([]task.Task{root})
			if err != nil {
				return &InvocationError{ExitCode: ExitInternalError, Message: err.Error()}
			}

			printNode(cmd.OutOrStdout(), g, g.Root(), 0, map[*graph.RunnerGraph]bool{})
			return nil
		},
	}

	cmd.Flags().StringVar(&argStr, "args", "", "comma-separated key=value arguments for the root task")
	cmd.Flags().BoolVar(&discoverAll, "all", false, "allow selecting task classes not marked discoverable")
	return cmd
}

// printNode renders a node and its children as indented text. visited
// guards against re-descending into a node reachable from more than one
// parent (a diamond, not a cycle -- cycles among declared PARENTS are
// already rejected at graph construction).
func printNode(out io.Writer, g *graph.RunnerGraph, n *graph.RunnerNode, depth int, _ map[*graph.RunnerGraph]bool) {
	printNodeVisited(out, g, n, depth, map[*graph.RunnerNode]bool{})
}

func printNodeVisited(out io.Writer, g *graph.RunnerGraph, n *graph.RunnerNode, depth int, visited map[*graph.RunnerNode]bool) {
	if n == nil || visited[n] {
		return
	}
	visited[n] = true

	indent := strings.Repeat("  ", depth)
	label := n.Task().String()
	if depth == 0 {
		label = "(root)"
	}
	fmt.Fprintf(out, "%s%s\n", indent, label)
	for _, presented := range n.Task().Class().PresentedAttrs {
		fmt.Fprintf(out, "%s  presents: %s\n", indent, presented)
	}
	for _, childIdx := range n.Children() {
		printNodeVisited(out, g, g.Node(childIdx), depth+1, visited)
	}
}
