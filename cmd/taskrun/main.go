package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"taskrun/internal/cli"
)

// main is a deterministic boundary: it builds the command tree, lets cobra
// run the matched subcommand, and translates whatever error comes back
// into an exit code -- the same shape the teacher's cmd/scriptweaver/main.go
// uses, generalized from scriptweaver's own InvocationError family to
// cli.InvocationError.
func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "taskrun",
		Level: hclog.Info,
	})

	root := cli.NewRootCommand(logger)
	if err := root.Execute(); err != nil {
		var invErr *cli.InvocationError
		if errors.As(err, &invErr) {
			fmt.Fprintln(os.Stderr, invErr.Message)
			os.Exit(invErr.ExitCode)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitInternalError)
	}
}
