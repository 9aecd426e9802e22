// Package cli wires the taskrun binary's subcommands. It mirrors the
// teacher's cmd/scriptweaver boundary of canonicalizing invocation state
// before any engine code runs, and its ExitCode family, but builds the
// surface on cobra/pflag instead of the stdlib flag package.
package cli
