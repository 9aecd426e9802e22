package runopts

import (
	"errors"

	"taskrun/internal/emit"
)

// ErrFinishRun unwinds the run when failfast triggers on a non-skip
// status; caught only at the top-level run loop.
var ErrFinishRun = errors.New("finish run")

// ErrStopRun unwinds the run when a teardown produces CATASTROPHIC.
var ErrStopRun = errors.New("stop run")

// Options shapes one run of a RunnerGraph.
type Options struct {
	// RandomOrder shuffles sibling execution order and teardown choice.
	RandomOrder bool
	// ConfigFilepath is applied to each task via SetConfigFilepath.
	ConfigFilepath string
	// Emitters is attached to every task before it runs.
	Emitters []emit.Emitter
	// Debug drops into a post-mortem hook on failure.
	Debug bool
	// Failfast aborts the whole run on the first non-skip failure.
	Failfast bool
	// RerunFailures, when non-nil, is the number of retries of failed
	// nodes the top-level loop performs. Nil disables rerun entirely,
	// distinct from a zero value (which still scores the single pass).
	RerunFailures *int
	// BetweenTasks is an optional callback invoked between tasks.
	BetweenTasks func()
}
