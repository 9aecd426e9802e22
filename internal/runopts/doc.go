// Package runopts holds RunOptions, the shape describing a single run, and
// the two control signals the graph uses to unwind early: ErrFinishRun
// (failfast) and ErrStopRun (a catastrophic teardown). Both are realized as
// sentinel errors checked with errors.Is at the single catch point in
// graph.RunnerGraph.Run, never as panics.
package runopts
