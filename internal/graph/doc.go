// Package graph implements the execution scheduler: RunnerGraph owns an
// arena of RunnerNodes addressed by index (rather than nodes holding direct
// pointers to each other both ways), and RunnerNode carries the
// execute/teardown/save-the-children/teardown-outstanding algorithms that
// drive a Task graph to completion.
package graph
