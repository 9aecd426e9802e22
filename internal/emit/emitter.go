package emit

import "io"

// Emitter is an external sink for lifecycle and log events. The graph
// invokes these at defined points; an Emitter's internal rendering is
// opaque to the core. task is passed as any to avoid a dependency from this
// package onto the task package — implementations that care about task
// identity can type-assert it to whatever interface they expect.
type Emitter interface {
	StartTask(task any)
	EndTask(task any)

	// Subcontext increments this emitter's own nesting counter.
	Subcontext()
	// PopSubcontext resets the nesting counter to level.
	PopSubcontext(level int)

	LogMessage(level Level, text string)
	LogResponse(task any, payload map[string]any)

	// LogFile opens a per-task auxiliary file. The returned handle closes
	// on Finalize or by the caller, whichever comes first.
	LogFile(description, extension, mode string) (io.WriteCloser, error)

	Finalize() error
}
