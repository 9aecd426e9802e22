// Package emit defines the event taxonomy and sink contract that the task
// graph reports through. The graph itself never renders anything: it calls
// an Emitter at defined points and leaves presentation to the sink.
package emit
