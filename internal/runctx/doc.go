// Package runctx holds the ambient state shared by every task in a single
// run: the list of attached emitters, the current nesting depth, and the
// loaded config mapping. Tasks never talk to emitters directly; they go
// through a RunContext so that nesting and fan-out stay centralized.
package runctx
