// Package task defines the user-extensible unit of work: a Task carries
// setup/run/teardown phases, an inherited argument and config schema, a set
// of attributes it presents to descendants, and the bookkeeping (status,
// error, teardown stack) the graph needs to sequence it.
//
// Go has no metaclass hook to rewrite a subclass's attributes at definition
// time, so the schema merging that ARGUMENTS/CONFIG_DEFAULTS/PRESENTED_ATTRS
// require happens through an explicit builder (Class, built by NewClass)
// instead of being inferred from the type. A Task author embeds BaseTask,
// calls Bind so the base can dispatch to overridden methods, and registers
// a Class once at package init time.
package task
