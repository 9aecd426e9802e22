// Package argstr parses the "k1=v1,k2=v2,..." argument mini-syntax used by
// the command-line surface to build a task.Args without a config file.
package argstr
