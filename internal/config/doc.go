// Package config loads a nested YAML mapping from a file path and exposes
// dot-path lookups over it. The core never parses config files itself; it
// only calls Get and Decode through the RunContext.
package config
