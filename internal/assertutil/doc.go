// Package assertutil provides AssertDict, a small structural-subset check
// for dictionaries with a readable diff on failure.
package assertutil
