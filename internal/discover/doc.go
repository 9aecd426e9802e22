// Package discover replaces the source language's filesystem walk-and-import
// scan with the idiomatic Go registration pattern used across the
// ecosystem by packages like database/sql: a task package registers its
// classes from its own init(), and discover.Walk filters the resulting
// registry the same way walk_tasks filtered an import-time module scan.
package discover
