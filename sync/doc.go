// Package sync provides Gc, a thread-safe cycle-collecting shared-ownership
// pointer: the counterpart to unsync.Gc for reference graphs that cross
// goroutine boundaries. Its counts are atomic and its registry is a
// fixed-size lock-free hash table rather than a single-goroutine map, so
// construction and cloning never block; only a collection itself takes an
// exclusive lock over the table, and even then only one goroutine at a time
// actually becomes the collector (see collect.go).
//
// This package is named sync because the upstream it was translated from
// names the variant that way; its own source files import the standard
// library's sync package under the alias stdsync to avoid shadowing it.
package sync
