// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics, debug introspection and file-driven hot reload for the
// render process.
//
// Provides concurrent-safe primitives including:
//   - Counters and gauges with snapshot reads
//   - Named debug probes evaluated on demand
//   - A Reloader that watches one file and runs hooks when it changes
//
// The package holds no process-wide state; every registry is an instance
// owned by whoever builds it.
package control
