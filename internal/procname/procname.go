// File: internal/procname/procname.go
// Package procname names the OS thread running a long-lived goroutine so
// the control worker shows up under its own name in ps, top and gdb.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package procname

// MaxLen is the kernel limit on a thread name, excluding the terminator.
const MaxLen = 15

// Truncate clips name to MaxLen bytes.
func Truncate(name string) string {
	if len(name) > MaxLen {
		return name[:MaxLen]
	}
	return name
}
