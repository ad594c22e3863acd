// File: internal/procname/procname_linux.go
//go:build linux
// +build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package procname

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Set locks the calling goroutine to its OS thread and names that thread.
// The returned release unlocks the thread; call it when the goroutine ends.
func Set(name string) (release func(), err error) {
	runtime.LockOSThread()
	p, err := unix.BytePtrFromString(Truncate(name))
	if err != nil {
		runtime.UnlockOSThread()
		return func() {}, err
	}
	if err := unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(p)), 0, 0, 0); err != nil {
		runtime.UnlockOSThread()
		return func() {}, err
	}
	return runtime.UnlockOSThread, nil
}
