// File: internal/procname/procname_other.go
//go:build !linux
// +build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package procname

// Set is a no-op where threads cannot be named; pprof labels carry the name.
func Set(name string) (release func(), err error) {
	return func() {}, nil
}
