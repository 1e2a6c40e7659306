//go:build unix

package spawn

import "syscall"

// detachAttr puts the child in its own process group so signals aimed at
// the daemon do not reach launched applications.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
