// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package cacheserver

import "syscall"

// detachedSysProcAttr puts the child in its own session so it has no
// controlling terminal and survives the helper's exit.
func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
