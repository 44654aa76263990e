// SPDX-License-Identifier: MPL-2.0

//go:build windows

package cacheserver

import "syscall"

// detachedSysProcAttr detaches the child from the helper's console and
// process group so it survives the helper's exit.
func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | 0x00000008, // DETACHED_PROCESS
	}
}
