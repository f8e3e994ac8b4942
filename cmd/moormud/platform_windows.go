//go:build windows
// +build windows

package main

import (
	"syscall"
)

const (
	// BinaryExtension extension used on windows
	BinaryExtension = ".exe"
	// StopSignal asks a process to terminate
	StopSignal = syscall.SIGKILL
	// RestartSignal has no planned-restart delivery on windows, the
	// world treats it like a stop
	RestartSignal = syscall.SIGKILL
)
