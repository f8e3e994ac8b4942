//go:build !windows
// +build !windows

package main

import (
	"syscall"
)

const (
	// BinaryExtension extension used on unix
	BinaryExtension = ""
	// StopSignal asks a process to terminate
	StopSignal = syscall.SIGTERM
	// RestartSignal asks the world to shut down as a planned restart
	RestartSignal = syscall.Signal(10)
)
