package main

import (
	"syscall"
	"time"

	"github.com/moormud/moormud/cmd/moormud/process"
)

func stop() {
	ss := detectServerStatus()
	showServerStatus(ss)
	if !ss.IsRunning() {
		showMsgAndQuit("no server is running currently")
	}

	// portal first so clients see a clean close, then the world
	stopPortals(ss, StopSignal)
	stopWorlds(ss, StopSignal)
}

func stopPortals(ss *ServerStatus, signal syscall.Signal) {
	if ss.NumPortalsRunning == 0 {
		return
	}

	showMsg("stop %d portal(s) ...", ss.NumPortalsRunning)
	for _, proc := range ss.PortalProcs {
		stopProc(proc, signal)
	}
}

func stopWorlds(ss *ServerStatus, signal syscall.Signal) {
	if ss.NumWorldsRunning == 0 {
		return
	}

	showMsg("stop %d world(s) ...", ss.NumWorldsRunning)
	for _, proc := range ss.WorldProcs {
		stopProc(proc, signal)
	}
}

func stopProc(proc process.Process, signal syscall.Signal) {
	showMsg("stop process %s pid=%d", proc.Executable(), proc.Pid())
	err := proc.Signal(signal)
	checkErrorOrQuit(err, "stop process failed")

	for {
		time.Sleep(time.Millisecond * 100)
		running, err := process.IsRunning(proc.Pid())
		checkErrorOrQuit(err, "list processes failed")
		if !running {
			break
		}
	}
}
