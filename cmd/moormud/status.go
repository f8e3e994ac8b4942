package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/moormud/moormud/cmd/moormud/process"
)

// ServerStatus represents the running state of the portal and world processes
type ServerStatus struct {
	NumPortalsRunning int
	NumWorldsRunning  int

	PortalProcs []process.Process
	WorldProcs  []process.Process
}

// IsRunning returns if any moormud process is running
func (ss *ServerStatus) IsRunning() bool {
	return ss.NumPortalsRunning > 0 || ss.NumWorldsRunning > 0
}

func detectServerStatus() *ServerStatus {
	ss := &ServerStatus{}
	procs, err := process.Processes()
	checkErrorOrQuit(err, "list processes failed")
	for _, proc := range procs {
		path, err := proc.Path()
		if err != nil {
			continue
		}

		if !isexists(path) {
			cmdline, err := proc.CmdlineSlice()
			if err != nil || len(cmdline) == 0 {
				continue
			}
			path = cmdline[0]
			if !filepath.IsAbs(path) {
				cwd, err := proc.Cwd()
				if err != nil {
					continue
				}
				path = filepath.Join(cwd, path)
			}
		}

		relpath, err := filepath.Rel(env.MoorMUDRoot, path)
		if err != nil || strings.HasPrefix(relpath, "..") {
			continue
		}

		_, file := filepath.Split(relpath)
		if file == portalFileName() {
			ss.NumPortalsRunning++
			ss.PortalProcs = append(ss.PortalProcs, proc)
		} else if file == worldFileName() {
			ss.NumWorldsRunning++
			ss.WorldProcs = append(ss.WorldProcs, proc)
		}
	}

	return ss
}

func status() {
	ss := detectServerStatus()
	showServerStatus(ss)
}

func showServerStatus(ss *ServerStatus) {
	showMsg("%d portal(s) running, %d world(s) running", ss.NumPortalsRunning, ss.NumWorldsRunning)

	var listProcs []process.Process
	listProcs = append(listProcs, ss.PortalProcs...)
	listProcs = append(listProcs, ss.WorldProcs...)
	for _, proc := range listProcs {
		cmdlineSlice, err := proc.CmdlineSlice()
		var cmdline string
		if err == nil {
			cmdline = strings.Join(cmdlineSlice, " ")
		} else {
			cmdline = fmt.Sprintf("get cmdline failed: %v", err)
		}

		showMsg("\t%-10d%-16s%s", proc.Pid(), proc.Executable(), cmdline)
	}
}
