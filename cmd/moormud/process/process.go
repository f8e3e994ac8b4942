// Package process wraps gopsutil process listing for the moormud
// supervisor commands.
package process

import (
	"syscall"

	psutil_process "github.com/shirou/gopsutil/process"
)

type Process interface {
	Pid() int32
	Executable() string
	Path() (string, error)
	CmdlineSlice() ([]string, error)
	Cwd() (string, error)
	Signal(sig syscall.Signal) error
}

type process struct {
	*psutil_process.Process
}

func (p process) Pid() int32 {
	return p.Process.Pid
}

func (p process) Executable() string {
	name, _ := p.Process.Name()
	return name
}

func (p process) Path() (string, error) {
	return p.Process.Exe()
}

func (p process) CmdlineSlice() ([]string, error) {
	return p.Process.CmdlineSlice()
}

func (p process) Cwd() (string, error) {
	return p.Process.Cwd()
}

func Processes() ([]Process, error) {
	var procs []Process

	ps, err := psutil_process.Processes()
	if err != nil {
		return nil, err
	}

	for _, _p := range ps {
		procs = append(procs, process{_p})
	}
	return procs, nil
}

// IsRunning reports whether a process with the given pid still exists
func IsRunning(pid int32) (bool, error) {
	ps, err := psutil_process.Processes()
	if err != nil {
		return false, err
	}
	for _, p := range ps {
		if p.Pid == pid {
			return true, nil
		}
	}
	return false, nil
}
