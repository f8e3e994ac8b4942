// +build !windows

package binutil

import (
	"os"

	"github.com/sevlyar/go-daemon"

	"github.com/moormud/moormud/engine/mmlog"
)

// Daemonize forks the process into the background
func Daemonize() *daemon.Context {
	context := new(daemon.Context)
	child, err := context.Reborn()

	if err != nil {
		// daemonize failed
		mmlog.Panicf("daemonize failed: %v", err)
	}

	if child != nil {
		mmlog.Infof("run in daemon mode")
		os.Exit(0)
		return nil
	}
	return context
}
