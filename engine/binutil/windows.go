// +build windows

package binutil

import "github.com/moormud/moormud/engine/mmlog"

type nopRelease int

func (_ nopRelease) Release() {

}

// Daemonize is not supported on windows
func Daemonize() nopRelease {
	// Windows can not daemonize
	mmlog.Warnf("can not run in daemon mode in windows, -d ignored")
	return nopRelease(0)
}
