package main

import (
	"os"
	"os/exec"
)

func start() {
	ss := detectServerStatus()
	if ss.IsRunning() {
		showServerStatus(ss)
		showMsgAndQuit("server is already running")
	}

	startWorld()
	startPortal()
}

// startWorld launches the world process; the portal reconnects to it
// on its own, so order does not strictly matter
func startWorld() {
	showMsg("start world ...")
	startComponent(env.GetWorldDir(), worldExecutive())
}

func startPortal() {
	showMsg("start portal ...")
	startComponent(env.GetPortalDir(), portalExecutive())
}

func startComponent(dir string, executive string) {
	if !isexists(executive) {
		showMsgAndQuit("%s not found, run `moormud build` first", executive)
	}

	err := os.Chdir(dir)
	checkErrorOrQuit(err, "change directory failed")
	defer os.Chdir(env.MoorMUDRoot)

	cmdArgs := []string{"-d"}
	if args.configFile != "" {
		cmdArgs = append(cmdArgs, "-configfile", args.configFile)
	}
	cmd := exec.Command(executive, cmdArgs...)
	err = cmd.Start()
	checkErrorOrQuit(err, "start component failed")
}
