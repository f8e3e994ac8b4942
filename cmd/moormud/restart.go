package main

// restartWorld performs a planned world restart: the world is told to
// announce the restart over the link and exit, then a fresh world is
// started. The portal keeps every client connected and replays its
// session snapshot to the new world.
func restartWorld() {
	ss := detectServerStatus()
	showServerStatus(ss)

	if ss.NumPortalsRunning == 0 {
		showMsgAndQuit("no portal is running, a restart would drop all clients")
	}
	if ss.NumWorldsRunning == 0 {
		showMsgAndQuit("no world is running")
	}

	stopWorlds(ss, RestartSignal)
	startWorld()
}
