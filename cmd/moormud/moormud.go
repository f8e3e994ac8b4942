package main

import (
	"flag"
	"os"
	"strings"
)

var args struct {
	configFile string
}

func parseArgs() {
	flag.StringVar(&args.configFile, "configfile", "", "set config file path")
	flag.Parse()
}

func main() {
	parseArgs()
	args := flag.Args()
	showMsg("arguments: %s", strings.Join(args, " "))

	detectMoorMUDPath()

	if len(args) == 0 {
		showMsg("no command to execute")
		flag.Usage()
		os.Exit(1)
	}

	cmd := args[0]
	if cmd == "build" {
		build()
	} else if cmd == "start" {
		start()
	} else if cmd == "stop" {
		stop()
	} else if cmd == "restart" {
		restartWorld()
	} else if cmd == "status" {
		status()
	} else {
		showMsgAndQuit("unknown command: %s", cmd)
	}
}
