package main

import (
	"os"
	"os/exec"
)

func build() {
	showMsg("building moormud ...")
	buildPortal()
	buildWorld()
}

func buildPortal() {
	showMsg("go build portal ...")
	buildDirectory(env.GetPortalDir())
}

func buildWorld() {
	showMsg("go build world ...")
	buildDirectory(env.GetWorldDir())
}

func buildDirectory(dir string) {
	var err error
	var curdir string
	curdir, err = os.Getwd()
	checkErrorOrQuit(err, "")

	err = os.Chdir(dir)
	checkErrorOrQuit(err, "")

	defer os.Chdir(curdir)

	cmd := exec.Command("go", "build", ".")
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stdout
	cmd.Stdin = os.Stdin
	err = cmd.Run()
	checkErrorOrQuit(err, "")
}
