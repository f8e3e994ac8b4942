package main

import (
	"os"
	"path/filepath"
)

func isdir(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false
		}

		panic(err)
	}

	return fi.IsDir()
}

func isexists(path string) bool {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false
		}

		panic(err)
	}
	return true
}

func portalFileName() string {
	return "portal" + BinaryExtension
}

func worldFileName() string {
	return "world" + BinaryExtension
}

func portalExecutive() string {
	return filepath.Join(env.GetPortalDir(), portalFileName())
}

func worldExecutive() string {
	return filepath.Join(env.GetWorldDir(), worldFileName())
}
