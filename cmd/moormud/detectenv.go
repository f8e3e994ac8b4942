package main

import (
	"os"
	"path/filepath"
)

type _Env struct {
	MoorMUDRoot string
}

func (env *_Env) GetPortalDir() string {
	return filepath.Join(env.MoorMUDRoot, "components", "portal")
}

func (env *_Env) GetWorldDir() string {
	return filepath.Join(env.MoorMUDRoot, "components", "world")
}

var env _Env

// detectMoorMUDPath walks up from the working directory looking for the
// repository root (the directory holding components/portal)
func detectMoorMUDPath() {
	dir, err := os.Getwd()
	checkErrorOrQuit(err, "get working directory failed")

	for {
		if isdir(filepath.Join(dir, "components", "portal")) {
			env.MoorMUDRoot = dir
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if env.MoorMUDRoot == "" {
		showMsgAndQuit("moormud directory is not detected, run inside the moormud tree")
	}

	showMsg("moormud directory found: %s", env.MoorMUDRoot)
}
