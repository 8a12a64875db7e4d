// Package buildconfig exposes identifiers stamped into kindred binaries at
// link time, e.g.
//
//	go build -ldflags "-X github.com/Harshitk-cp/kindred/internal/buildconfig.version=v0.3.0"
package buildconfig

import "runtime"

var (
	version = "dev"
	commit  = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
}

func Current() Info {
	return Info{Version: version, Commit: commit, GoVersion: runtime.Version()}
}

// String renders the info on one line for CLI output.
func (i Info) String() string {
	return "kindred " + i.Version + " (" + i.Commit + ", " + i.GoVersion + ")"
}
