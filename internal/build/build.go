// Package build carries the version stamp linked into the modgate binary.
package build

import (
	"fmt"
	"runtime"
)

// Overridden through -ldflags at release time; the defaults mark a plain
// source build.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info is a snapshot of the stamp plus the toolchain it was built with.
type Info struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
	Platform  string
}

// Get returns the stamp of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Full renders the long form shown by `modgate version --verbose`.
func (i Info) Full() string {
	return fmt.Sprintf("modgate %s (commit %s, built %s, %s, %s)",
		i.Version, i.Commit, i.Date, i.GoVersion, i.Platform)
}
