package version

import (
	"fmt"
	"runtime"
)

// Overridden at build time via -ldflags.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info is the build identity printed by the version command.
type Info struct {
	Version   string
	GitCommit string
	BuildTime string
	GoVersion string
}

// Get returns the build identity of this binary.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

func (i Info) String() string {
	return fmt.Sprintf("godbadmin %s (commit %s, built %s, %s)",
		i.Version, i.GitCommit, i.BuildTime, i.GoVersion)
}
