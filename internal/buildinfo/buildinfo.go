// Package buildinfo exposes version metadata injected at build time.
package buildinfo

import (
	"fmt"
	"runtime"
)

// Info captures identifying metadata for a build of the kernel daemon,
// including the Go runtime it was compiled with. The runtime version
// matters more here than for an ordinary daemon: the goroutine scheduler
// stands in for the context-switch hardware, so tick-timing observations
// are only comparable between builds of the same toolchain.
type Info struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
}

// These variables are intended to be overridden via -ldflags during release builds.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Current returns the build metadata for logging and diagnostics.
func Current() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// String renders the metadata as a single startup-log line.
func (i Info) String() string {
	return fmt.Sprintf("rtkernel %s (%s, built %s, %s)", i.Version, i.GitCommit, i.BuildDate, i.GoVersion)
}
