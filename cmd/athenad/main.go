package main

import (
	"fmt"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/parc-forge/athena/fw/cmd"
	"github.com/parc-forge/athena/std/log"
)

type self struct{}

func (self) String() string { return "main" }

// Adjusts GOMAXPROCS to the container's CPU quota before the forwarder's
// single receive/process thread (spec §5) starts competing with Go's
// runtime-wide worker pool for cores.
func init() {
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Log.Debug(self{}, fmt.Sprintf(format, args...))
	})); err != nil {
		log.Log.Warn(self{}, "failed to set GOMAXPROCS", "err", err)
	}
}

func main() {
	cmd.CmdAthenad.Execute()
}
