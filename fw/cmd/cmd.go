// Package cmd wires the cobra entrypoint for the athenad daemon: load a
// YAML config file, build one Athena forwarder instance from it, and run
// until a signal requests shutdown.
//
// Grounded on the teacher's fw/cmd/cmd.go (flag/run shape) and
// fw/cmd/profiler.go (kept, adapted to fw/config/std/log in a prior pass).
package cmd

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parc-forge/athena/fw/athena"
	"github.com/parc-forge/athena/fw/config"
	"github.com/parc-forge/athena/std/log"
	"github.com/parc-forge/athena/std/utils"
)

var cfg = config.DefaultConfig()

// self names this package in log lines emitted before an Athena instance
// (which names itself) exists.
type self struct{}

func (self) String() string { return "athenad" }

// CmdAthenad is the root command, matching the teacher's CmdYaNFD shape:
// one positional argument naming the YAML config file.
var CmdAthenad = &cobra.Command{
	Use:     "athenad CONFIG-FILE",
	Short:   "Athena content-centric forwarder",
	GroupID: "run",
	Args:    cobra.ExactArgs(1),
	Run:     run,
}

// Registers command-line flags for enabling CPU, memory, and block profiling, mirroring the teacher's profiler flag set.
func init() {
	CmdAthenad.Flags().StringVar(&cfg.Core.CpuProfile, "cpu-profile", "", "Write CPU profile to file")
	CmdAthenad.Flags().StringVar(&cfg.Core.MemProfile, "mem-profile", "", "Write memory profile to file")
	CmdAthenad.Flags().StringVar(&cfg.Core.BlockProfile, "block-profile", "", "Write block profile to file")
}

func run(cmd *cobra.Command, args []string) {
	configfile := args[0]
	cfg.Core.BaseDir = filepath.Dir(configfile)

	if err := config.ReadYaml(cfg, configfile); err != nil {
		log.Log.Fatal(self{}, "unable to read configuration file", "file", configfile, "err", err)
		return
	}

	log.Log.SetLevel(cfg.ParsedLogLevel())

	profiler := NewProfiler(cfg)
	if err := profiler.Start(); err != nil {
		log.Log.Fatal(self{}, "unable to start profiler", "err", err)
		return
	}

	fwd, err := athena.Create("athenad", cfg)
	if err != nil {
		log.Log.Fatal(self{}, "unable to create forwarder", "err", err)
		return
	}

	done := make(chan struct{})
	go func() {
		fwd.Run()
		close(done)
	}()

	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGQUIT)
	go func() {
		for range quitChannel {
			utils.PrintStackTrace()
		}
	}()

	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, os.Interrupt, syscall.SIGTERM)
	receivedSig := <-sigChannel
	log.Log.Info(fwd, "received signal - exiting", "signal", receivedSig)

	fwd.Stop()
	<-done

	profiler.Stop()
	log.Log.Flush()
}
