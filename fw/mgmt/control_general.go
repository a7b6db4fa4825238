package mgmt

import (
	"strings"

	"github.com/parc-forge/athena/fw/defn"
	"github.com/parc-forge/athena/std/log"
	"github.com/parc-forge/athena/std/utils/toolutils"
)

// handleControl implements the Control scope's commands (spec §4.6):
// set/level/<level>, quit, stats, spawn, plus the human-readable dump
// command supplemented from the status-printer convention in the example
// pool.
func (c *Control) handleControl(command string, args defn.Name, payload string) string {
	switch command {
	case "set":
		return c.controlSet(args)
	case "quit":
		c.RequestExit()
		log.Log.Info(c, "control: quit requested")
		return ackJSON(nil)
	case "stats":
		return c.controlStats()
	case "spawn":
		return c.controlSpawn(payload)
	case "dump":
		return c.controlDump()
	default:
		return errJSON("unknown control command " + command)
	}
}

// controlDump renders a key=value snapshot for operators poking at the
// control channel by hand, rather than the JSON the other commands return.
func (c *Control) controlDump() string {
	var out strings.Builder
	printer := toolutils.StatusPrinter{Out: &out, Padding: 16}

	hits, misses := c.Cs.Stats()
	printer.Print("name", c.Name)
	printer.Print("state", c.State())
	printer.Print("pitSize", c.Pit.Size())
	printer.Print("pitAvgLifetimeMs", c.Pit.MeanEntryLifetime())
	printer.Print("csSizeBytes", c.Cs.Size())
	printer.Print("csHits", hits)
	printer.Print("csMisses", misses)
	printer.Print("links", len(c.Adapter.ListLinks()))

	return out.String()
}

func (c *Control) controlSet(args defn.Name) string {
	if len(args) < 2 || args[0].String() != "level" {
		return errJSON("set requires level/<off|notice|info|debug|error|all>")
	}
	level, err := log.ParseControlLevel(args[1].String())
	if err != nil {
		return errJSON(err.Error())
	}
	log.Log.SetLevel(level)
	return ackJSON(map[string]any{"level": args[1].String()})
}

func (c *Control) controlStats() string {
	return toJSON(map[string]any{
		"pitSize":   c.Pit.Size(),
		"csSizeBytes": c.Cs.Size(),
		"wallMs":    c.Clock.WallMs(),
	})
}

func (c *Control) controlSpawn(uri string) string {
	if c.spawn == nil {
		return errJSON("spawn is not supported by this forwarder instance")
	}
	if uri == "" {
		return errJSON("spawn requires a link URI payload")
	}
	if err := c.spawn(uri); err != nil {
		return errJSON(err.Error())
	}
	return ackJSON(map[string]any{"uri": uri})
}
