package mgmt

import (
	"fmt"

	"github.com/parc-forge/athena/fw/defn"
)

// handlePit implements the PIT scope's commands (spec §4.6): list, and
// stat/{size,avgEntryLifetime}.
func (c *Control) handlePit(command string, args defn.Name) string {
	switch command {
	case "list":
		return c.pitList()
	case "stat":
		return c.pitStat(args)
	default:
		return errJSON("unknown pit command " + command)
	}
}

func (c *Control) pitList() string {
	return fmt.Sprintf("pit: %d entries, mean lifetime %.1fms", c.Pit.Size(), c.Pit.MeanEntryLifetime())
}

func (c *Control) pitStat(args defn.Name) string {
	if len(args) == 0 {
		return errJSON("pit stat requires a metric name")
	}
	switch args[0].String() {
	case "size":
		return toJSON(map[string]any{"size": c.Pit.Size()})
	case "avgEntryLifetime":
		return toJSON(map[string]any{"avgEntryLifetime": c.Pit.MeanEntryLifetime()})
	default:
		return errJSON("unknown pit stat metric " + args[0].String())
	}
}
