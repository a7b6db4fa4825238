package mgmt

import (
	"strconv"

	"github.com/parc-forge/athena/fw/defn"
)

// handleStore implements the Content Store scope's commands (spec §4.6):
// resize, and stat/{size,hits}.
func (c *Control) handleStore(command string, args defn.Name, payload string) string {
	switch command {
	case "resize":
		return c.storeResize(payload)
	case "stat":
		return c.storeStat(args)
	default:
		return errJSON("unknown store command " + command)
	}
}

func (c *Control) storeResize(payload string) string {
	mb, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || mb < 0 {
		return errJSON("resize requires a non-negative MB payload")
	}
	c.Cs.SetCapacity(mb * 1 << 20)
	return ackJSON(map[string]any{"capacityMB": mb})
}

func (c *Control) storeStat(args defn.Name) string {
	if len(args) == 0 {
		return errJSON("store stat requires a metric name")
	}
	hits, misses := c.Cs.Stats()
	switch args[0].String() {
	case "size":
		return toJSON(map[string]any{"sizeBytes": c.Cs.Size()})
	case "hits":
		return toJSON(map[string]any{"hits": hits, "misses": misses})
	default:
		return errJSON("unknown store stat metric " + args[0].String())
	}
}
