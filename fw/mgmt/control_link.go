package mgmt

import (
	"github.com/parc-forge/athena/fw/defn"
)

// handleLink implements the TransportLinkAdapter scope's commands (spec
// §4.6): add, remove, list.
func (c *Control) handleLink(command string, args defn.Name, payload string) string {
	switch command {
	case "add":
		return c.linkAdd(payload)
	case "remove":
		return c.linkRemove(payload)
	case "list":
		return c.linkList()
	default:
		return errJSON("unknown link command " + command)
	}
}

func (c *Control) linkAdd(uri string) string {
	if uri == "" {
		return errJSON("link add requires a link URI")
	}
	name, err := c.Adapter.Open(uri)
	if err != nil {
		return errJSON(err.Error())
	}
	return ackJSON(map[string]any{"name": name})
}

// linkRemove closes the named link. PIT/FIB cleanup happens synchronously
// inside CloseByName via the adapter's RemoveLinkFunc (wired by fw/athena
// to call Pit.RemoveLink/Fib.RemoveLink before the close returns, spec §3
// "Ownership").
func (c *Control) linkRemove(name string) string {
	if name == "" {
		return errJSON("link remove requires a link name")
	}
	if err := c.Adapter.CloseByName(name); err != nil {
		return errJSON(err.Error())
	}
	return ackJSON(map[string]any{"name": name})
}

type linkListItem struct {
	Name        string `json:"linkName"`
	Index       int    `json:"index"`
	NotLocal    bool   `json:"notLocal"`
	LocalForced bool   `json:"localForced"`
}

func (c *Control) linkList() string {
	links := c.Adapter.ListLinks()
	out := make([]linkListItem, 0, len(links))
	for _, l := range links {
		out = append(out, linkListItem{Name: l.LinkName, Index: l.Index, NotLocal: l.NotLocal, LocalForced: l.LocalForced})
	}
	return toJSON(out)
}
