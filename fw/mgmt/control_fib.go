package mgmt

import (
	"strings"

	"github.com/parc-forge/athena/fw/defn"
	"github.com/parc-forge/athena/std/types/optional"
)

// handleFib implements the FIB scope's commands (spec §4.6): add, remove,
// list, lookup. Payload carries "<prefix> [<linkName>]" for add/remove (an
// absent linkName defaults to the ingress link, per the spec table), or a
// bare name for lookup.
func (c *Control) handleFib(command string, args defn.Name, payload string, ingress defn.LinkVector) string {
	switch command {
	case "add":
		return c.fibAdd(payload, ingress)
	case "remove":
		return c.fibRemove(payload, ingress)
	case "list":
		return c.fibList()
	case "lookup":
		return c.fibLookup(payload)
	default:
		return errJSON("unknown fib command " + command)
	}
}

func (c *Control) fibAdd(payload string, ingress defn.LinkVector) string {
	prefixStr, linkName := splitPrefixAndLink(payload)
	if prefixStr == "" {
		return errJSON("fib add requires a prefix")
	}
	vec, err := c.resolveLinkVector(linkName, ingress)
	if err != nil {
		return errJSON(err.Error())
	}
	c.Fib.AddRoute(defn.NameFromStr(prefixStr), vec)
	return ackJSON(map[string]any{"prefix": prefixStr})
}

func (c *Control) fibRemove(payload string, ingress defn.LinkVector) string {
	prefixStr, linkName := splitPrefixAndLink(payload)
	if prefixStr == "" {
		return errJSON("fib remove requires a prefix")
	}
	vec, err := c.resolveLinkVector(linkName, ingress)
	if err != nil {
		return errJSON(err.Error())
	}
	c.Fib.DeleteRoute(defn.NameFromStr(prefixStr), vec)
	return ackJSON(map[string]any{"prefix": prefixStr})
}

type fibListItem struct {
	Name string `json:"name"`
	Link int    `json:"link"`
}

func (c *Control) fibList() string {
	entries := c.Fib.ListEntries()
	out := make([]fibListItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, fibListItem{Name: e.Prefix.String(), Link: int(e.Link)})
	}
	return toJSON(out)
}

func (c *Control) fibLookup(payload string) string {
	if payload == "" {
		return errJSON("fib lookup requires a name")
	}
	vec := c.Fib.Lookup(defn.NameFromStr(payload))
	names := make([]string, 0, vec.Count())
	for _, id := range vec.Ids() {
		if name, ok := c.Adapter.LinkIdToName(id); ok {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}

// splitPrefixAndLink parses "<prefix> [<linkName>]" payloads shared by FIB
// add/remove. The link name is an Optional rather than a ("", false) pair
// since an absent link name is semantically distinct from one that happens
// to be the empty string.
func splitPrefixAndLink(payload string) (prefix string, link optional.Optional[string]) {
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return "", optional.None[string]()
	}
	if len(fields) == 1 {
		return fields[0], optional.None[string]()
	}
	return fields[0], optional.Some(fields[1])
}

func (c *Control) resolveLinkVector(linkName optional.Optional[string], ingress defn.LinkVector) (defn.LinkVector, error) {
	name, ok := linkName.Get()
	if !ok {
		return ingress, nil
	}
	id, ok := c.Adapter.LinkNameToId(name)
	if !ok {
		return defn.NewLinkVector(), defn.NewError(defn.ErrNotFound, "unknown link %q", name)
	}
	return defn.LinkVectorOf(id), nil
}
