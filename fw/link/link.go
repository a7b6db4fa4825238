package link

import (
	"github.com/parc-forge/athena/fw/defn"
)

// Link is the adapter's record for one named transport endpoint (spec §3
// "Link"): name, routable flag, local/remote flag, readiness flags, an
// optional fragmenter, and opaque module state.
type Link struct {
	Name        string
	Routable    bool // true for connections, false for listeners
	Local       bool
	LocalForced bool // true if Local came from an explicit local= URI option
	Id          defn.LinkId

	module Module
}

func newLink(name string, routable, local, localForced bool, id defn.LinkId, m Module) *Link {
	return &Link{Name: name, Routable: routable, Local: local, LocalForced: localForced, Id: id, module: m}
}

// CanSend reports the link's current Send readiness flag.
func (l *Link) CanSend() bool { return l.module.CanSend() }

// CanReceive reports the link's current Receive readiness flag.
func (l *Link) CanReceive() bool { return l.module.CanReceive() }

// HasError reports the link's current Error readiness flag.
func (l *Link) HasError() bool { return l.module.HasError() }

// Send hands a full wire-format buffer to the underlying module, splitting
// it into the module's configured Fragmenter first if the link has one
// (spec §4.1's fragmentation contract).
func (l *Link) Send(wire []byte) bool {
	f := l.module.GetFragmenter()
	if f == nil {
		return l.module.Send(wire)
	}
	ok := true
	for _, frag := range f.Fragment(wire, l.module.MTU()) {
		if !l.module.Send(frag) {
			ok = false
		}
	}
	return ok
}

// Receive pulls the next fragment (or whole message) from the underlying
// module, folding it through the link's Fragmenter if it has one; it
// reports (nil, false) until a complete message has been reassembled.
func (l *Link) Receive() ([]byte, bool) {
	wire, ok := l.module.Receive()
	if !ok {
		return nil, false
	}
	f := l.module.GetFragmenter()
	if f == nil {
		return wire, true
	}
	return f.Reassemble(wire)
}

// Close releases the underlying module's resources.
func (l *Link) Close() error {
	return l.module.Close()
}
