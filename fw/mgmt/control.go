// Package mgmt implements the in-band Control Interest Protocol (spec
// §4.6): an Interest whose name begins with the Dispatcher's control prefix
// is routed here by module/command name segments and answered with a
// Content Object carrying a JSON (or plain-text) payload.
//
// Grounded on the teacher's fw/mgmt package: the per-scope module split
// (fib.go/cs.go/forwarder-status.go, each dispatching by verb off the name
// after a fixed local prefix and replying through a shared response
// builder) is kept; the wire format changes from TLV-encoded mgmt_2022
// datasets to the plain JSON/text payloads spec §4.6 calls for, since
// Athena's management datasets are intentionally simpler than NFD's.
package mgmt

import (
	"sync/atomic"

	"github.com/parc-forge/athena/fw/defn"
	"github.com/parc-forge/athena/fw/dispatch"
	"github.com/parc-forge/athena/fw/link"
	"github.com/parc-forge/athena/fw/table"
)

// State is the forwarder's run state (spec §3 "athena_state").
type State int32

const (
	StateRunning State = iota
	StateExit
)

func (s State) String() string {
	if s == StateExit {
		return "Exit"
	}
	return "Running"
}

// SpawnFunc creates a brand-new forwarder instance listening on uri, with
// its own tables and its own thread (spec §4.6 `spawn`, §5 "spawn creates a
// brand-new forwarder instance in its own thread with its own tables").
// fw/athena supplies the implementation; fw/mgmt only calls it.
type SpawnFunc func(uri string) error

// Control is the management component addressed by the Control Interest
// Protocol. It implements dispatch.ControlHandler.
type Control struct {
	Name string

	Fib     *table.Fib
	Pit     *table.Pit
	Cs      *table.ContentStore
	Adapter *link.Adapter
	Clock   defn.Clock

	state atomic.Int32
	spawn SpawnFunc
}

// New constructs a Control bound to one forwarder instance's tables.
func New(name string, fib *table.Fib, pit *table.Pit, cs *table.ContentStore, adapter *link.Adapter, clock defn.Clock, spawn SpawnFunc) *Control {
	return &Control{Name: name, Fib: fib, Pit: pit, Cs: cs, Adapter: adapter, Clock: clock, spawn: spawn}
}

// String satisfies std/log.Component.
func (c *Control) String() string { return c.Name }

// State returns the forwarder's current run state.
func (c *Control) State() State {
	return State(c.state.Load())
}

// RequestExit transitions the forwarder to StateExit, the same state
// reached via the in-band "control/quit" command. fw/athena calls this
// from Stop so an out-of-band shutdown (signal handler) uses the same
// state the Dispatcher's receive loop already watches.
func (c *Control) RequestExit() {
	c.state.Store(int32(StateExit))
}

var _ dispatch.ControlHandler = (*Control)(nil)

// Dispatch implements dispatch.ControlHandler: it splits the name segments
// following dispatch.ControlPrefix into module/command/args: the first
// segment selects the module and matches only the lowercase names control,
// fib, pit, store and link (any other spelling, such as "FIB", gets the
// unknown-module error reply); the second selects the command. It always
// returns a response — spec §4.6 has no silent-drop case.
func (c *Control) Dispatch(interest *defn.Interest, ingress defn.LinkVector) (*defn.ContentObject, bool) {
	segs := interest.NameV[len(dispatch.ControlPrefix):]
	if len(segs) < 2 {
		return c.respond(interest, errJSON("missing module/command in control name"))
	}

	module := segs[0].String()
	command := segs[1].String()
	args := segs[2:]
	payload := string(interest.Payload)

	var out string
	switch module {
	case "control":
		out = c.handleControl(command, args, payload)
	case "fib":
		out = c.handleFib(command, args, payload, ingress)
	case "pit":
		out = c.handlePit(command, args)
	case "store":
		out = c.handleStore(command, args, payload)
	case "link":
		out = c.handleLink(command, args, payload)
	default:
		out = errJSON("unknown module " + module)
	}

	return c.respond(interest, out)
}

// respond builds the Content Object every control command replies with:
// named after the request, expiry 100ms after creation (spec §4.6).
func (c *Control) respond(interest *defn.Interest, payload string) (*defn.ContentObject, bool) {
	now := c.Clock.WallMs()
	co := &defn.ContentObject{
		NameV:     interest.NameV,
		HasName:   true,
		HasExpiry: true,
		ExpiryMs:  now + 100,
		Payload:   []byte(payload),
	}
	return co, true
}
