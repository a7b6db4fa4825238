// Package dispatch implements athena_ProcessMessage (spec §4.5): the single
// entry point every received message passes through on its way between the
// TransportLinkAdapter and the three tables.
//
// Grounded on the teacher's fw/fw package strategy hooks
// (AfterContentStoreHit / AfterReceiveData / AfterReceiveInterest in
// multicast.go), collapsed from the teacher's pluggable-strategy model into
// the spec's single fixed pipeline — Athena has no per-prefix strategy
// selection, so the Thread/Strategy split doesn't carry over, but the shape
// of "try CS, else PIT, else FIB, then forward and record egress" is the
// teacher's own multicast strategy read straight through.
package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/parc-forge/athena/fw/codec"
	"github.com/parc-forge/athena/fw/defn"
	"github.com/parc-forge/athena/fw/link"
	"github.com/parc-forge/athena/fw/table"
	"github.com/parc-forge/athena/std/log"
)

// ControlPrefix marks an Interest as in-band control traffic (spec §4.6).
// Exported so fw/mgmt can split the remaining name segments into
// module/command/args without redefining the prefix.
var ControlPrefix = defn.NameFromStr("ccnx:/local/forwarder")

// ControlHandler dispatches a control Interest already verified to start
// with ControlPrefix, returning a response Content Object when one
// exists. fw/mgmt implements this interface; fw/dispatch never imports
// fw/mgmt, since mgmt needs to re-enter the Dispatcher to send its response
// and an import the other direction would cycle.
type ControlHandler interface {
	Dispatch(interest *defn.Interest, ingress defn.LinkVector) (*defn.ContentObject, bool)
}

// Counters are the free-running packet counters the Dispatcher increments
// per message kind. The `stats` control command does not report them; its
// reply carries only the PIT size, the store size and the wall time.
type Counters struct {
	Interests      atomic.Int64
	ContentObjects atomic.Int64
	Returns        atomic.Int64
}

// Dispatcher is athena_ProcessMessage. A single instance is owned by one
// forwarder thread (spec §5); nothing here is safe to call concurrently
// from two goroutines at once, matching the cooperative single-threaded
// model the tables themselves assume.
type Dispatcher struct {
	Name string

	Fib     *table.Fib
	Pit     *table.Pit
	Cs      *table.ContentStore
	Adapter *link.Adapter
	Codec   codec.Codec
	Clock   defn.Clock

	Counters Counters

	mu      sync.Mutex
	control ControlHandler
}

// New constructs a Dispatcher over the given tables, adapter, codec and
// clock. name identifies the owning forwarder instance in log lines.
func New(name string, fib *table.Fib, pit *table.Pit, cs *table.ContentStore, adapter *link.Adapter, cdc codec.Codec, clock defn.Clock) *Dispatcher {
	return &Dispatcher{Name: name, Fib: fib, Pit: pit, Cs: cs, Adapter: adapter, Codec: cdc, Clock: clock}
}

// String satisfies std/log.Component.
func (d *Dispatcher) String() string { return d.Name }

// SetControlHandler wires the management component in after construction,
// breaking the fw/mgmt <-> fw/dispatch import cycle.
func (d *Dispatcher) SetControlHandler(h ControlHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.control = h
}

func (d *Dispatcher) controlHandler() ControlHandler {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.control
}

// ProcessMessage implements spec §4.5. ingress MUST contain exactly one bit.
func (d *Dispatcher) ProcessMessage(msg *defn.Message, ingress defn.LinkVector) {
	switch msg.Kind {
	case defn.KindInterest:
		d.processInterest(msg.Interest, ingress)
	case defn.KindContentObject:
		d.processContentObject(msg.Content, ingress)
	case defn.KindInterestReturn:
		d.processInterestReturn(msg.Return, ingress)
	}
}

func (d *Dispatcher) processInterest(interest *defn.Interest, ingress defn.LinkVector) {
	d.Counters.Interests.Add(1)

	if interest.HasName && ControlPrefix.IsPrefix(interest.NameV) {
		d.processControlInterest(interest, ingress)
		return
	}

	if co, ok := d.Cs.GetMatch(interest); ok {
		d.sendContent(co, ingress)
		return
	}

	now := d.Clock.WallMs()
	res, egress := d.Pit.AddInterest(interest, ingress, now)
	if res == table.Aggregated || res == table.Error {
		if res == table.Error {
			log.Log.Warn(d, "PIT at capacity, dropping interest", "name", interest.NameV.String())
		}
		return
	}

	fibVector := d.Fib.Lookup(interest.NameV).Difference(ingress)
	if fibVector.IsEmpty() {
		d.sendNoRoute(interest, ingress)
		return
	}

	if interest.HopLimit > 0 {
		interest.HopLimit--
	}
	wire, err := d.encode(&defn.Message{Kind: defn.KindInterest, Interest: interest})
	if err != nil {
		log.Log.Warn(d, "failed to re-encode interest for forwarding", "err", err)
		return
	}
	sent := d.Adapter.Send(wire, true, interest.HopLimit, fibVector)
	*egress = egress.Union(sent)
}

func (d *Dispatcher) processContentObject(co *defn.ContentObject, ingress defn.LinkVector) {
	d.Counters.ContentObjects.Add(1)

	reverse := d.Pit.Match(co.NameV, co.KeyId, co.ContentHash)
	if reverse.IsEmpty() {
		return
	}
	d.sendContent(co, reverse)
	d.Cs.Put(co)
}

func (d *Dispatcher) processInterestReturn(r *defn.InterestReturn, ingress defn.LinkVector) {
	d.Counters.Returns.Add(1)
	if r.Interest == nil {
		return
	}
	d.Pit.RemoveInterest(r.Interest, ingress)
}

// processControlInterest implements spec §4.6's in-band routing. The
// control Interest is registered in the PIT exactly like any other Interest
// (so the response's loop-back re-entry has a live PIT entry to match
// against, "to exercise the same egress path" per §4.6), but is never
// looked up in the FIB or forwarded — it is consumed locally.
func (d *Dispatcher) processControlInterest(interest *defn.Interest, ingress defn.LinkVector) {
	now := d.Clock.WallMs()
	d.Pit.AddInterest(interest, ingress, now)

	handler := d.controlHandler()
	if handler == nil {
		log.Log.Warn(d, "no control handler registered", "name", interest.NameV.String())
		return
	}
	co, ok := handler.Dispatch(interest, ingress)
	if !ok {
		return
	}
	d.ProcessMessage(&defn.Message{Kind: defn.KindContentObject, Content: co}, ingress)
}

// sendNoRoute emits InterestReturn(NoRoute) back along ingress, but only if
// the single ingress link is local enough to trust with a return (spec
// §4.5: "if link is local enough").
func (d *Dispatcher) sendNoRoute(interest *defn.Interest, ingress defn.LinkVector) {
	ids := ingress.Ids()
	if len(ids) != 1 {
		return
	}
	if d.Adapter.IsNotLocal(ids[0]) {
		return
	}
	ret := &defn.InterestReturn{Reason: defn.ReturnNoRoute, Interest: interest}
	wire, err := d.encode(&defn.Message{Kind: defn.KindInterestReturn, Return: ret})
	if err != nil {
		log.Log.Warn(d, "failed to encode interest return", "err", err)
		return
	}
	d.Adapter.Send(wire, false, 0, ingress)
}

func (d *Dispatcher) sendContent(co *defn.ContentObject, vector defn.LinkVector) {
	wire := co.Wire
	if wire == nil {
		var err error
		wire, err = d.encode(&defn.Message{Kind: defn.KindContentObject, Content: co})
		if err != nil {
			log.Log.Warn(d, "failed to encode content object", "err", err)
			return
		}
		co.Wire = wire
	}
	d.Adapter.Send(wire, false, 0, vector)
}

func (d *Dispatcher) encode(msg *defn.Message) ([]byte, error) {
	return d.Codec.Encode(msg, nil)
}
