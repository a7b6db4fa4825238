// Package athena wires the four tables (spec §3 "Athena state": FIB, PIT,
// Content Store, TransportLinkAdapter), the Dispatcher, and the Control
// handler into one forwarder instance, and drives its single-threaded
// receive/process loop (spec §5 "Scheduling model").
//
// Grounded on the teacher's fw/cmd/cmd.go + fw/face/face-table.go wiring:
// the teacher assembles one global Core/FaceTable/Thread set at startup and
// runs a goroutine per forwarding thread; Athena has exactly one thread per
// instance, so Create collapses that into a single constructor and Run
// plays the part of the teacher's per-thread Run loop.
package athena

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/parc-forge/athena/fw/codec"
	"github.com/parc-forge/athena/fw/config"
	"github.com/parc-forge/athena/fw/defn"
	"github.com/parc-forge/athena/fw/dispatch"
	"github.com/parc-forge/athena/fw/link"
	"github.com/parc-forge/athena/fw/mgmt"
	"github.com/parc-forge/athena/fw/table"
	"github.com/parc-forge/athena/std/log"
)

// State is the forwarder's run-state (spec §3: "run-state {Running,
// Exit}"). Re-exported from fw/mgmt since Control owns the authoritative
// value; Athena only reads it to decide when to stop its receive loop.
type State = mgmt.State

const (
	StateRunning = mgmt.StateRunning
	StateExit    = mgmt.StateExit
)

// receiveTimeout bounds how long one Adapter.Receive call blocks waiting
// for a link to become ready before the loop re-checks the run-state.
const receiveTimeout = 200 * time.Millisecond

// Athena is one forwarder instance (spec §3's "Athena state" aggregate).
// Every field it owns is single-threaded except where noted; `spawn`
// creates an entirely independent Athena with its own tables (spec §5).
type Athena struct {
	Name string

	Fib        *table.Fib
	Pit        *table.Pit
	Cs         *table.ContentStore
	Adapter    *link.Adapter
	Dispatcher *dispatch.Dispatcher
	Control    *mgmt.Control

	clock defn.Clock

	spawnMu   sync.Mutex
	spawnSeq  int
	instances []*Athena // spawned children this instance has created

	running atomic.Bool
}

var instanceSeq atomic.Int64

// Create builds one forwarder instance from cfg and opens every listener
// link named in cfg.Listen (spec §4.7, §6 link grammar). The instance is
// not yet receiving; call Run to start its loop.
func Create(name string, cfg *config.Config) (*Athena, error) {
	clock := defn.SystemClock{}

	fib := table.NewFib()
	pit := table.NewPit(cfg.Tables.PitCapacity, clock)
	cs := table.NewContentStore(int64(cfg.Tables.ContentStoreCapacityMB)<<20, clock)

	a := &Athena{
		Name:  name,
		Fib:   fib,
		Pit:   pit,
		Cs:    cs,
		clock: clock,
	}

	// RemoveLinkFunc purges both tables of a link's id before Close/
	// CloseByName returns (spec §3 "Ownership").
	a.Adapter = link.NewAdapter(func(id defn.LinkId) {
		pit.RemoveLink(defn.LinkVectorOf(id))
		fib.RemoveLink(defn.LinkVectorOf(id))
	})

	a.Dispatcher = dispatch.New(name, fib, pit, cs, a.Adapter, codec.NewCodec(), clock)
	a.Control = mgmt.New(name+"/control", fib, pit, cs, a.Adapter, clock, a.spawn)
	a.Dispatcher.SetControlHandler(a.Control)

	for _, uri := range cfg.Listen {
		if _, err := a.Adapter.Open(uri); err != nil {
			return nil, defn.WrapError(defn.ErrInvalid, err, "opening listener %q", uri)
		}
	}

	return a, nil
}

// String satisfies std/log.Component.
func (a *Athena) String() string { return a.Name }

// spawn implements mgmt.SpawnFunc (spec §4.6 Control/spawn, §5 "spawn
// creates a brand-new forwarder instance in its own thread with its own
// tables — there is no cross-instance sharing"). The child inherits no
// state from its parent beyond the config needed to open uri; it gets a
// fresh FIB, PIT, and Content Store.
func (a *Athena) spawn(uri string) error {
	a.spawnMu.Lock()
	a.spawnSeq++
	seq := a.spawnSeq
	a.spawnMu.Unlock()

	cfg := config.DefaultConfig()
	cfg.Listen = []string{uri}

	child, err := Create(instanceName(a.Name, seq), cfg)
	if err != nil {
		return err
	}

	a.spawnMu.Lock()
	a.instances = append(a.instances, child)
	a.spawnMu.Unlock()

	go child.Run()
	return nil
}

func instanceName(parent string, seq int) string {
	id := instanceSeq.Add(1)
	return parent + "/spawn-" + itoa(seq) + "-" + itoa(int(id))
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Run drives the single-threaded receive/process loop (spec §5): receive a
// wire message from the adapter, decode it, and hand it to the Dispatcher,
// until Control.State transitions to StateExit or Stop is called. It
// returns when the loop exits.
func (a *Athena) Run() {
	if !a.running.CompareAndSwap(false, true) {
		return
	}
	defer a.running.Store(false)

	log.Log.Info(a, "forwarder starting")
	defer log.Log.Info(a, "forwarder stopped")

	for a.Control.State() != StateExit {
		received, err := a.Adapter.Receive(receiveTimeout)
		if err != nil {
			if kind, ok := defn.KindOf(err); ok && kind == defn.ErrWouldBlock {
				continue
			}
			log.Log.Warn(a, "receive error", "err", err)
			continue
		}

		msg, err := a.Dispatcher.Codec.Decode(received.Wire)
		if err != nil {
			log.Log.Debug(a, "dropping undecodable packet", "err", err)
			continue
		}
		if received.Wire[0] == 0 {
			log.Log.Warn(a, "accepting schema version 0 packet")
		}

		a.Dispatcher.ProcessMessage(msg, received.Ingress)
	}
}

// Stop requests an orderly shutdown: Run's loop exits once it next checks
// Control.State, and any spawned children are stopped too.
func (a *Athena) Stop() {
	a.Control.RequestExit()

	a.spawnMu.Lock()
	children := append([]*Athena{}, a.instances...)
	a.spawnMu.Unlock()

	for _, child := range children {
		child.Stop()
	}
}
