// Package link implements the TransportLinkAdapter (spec §4.1): a single
// surface multiplexing heterogeneous transport modules (TCP, UDP, Ethernet,
// WebSocket) into one ingress/egress fabric addressed by LinkVectors.
//
// Grounded on the teacher's fw/face package: the transport/transportBase
// split (transport.go) generalizes into Module/baseModule here, and each
// concrete module (tcp.go, udp.go, eth.go, ws.go, null.go) plays the role of
// the teacher's per-scheme transport + listener pair.
package link

import (
	"github.com/parc-forge/athena/fw/defn"
)

// Options is the parsed form of a link URI's option set (spec §6 grammar).
// Struct tags drive gorilla/schema's decoding of the option set, which is
// collected as url.Values before being mapped onto this struct (uri.go).
type Options struct {
	Name       string `schema:"name"`
	Listener   bool   `schema:"listener"`
	Local      bool   `schema:"local"`
	Mtu        int    `schema:"mtu"`
	Fragmenter string `schema:"fragmenter"`
	Src        string `schema:"src"`
	LocalSet   bool   `schema:"-"`
}

// Module is the per-scheme transport contract. A module instance is either a
// listener (passive, not routable) or a connection (routable).
type Module interface {
	// Scheme is the URI scheme this module serves ("tcp", "udp", "eth", "ws").
	Scheme() string

	// Open opens a new module instance for the given authority/options.
	// Returns whether the result is a listener (not routable) or a
	// connection (routable).
	Open(authority string, opts Options) (Module, bool, error)

	// Send writes one wire-format message. Returns false if the module
	// isn't currently send-ready.
	Send(wire []byte) bool

	// Receive returns the next wire-format message, or (nil, false) if none is
	// currently available (non-blocking; the adapter handles polling).
	Receive() ([]byte, bool)

	// Close releases the module's resources.
	Close() error

	// Readiness flags.
	CanSend() bool
	CanReceive() bool
	HasError() bool

	// MTU and GetFragmenter let Link apply fragmentation generically
	// (spec §4.1's fragmentation contract) without each module having to
	// call Fragment/Reassemble itself.
	MTU() int
	GetFragmenter() Fragmenter
}

// Promoter lets a listener module register a connection it accepts or
// demultiplexes as a new routable link on the same Adapter that opened the
// listener (spec §4.1 "Listener demultiplexing": "the child... surfaces
// through the same Adapter as directly opened links").
type Promoter interface {
	AddLink(name string, local, localForced bool, module Module) (defn.LinkId, error)
}

// Promotable is implemented by listener modules that spawn child links
// after Open returns (tcp accept loop, udp demux, ws upgrade). Adapter.Open
// binds itself as the Promoter immediately after a listener's Open call
// returns, before the listener starts accepting/demultiplexing, so no child
// can be created before there is somewhere to register it.
type Promotable interface {
	BindPromoter(p Promoter)
}

// fragmenterFromOpts builds the fragmenter a link URI's fragmenter= option
// names, or nil if the option is absent (spec §4.1/§6: BEFS is the only
// fragmenter kind Athena implements).
func fragmenterFromOpts(opts Options) Fragmenter {
	if opts.Fragmenter == "BEFS" {
		return NewBefsFragmenter()
	}
	return nil
}

// localOrDefault resolves a link's local flag from an explicit local=
// option, falling back to def when the option wasn't given.
func localOrDefault(opts Options, def bool) bool {
	if opts.LocalSet {
		return opts.Local
	}
	return def
}

// registry maps a URI scheme to a prototype module used to Open new
// instances (spec §4.1: "Scheme of uri selects the module (loaded lazily)").
var registry = map[string]Module{}

// RegisterModule installs a prototype module for its scheme. Called from
// each module's package init.
func RegisterModule(m Module) {
	registry[m.Scheme()] = m
}

func lookupModule(scheme string) (Module, bool) {
	m, ok := registry[scheme]
	return m, ok
}

// baseModule carries the fields every concrete module shares, mirroring the
// teacher's transportBase (fw/face/transport.go).
type baseModule struct {
	name        string
	routable    bool
	local       bool
	mtu         int
	fragmenter  Fragmenter
	sendReady   bool
	recvReady   bool
	errored     bool
	linkId      defn.LinkId
}

func (b *baseModule) CanSend() bool    { return b.sendReady && !b.errored }
func (b *baseModule) CanReceive() bool { return b.recvReady && !b.errored }
func (b *baseModule) HasError() bool   { return b.errored }

func (b *baseModule) MTU() int                  { return b.mtu }
func (b *baseModule) GetFragmenter() Fragmenter { return b.fragmenter }
