package link

import (
	"net"
	"sync"

	"github.com/parc-forge/athena/fw/defn"
	"github.com/parc-forge/athena/std/log"
	"github.com/parc-forge/athena/std/types/lockfree"
)

func init() {
	RegisterModule(&udpModule{network: "udp"})
	RegisterModule(&udpModule{network: "udp6", scheme: "udp6"})
}

// udpModule implements spec §4.1/§6's UDP scheme: one TLV packet per
// datagram, with listener demultiplexing creating per-source child links on
// demand (spec §4.1 "Listener demultiplexing"). Grounded on the teacher's
// unicast/multicast UDP transports (fw/face/unicast-udp-transport.go,
// multicast-udp-transport.go).
type udpModule struct {
	baseModule
	conn    *net.UDPConn
	network string
	scheme  string

	// Listener-only state.
	mu       sync.Mutex
	children map[string]*udpChildModule
	opts     Options
	promoter Promoter

	// Child-only state: queue the listener deposits demultiplexed
	// messages into (spec §5: "module... MUST push them onto a queue the
	// adapter drains inside receive").
	recvQ  *lockfree.YiQueue[[]byte]
	remote *net.UDPAddr
}

type udpChildModule struct {
	udpModule
}

func (m *udpModule) Scheme() string {
	if m.scheme != "" {
		return m.scheme
	}
	return "udp"
}

func (m *udpModule) netOr(fallback string) string {
	if m.network != "" {
		return m.network
	}
	return fallback
}

func (m *udpModule) Open(authority string, opts Options) (Module, bool, error) {
	network := m.netOr("udp")
	if opts.Listener {
		addr, err := net.ResolveUDPAddr(network, authority)
		if err != nil {
			return nil, false, defn.WrapError(defn.ErrInvalid, err, "resolving udp listen address")
		}
		conn, err := net.ListenUDP(network, addr)
		if err != nil {
			return nil, false, defn.WrapError(defn.ErrIo, err, "listening on udp")
		}
		lm := &udpModule{conn: conn, network: network, children: make(map[string]*udpChildModule), opts: opts}
		lm.mtu = mtuOr(opts.Mtu, 1472)
		lm.sendReady = false
		lm.recvReady = false
		return lm, false, nil
	}

	raddr, err := net.ResolveUDPAddr(network, authority)
	if err != nil {
		return nil, false, defn.WrapError(defn.ErrInvalid, err, "resolving udp remote address")
	}
	conn, err := net.DialUDP(network, nil, raddr)
	if err != nil {
		return nil, false, defn.WrapError(defn.ErrIo, err, "dialing udp %s", authority)
	}
	cm := &udpModule{conn: conn, network: network, recvQ: lockfree.NewYiQueue[[]byte](), remote: raddr}
	cm.mtu = mtuOr(opts.Mtu, 1472)
	cm.fragmenter = fragmenterFromOpts(opts)
	cm.sendReady = true
	cm.recvReady = true
	go cm.receiveLoop()
	return cm, true, nil
}

// BindPromoter implements Promotable: the adapter calls this right after
// Open returns a listener, before any datagram can be demultiplexed.
func (m *udpModule) BindPromoter(p Promoter) {
	m.promoter = p
	go m.demuxLoop()
}

// demuxLoop reads datagrams on the listener socket and routes each into its
// source address's child link, registering the child with the adapter the
// first time a source is seen (spec §4.1 "Listener demultiplexing").
func (m *udpModule) demuxLoop() {
	buf := make([]byte, 65535)
	for {
		n, src, err := m.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		wire := append([]byte{}, buf[:n]...)

		m.mu.Lock()
		child, ok := m.children[src.String()]
		if !ok {
			child = &udpChildModule{udpModule{conn: m.conn, recvQ: lockfree.NewYiQueue[[]byte](), remote: src}}
			child.mtu = m.mtu
			child.fragmenter = fragmenterFromOpts(m.opts)
			child.sendReady = true
			child.recvReady = true
			name := m.Scheme() + "://" + src.String()
			if _, err := m.promoter.AddLink(name, localOrDefault(m.opts, false), m.opts.LocalSet, child); err != nil {
				m.mu.Unlock()
				log.Log.Warn(m, "dropping demultiplexed udp source", "name", name, "err", err)
				continue
			}
			m.children[src.String()] = child
		}
		m.mu.Unlock()

		child.recvQ.Push(wire)
	}
}

func (m *udpModule) receiveLoop() {
	buf := make([]byte, 65535)
	for {
		n, err := m.conn.Read(buf)
		if err != nil {
			m.errored = true
			return
		}
		wire := append([]byte{}, buf[:n]...)
		m.recvQ.Push(wire)
	}
}

func (m *udpModule) Send(wire []byte) bool {
	if m.remote != nil {
		if m.conn.RemoteAddr() != nil {
			_, err := m.conn.Write(wire)
			return err == nil
		}
		_, err := m.conn.WriteToUDP(wire, m.remote)
		return err == nil
	}
	return false
}

func (m *udpModule) Receive() ([]byte, bool) {
	if m.recvQ == nil {
		return nil, false
	}
	return m.recvQ.Pop()
}

func (m *udpModule) Close() error {
	if m.remote == nil && m.conn != nil {
		return m.conn.Close()
	}
	return nil
}

func (m *udpModule) String() string { return "udp-module" }
