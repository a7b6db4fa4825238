package link

import (
	"net"
	"sync"

	"github.com/parc-forge/athena/fw/defn"
	"github.com/parc-forge/athena/std/log"
)

func init() {
	RegisterModule(&tcpModule{})
}

// tcpModule implements spec §4.1/§6's TCP scheme: stream-framed by the TLV
// header itself. Grounded on the teacher's fw/face/tcp-listener.go (accept
// loop) and transport.go's transportBase split.
type tcpModule struct {
	baseModule
	listener *net.TCPListener
	conn     net.Conn
	recvQ    chan []byte
	stop     chan struct{}
	closeOnce sync.Once

	// Listener-only state: the options it was opened with (reused to
	// configure every accepted connection's mtu/fragmenter) and the
	// Promoter the adapter binds in before acceptLoop starts.
	opts     Options
	promoter Promoter
}

func (m *tcpModule) Scheme() string { return "tcp" }

func (m *tcpModule) Open(authority string, opts Options) (Module, bool, error) {
	if opts.Listener {
		addr, err := net.ResolveTCPAddr("tcp", authority)
		if err != nil {
			return nil, false, defn.WrapError(defn.ErrInvalid, err, "resolving tcp listen address")
		}
		ln, err := net.ListenTCP("tcp", addr)
		if err != nil {
			return nil, false, defn.WrapError(defn.ErrIo, err, "listening on tcp")
		}
		lm := &tcpModule{listener: ln, stop: make(chan struct{}), opts: opts}
		lm.mtu = mtuOr(opts.Mtu, 8192)
		lm.sendReady = false
		lm.recvReady = false
		return lm, false, nil
	}

	conn, err := net.Dial("tcp", authority)
	if err != nil {
		return nil, false, defn.WrapError(defn.ErrIo, err, "dialing tcp %s", authority)
	}
	cm := newTcpConnModule(conn, opts)
	return cm, true, nil
}

func newTcpConnModule(conn net.Conn, opts Options) *tcpModule {
	cm := &tcpModule{conn: conn, recvQ: make(chan []byte, 64), stop: make(chan struct{})}
	cm.mtu = mtuOr(opts.Mtu, 8192)
	cm.fragmenter = fragmenterFromOpts(opts)
	cm.sendReady = true
	cm.recvReady = true
	go cm.receiveLoop()
	return cm
}

// BindPromoter implements Promotable: the adapter calls this right after
// Open returns a listener, before any connection can be accepted.
func (m *tcpModule) BindPromoter(p Promoter) {
	m.promoter = p
	go m.acceptLoop()
}

// acceptLoop accepts inbound connections on a TCP listener. Each accepted
// connection becomes its own routable connection module (spec §4.1: "TCP
// listener ... connection is routable"), registered with the adapter under
// its remote address so the Dispatcher can address it like any other link.
func (m *tcpModule) acceptLoop() {
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			return
		}
		child := newTcpConnModule(conn, m.opts)
		name := "tcp://" + conn.RemoteAddr().String()
		if _, err := m.promoter.AddLink(name, localOrDefault(m.opts, false), m.opts.LocalSet, child); err != nil {
			log.Log.Warn(m, "dropping accepted tcp connection", "name", name, "err", err)
			child.Close()
		}
	}
}

func (m *tcpModule) receiveLoop() {
	for {
		wire, err := ReadTlvFramedPacket(m.conn)
		if err != nil {
			log.Log.Warn(m, "tcp link closed or framing error", "err", err)
			m.errored = true
			return
		}
		select {
		case m.recvQ <- wire:
		case <-m.stop:
			return
		}
	}
}

func (m *tcpModule) Send(wire []byte) bool {
	if m.conn == nil {
		return false
	}
	_, err := m.conn.Write(wire)
	return err == nil
}

func (m *tcpModule) Receive() ([]byte, bool) {
	select {
	case b := <-m.recvQ:
		return b, true
	default:
		return nil, false
	}
}

func (m *tcpModule) Close() error {
	m.closeOnce.Do(func() { close(m.stop) })
	if m.conn != nil {
		return m.conn.Close()
	}
	if m.listener != nil {
		return m.listener.Close()
	}
	return nil
}

func (m *tcpModule) String() string { return "tcp-module" }

func mtuOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
