package link

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/parc-forge/athena/fw/defn"
	"github.com/parc-forge/athena/std/log"
)

func init() {
	RegisterModule(&wsModule{})
}

// wsModule is a supplemental scheme beyond spec §6's fixed tcp/udp/eth set
// (SPEC_FULL §3), letting a browser-based control client or content
// consumer attach directly. Grounded on the teacher's
// fw/face/web-socket-transport.go / web-socket-listener.go pair.
type wsModule struct {
	baseModule
	server   *http.Server
	upgrader websocket.Upgrader
	conn     *websocket.Conn
	recvQ    chan []byte
	stop     chan struct{}
	stopOnce sync.Once

	// Listener-only state, mirroring tcpModule/udpModule.
	opts     Options
	promoter Promoter
}

func (m *wsModule) Scheme() string { return "ws" }

func (m *wsModule) Open(authority string, opts Options) (Module, bool, error) {
	if opts.Listener {
		lm := &wsModule{
			upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
			opts:     opts,
		}
		lm.mtu = mtuOr(opts.Mtu, 8192)
		mux := http.NewServeMux()
		mux.HandleFunc("/", lm.handleUpgrade)
		lm.server = &http.Server{Addr: authority, Handler: mux}
		return lm, false, nil
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+authority, nil)
	if err != nil {
		return nil, false, defn.WrapError(defn.ErrIo, err, "dialing ws %s", authority)
	}
	cm := newWsConnModule(conn, opts)
	return cm, true, nil
}

// BindPromoter implements Promotable: the adapter calls this right after
// Open returns a listener, before the HTTP server starts accepting upgrades.
func (m *wsModule) BindPromoter(p Promoter) {
	m.promoter = p
	go m.server.ListenAndServe()
}

func (m *wsModule) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	child := newWsConnModule(conn, m.opts)
	name := "ws://" + conn.RemoteAddr().String()
	if _, err := m.promoter.AddLink(name, localOrDefault(m.opts, false), m.opts.LocalSet, child); err != nil {
		log.Log.Warn(m, "dropping upgraded ws connection", "name", name, "err", err)
		child.Close()
	}
}

func newWsConnModule(conn *websocket.Conn, opts Options) *wsModule {
	cm := &wsModule{conn: conn, recvQ: make(chan []byte, 64), stop: make(chan struct{})}
	cm.mtu = mtuOr(opts.Mtu, 8192)
	cm.fragmenter = fragmenterFromOpts(opts)
	cm.sendReady = true
	cm.recvReady = true
	go cm.receiveLoop()
	return cm
}

func (m *wsModule) receiveLoop() {
	for {
		_, data, err := m.conn.ReadMessage()
		if err != nil {
			m.errored = true
			return
		}
		select {
		case m.recvQ <- data:
		case <-m.stop:
			return
		}
	}
}

func (m *wsModule) Send(wire []byte) bool {
	if m.conn == nil {
		return false
	}
	return m.conn.WriteMessage(websocket.BinaryMessage, wire) == nil
}

func (m *wsModule) Receive() ([]byte, bool) {
	select {
	case b := <-m.recvQ:
		return b, true
	default:
		return nil, false
	}
}

func (m *wsModule) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	if m.conn != nil {
		return m.conn.Close()
	}
	if m.server != nil {
		return m.server.Close()
	}
	return nil
}

func (m *wsModule) String() string { return "ws-module" }
