package link

import "sync"

func init() {
	RegisterModule(&nullModule{})
}

// nullModule is a test-friendly transport with no underlying I/O: Send
// appends to an in-memory outbox, Receive drains an in-memory inbox fed by
// Deliver. It exists purely so fw/link and higher layers (fw/dispatch,
// fw/athena) can exercise the Adapter without real sockets, playing the
// role the teacher's in-memory face mocks play in its face_test.go suite.
type nullModule struct {
	baseModule

	mu     sync.Mutex
	outbox [][]byte
	inbox  [][]byte
}

func (m *nullModule) Scheme() string { return "null" }

func (m *nullModule) Open(authority string, opts Options) (Module, bool, error) {
	nm := &nullModule{}
	nm.mtu = mtuOr(opts.Mtu, 8192)
	nm.sendReady = true
	nm.recvReady = true
	return nm, !opts.Listener, nil
}

func (m *nullModule) Send(wire []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sendReady || m.errored {
		return false
	}
	m.outbox = append(m.outbox, append([]byte{}, wire...))
	return true
}

func (m *nullModule) Receive() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inbox) == 0 {
		return nil, false
	}
	wire := m.inbox[0]
	m.inbox = m.inbox[1:]
	return wire, true
}

func (m *nullModule) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendReady = false
	m.recvReady = false
	return nil
}

func (m *nullModule) String() string { return "null-module" }

// Deliver queues wire as the next message Receive will return. Test-only.
func (m *nullModule) Deliver(wire []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = append(m.inbox, append([]byte{}, wire...))
}

// Outbox returns every wire buffer Send has accepted so far. Test-only.
func (m *nullModule) Outbox() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte{}, m.outbox...)
}

// SetErrored forces HasError() to true, for exercising error paths. Test-only.
func (m *nullModule) SetErrored(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errored = v
}

// NullModule is the concrete type backing the "null" scheme, exposed so
// tests in other packages (fw/dispatch, fw/mgmt, fw/athena) can feed and
// inspect a null link without real sockets.
type NullModule = nullModule

// LookupNullModule returns the NullModule backing a link opened with the
// null scheme, for use by tests outside this package.
func (a *Adapter) LookupNullModule(name string) (*NullModule, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.links[name]
	if !ok {
		return nil, false
	}
	m, ok := l.module.(*nullModule)
	return m, ok
}
