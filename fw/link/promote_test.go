package link

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// linkModule returns the module backing a just-opened link, for tests that
// need to reach into a listener's real socket.
func linkModule(t *testing.T, a *Adapter, name string) Module {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.links[name]
	require.True(t, ok)
	return l.module
}

func TestAdapterTcpListenerPromotesAcceptedConnection(t *testing.T) {
	a := NewAdapter(nil)
	name, err := a.Open("tcp://127.0.0.1:0/listener")
	require.NoError(t, err)

	tm, ok := linkModule(t, a, name).(*tcpModule)
	require.True(t, ok)
	addr := tm.listener.Addr().String()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	// A minimal framed TLV packet: version, type (no tail), length=3, payload.
	wire := []byte{1, 5, 3, 'a', 'b', 'c'}
	_, err = conn.Write(wire)
	require.NoError(t, err)

	r, err := a.Receive(500 * time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, wire, r.Wire)

	a.mu.Lock()
	n := len(a.byId)
	a.mu.Unlock()
	require.Equal(t, 1, n)
}

func TestAdapterUdpListenerDemuxesAndReassemblesFragments(t *testing.T) {
	a := NewAdapter(nil)
	name, err := a.Open("udp://127.0.0.1:0/listener/mtu=16/fragmenter=BEFS")
	require.NoError(t, err)

	um, ok := linkModule(t, a, name).(*udpModule)
	require.True(t, ok)
	laddr := um.conn.LocalAddr().(*net.UDPAddr)

	raddr, err := net.ResolveUDPAddr("udp", laddr.String())
	require.NoError(t, err)
	conn, err := net.DialUDP("udp", nil, raddr)
	require.NoError(t, err)
	defer conn.Close()

	payload := bytes.Repeat([]byte{0x42}, 100)
	for _, frag := range NewBefsFragmenter().Fragment(payload, 16) {
		_, err := conn.Write(frag)
		require.NoError(t, err)
	}

	r, err := a.Receive(500 * time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, payload, r.Wire)
}
