package link

import (
	"encoding/binary"
	"net"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/parc-forge/athena/fw/defn"
)

func init() {
	RegisterModule(&ethModule{})
}

// ccnxEtherType is the default ethertype used to frame CCNx TLV packets
// directly over Ethernet (spec §6 "Ethernet framing").
const ccnxEtherType = 0x8624

const ethHeaderLen = 14

// ethModule implements spec §4.1/§6's raw Ethernet scheme: each packet is a
// single frame (14-byte header + TLV payload), using an AF_PACKET socket.
// There is no prior teacher module for this scheme (YaNFD only speaks
// IP/WebSocket transports); grounded on the shared transportBase contract
// (fw/face/transport.go) and spec §6's framing description, using
// golang.org/x/sys for the raw-socket syscalls.
type ethModule struct {
	baseModule
	fd        int
	ifaceIdx  int
	localMac  net.HardwareAddr
	remoteMac net.HardwareAddr
	recvQ     chan []byte
	stop      chan struct{}
	stopOnce  sync.Once
}

func (m *ethModule) Scheme() string { return "eth" }

func (m *ethModule) Open(authority string, opts Options) (Module, bool, error) {
	iface, err := net.InterfaceByName(authority)
	if err != nil {
		return nil, false, defn.WrapError(defn.ErrInvalid, err, "resolving eth interface %s", authority)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, htons(ccnxEtherType))
	if err != nil {
		return nil, false, defn.WrapError(defn.ErrIo, err, "opening AF_PACKET socket")
	}

	addr := unix.SockaddrLinklayer{Protocol: htons(ccnxEtherType), Ifindex: iface.Index}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, false, defn.WrapError(defn.ErrIo, err, "binding AF_PACKET socket to %s", authority)
	}

	em := &ethModule{fd: fd, ifaceIdx: iface.Index, localMac: iface.HardwareAddr, recvQ: make(chan []byte, 64), stop: make(chan struct{})}
	em.mtu = mtuOr(opts.Mtu, iface.MTU)
	em.fragmenter = fragmenterFromOpts(opts)
	em.sendReady = true
	em.recvReady = true
	if opts.Src != "" {
		if mac, err := net.ParseMAC(opts.Src); err == nil {
			em.remoteMac = mac
		}
	}
	go em.receiveLoop()
	return em, true, nil
}

func htons(v uint16) uint16 {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return binary.LittleEndian.Uint16(buf)
}

func (m *ethModule) receiveLoop() {
	buf := make([]byte, 65535)
	for {
		n, _, err := unix.Recvfrom(m.fd, buf, 0)
		if err != nil {
			m.errored = true
			return
		}
		if n <= ethHeaderLen {
			continue
		}
		payload := append([]byte{}, buf[ethHeaderLen:n]...)
		select {
		case m.recvQ <- payload:
		case <-m.stop:
			return
		}
	}
}

func (m *ethModule) Send(wire []byte) bool {
	frame := make([]byte, ethHeaderLen+len(wire))
	if len(m.remoteMac) == 6 {
		copy(frame[0:6], m.remoteMac)
	} else {
		for i := 0; i < 6; i++ {
			frame[i] = 0xff // broadcast when no destination MAC is configured
		}
	}
	if len(m.localMac) == 6 {
		copy(frame[6:12], m.localMac)
	}
	binary.BigEndian.PutUint16(frame[12:14], ccnxEtherType)
	copy(frame[ethHeaderLen:], wire)

	addr := unix.SockaddrLinklayer{Protocol: htons(ccnxEtherType), Ifindex: m.ifaceIdx}
	err := unix.Sendto(m.fd, frame, 0, &addr)
	return err == nil
}

func (m *ethModule) Receive() ([]byte, bool) {
	select {
	case b := <-m.recvQ:
		return b, true
	default:
		return nil, false
	}
}

func (m *ethModule) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return unix.Close(m.fd)
}

func (m *ethModule) String() string { return "eth-module" }
