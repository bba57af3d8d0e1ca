package relay

import (
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kestrelnet/socks5gate/internal/socks5"
)

// dissectorPort is the cleartext POP3 port the dissector hook watches
// (spec §4.4: "the destination port of a connection equals 110").
const dissectorPort = 110

// pumpClientReadable handles a readable client socket in RELAYING: the
// client→remote direction's source became ready (spec §4.6 byte pump).
func (l *EventLoop) pumpClientReadable(s *connSlot) {
	l.pumpRead(s, true)
}

// pumpRemoteReadable handles the remote→client direction's source.
func (l *EventLoop) pumpRemoteReadable(s *connSlot) {
	l.pumpRead(s, false)
}

func (l *EventLoop) pumpRead(s *connSlot, clientToRemote bool) {
	srcFD, dstFD := s.remoteFD, s.clientFD
	pending := s.remoteToClient
	if clientToRemote {
		srcFD, dstFD = s.clientFD, s.remoteFD
		pending = s.clientToRemote
	}

	buf := l.getReadBuf()
	defer l.putReadBuf(buf)

	// Never read more than the pending buffer can stage: its capacity was
	// fixed at accept, while the read buffer follows the current runtime
	// buffer size.
	readBuf := buf
	if c := cap(pending.data); len(readBuf) > c {
		readBuf = readBuf[:c]
	}

	n, err := unix.Read(srcFD, readBuf)
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		l.teardownSlot(s, "io_error")
		return
	}
	if n == 0 {
		l.endDirection(s, clientToRemote)
		return
	}

	data := readBuf[:n]
	if clientToRemote && l.Dissector != nil && s.destPort == dissectorPort && l.Store.Runtime.DissectorsEnabled() {
		l.Dissector.Process(data, peerHost(s.peerAddr))
	}

	sent, werr := unix.Write(dstFD, data)
	if werr != nil && werr != unix.EAGAIN {
		l.teardownSlot(s, "io_error")
		return
	}
	if sent > 0 {
		l.chargeBytes(s, uint64(sent))
	}
	if sent < len(data) {
		pending.Stage(data[sent:])
	}

	s.lastActivity = time.Now()
	l.recomputeEvents(s)
}

// dispatchWritable handles an EPOLLOUT event in RELAYING (or during a
// handshake reply flush, via writeToClient's use of remoteToClient).
func (l *EventLoop) dispatchWritable(s *connSlot, fd int) {
	if fd == s.clientFD {
		l.flushPending(s, s.remoteToClient, s.clientFD)
		return
	}
	if fd == s.remoteFD {
		l.flushPending(s, s.clientToRemote, s.remoteFD)
	}
}

func (l *EventLoop) flushPending(s *connSlot, pending *pendingBuffer, dstFD int) {
	if !pending.HasData() {
		l.recomputeEvents(s)
		return
	}
	n, err := unix.Write(dstFD, pending.Unflushed())
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		l.teardownSlot(s, "io_error")
		return
	}
	if n > 0 {
		pending.Advance(n)
		l.chargeBytes(s, uint64(n))
	}
	l.recomputeEvents(s)

	if s.state() == socks5.StateError && !s.remoteToClient.HasData() && !s.clientToRemote.HasData() {
		l.teardownSlot(s, "protocol_error")
	}
}

// recomputeEvents restores the epoll masks implied by the pending-buffer
// backpressure invariant (spec §4.6 / §8): a direction is either
// (source readable, destination not writable-interested, pending empty) or
// (source paused, destination writable-interested, pending non-empty).
func (l *EventLoop) recomputeEvents(s *connSlot) {
	if s.state() != socks5.StateRelaying {
		return
	}
	clientEvents := uint32(0)
	if !s.clientToRemote.HasData() {
		clientEvents |= unix.EPOLLIN
	}
	if s.remoteToClient.HasData() {
		clientEvents |= unix.EPOLLOUT
	}
	_ = l.epollMod(s.clientFD, clientEvents)

	remoteEvents := uint32(0)
	if !s.remoteToClient.HasData() {
		remoteEvents |= unix.EPOLLIN
	}
	if s.clientToRemote.HasData() {
		remoteEvents |= unix.EPOLLOUT
	}
	_ = l.epollMod(s.remoteFD, remoteEvents)
}

// endDirection handles a clean (0-byte) read on one side of RELAYING. Per
// spec §7, a peer close is clean (DONE) only if no half-written pending
// data remains for that direction; otherwise it is ERROR.
func (l *EventLoop) endDirection(s *connSlot, clientToRemote bool) {
	pending := s.remoteToClient
	if clientToRemote {
		pending = s.clientToRemote
	}
	if pending.HasData() {
		l.teardownSlot(s, "peer_closed_with_pending")
		return
	}
	l.teardownSlot(s, "peer_closed")
}

func (l *EventLoop) chargeBytes(s *connSlot, n uint64) {
	if s.engine != nil && s.engine.AuthenticatedUser != "" {
		l.Store.UpdateUserStats(s.engine.AuthenticatedUser, n, 0)
		return
	}
	l.Store.UpdateGlobalStats(n, 0)
}

func peerHost(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
