package relay

import "golang.org/x/sys/unix"

// writeToClient sends data to the client socket, staging any unsent tail in
// the (otherwise-unused-until-RELAYING) remoteToClient pending buffer and
// registering write interest, mirroring the byte pump's own backpressure
// handling (spec §4.6) so handshake replies and relayed bytes share one
// flush path.
func (l *EventLoop) writeToClient(s *connSlot, data []byte) {
	if len(data) == 0 {
		return
	}
	if s.remoteToClient.HasData() {
		s.remoteToClient.Stage(data)
		return
	}

	n, err := unix.Write(s.clientFD, data)
	if err != nil && err != unix.EAGAIN {
		l.teardownSlot(s, "client_write_error")
		return
	}
	if n < len(data) {
		s.remoteToClient.Stage(data[n:])
	}
	if s.remoteToClient.HasData() {
		l.registerClientWritable(s, true)
	}
}

// registerClientWritable toggles EPOLLOUT interest on the client fd,
// preserving EPOLLIN interest whenever the protocol state still wants
// client reads (GREETING/AUTH/REQUEST, or RELAYING with the source not
// paused).
func (l *EventLoop) registerClientWritable(s *connSlot, wantRead bool) {
	events := uint32(0)
	if wantRead {
		events |= unix.EPOLLIN
	}
	events |= unix.EPOLLOUT
	_ = l.epollMod(s.clientFD, events)
}

func (l *EventLoop) registerClientReadOnly(s *connSlot) {
	_ = l.epollMod(s.clientFD, unix.EPOLLIN)
}

func (l *EventLoop) registerRemoteWritable(s *connSlot, wantRead bool) {
	events := uint32(0)
	if wantRead {
		events |= unix.EPOLLIN
	}
	events |= unix.EPOLLOUT
	_ = l.epollMod(s.remoteFD, events)
}

func (l *EventLoop) registerRemoteReadOnly(s *connSlot) {
	_ = l.epollMod(s.remoteFD, unix.EPOLLIN)
}
