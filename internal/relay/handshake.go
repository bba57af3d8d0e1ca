package relay

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kestrelnet/socks5gate/internal/socks5"
)

// dispatchHandshake advances GREETING/AUTH/REQUEST parsing when the client
// socket becomes readable.
func (l *EventLoop) dispatchHandshake(s *connSlot) {
	buf := l.getReadBuf()
	defer l.putReadBuf(buf)

	n, err := unix.Read(s.clientFD, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		l.teardownSlot(s, "client_read_error")
		return
	}
	if n == 0 {
		l.teardownSlot(s, "peer_closed")
		return
	}
	s.lastActivity = time.Now()

	prevState := s.engine.State()
	reply, ready, ferr := s.engine.Feed(buf[:n])
	l.logAuthOutcome(s, prevState, ferr)

	if reply != nil {
		l.writeToClient(s, reply)
	}
	if ferr != nil {
		// The reply already encodes the failure (e.g. 0xFF, 0x01 0x01, or a
		// CONNECT reply code); the engine is in ERROR and the connection is
		// torn down once the reply is flushed.
		if !s.remoteToClient.HasData() {
			l.teardownSlot(s, "protocol_error")
		}
		return
	}
	if !ready {
		return
	}

	// REQUEST was just parsed: pause client reads while CONNECTING resolves
	// and connects on the remote socket.
	s.destPort = s.engine.Request.Port
	dest := fmt.Sprintf("%s:%d", s.engine.Request.Host, s.engine.Request.Port)
	if l.AccessLog != nil {
		l.AccessLog.Record(s.engine.AuthenticatedUser, "CONNECT_REQUEST", dest)
	}
	_ = l.epollMod(s.clientFD, 0)
	l.beginConnecting(s)
}

// logAuthOutcome emits the spec §6 AUTH_SUCCESS/AUTH_FAIL access-log events
// when Feed just resolved the AUTH sub-negotiation, i.e. the engine was in
// StateAuth before this Feed call.
func (l *EventLoop) logAuthOutcome(s *connSlot, prevState socks5.State, ferr error) {
	if prevState != socks5.StateAuth {
		return
	}
	var peer string
	if s.peerAddr != nil {
		peer = s.peerAddr.String()
	}
	if ferr != nil {
		if l.AccessLog != nil {
			l.AccessLog.Record("", "AUTH_FAIL", peer)
		}
		l.recordConnEvent(s, "auth_fail")
		return
	}
	if l.AccessLog != nil {
		l.AccessLog.Record(s.engine.AuthenticatedUser, "AUTH_SUCCESS", peer)
	}
	l.recordConnEvent(s, "auth_ok")
}
