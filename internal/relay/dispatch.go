package relay

import (
	"golang.org/x/sys/unix"

	"github.com/kestrelnet/socks5gate/internal/socks5"
)

// dispatch routes one epoll event to the handler appropriate for the
// slot's current state.
func (l *EventLoop) dispatch(s *connSlot, fd int, mask uint32) {
	switch s.state() {
	case socks5.StateGreeting, socks5.StateAuth, socks5.StateRequest:
		if fd != s.clientFD {
			return
		}
		if mask&unix.EPOLLOUT != 0 {
			l.flushHandshakeReply(s)
		}
		if mask&unix.EPOLLIN != 0 {
			l.dispatchHandshake(s)
		}

	case socks5.StateConnecting:
		if fd == s.remoteFD && mask&unix.EPOLLOUT != 0 {
			l.dispatchConnecting(s)
		}

	case socks5.StateRelaying:
		if mask&unix.EPOLLOUT != 0 {
			l.dispatchWritable(s, fd)
		}
		if mask&unix.EPOLLIN != 0 {
			if fd == s.clientFD {
				l.pumpClientReadable(s)
			} else if fd == s.remoteFD {
				l.pumpRemoteReadable(s)
			}
		}

	case socks5.StateError:
		// A failure reply that could not be written in one go is still
		// pending; flushHandshakeReply tears the slot down once it drains.
		if fd == s.clientFD && mask&unix.EPOLLOUT != 0 {
			l.flushHandshakeReply(s)
		}

	default: // DONE: already torn down or about to be
	}
}

func (l *EventLoop) flushHandshakeReply(s *connSlot) {
	if !s.remoteToClient.HasData() {
		return
	}
	n, err := unix.Write(s.clientFD, s.remoteToClient.Unflushed())
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		l.teardownSlot(s, "client_write_error")
		return
	}
	if n > 0 {
		s.remoteToClient.Advance(n)
	}
	if s.remoteToClient.HasData() {
		return
	}
	switch s.state() {
	case socks5.StateGreeting, socks5.StateAuth, socks5.StateRequest:
		l.registerClientReadOnly(s)
	case socks5.StateError:
		l.teardownSlot(s, "protocol_error")
	}
}

func (l *EventLoop) sweep() {
	l.sweepConnecting()
	l.sweepIdle()
}
