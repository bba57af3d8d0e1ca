package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kestrelnet/socks5gate/internal/socks5"
)

// beginConnecting resolves the REQUEST's destination and starts the first
// non-blocking connect attempt (spec §4.5 CONNECTING). Name resolution
// itself is a single blocking call here — the spec places "call address
// resolution" as a REQUEST-state step, not as its own async stage, and
// resolution latency is bounded by a context timeout equal to the runtime
// connect timeout.
func (l *EventLoop) beginConnecting(s *connSlot) {
	req := s.engine.Request

	var candidates []net.IP
	if req.ATYP == socks5.ATYPDomain {
		ctx, cancel := context.WithTimeout(context.Background(), l.resolveTimeout())
		defer cancel()
		ips, err := l.Resolver.ResolveHost(ctx, req.Host)
		if err != nil {
			var resolveErr *socks5.ResolveErr
			code := socks5.ReplyGeneralFailure
			if errors.As(err, &resolveErr) {
				code = socks5.ResolveReplyCode(resolveErr.NotFound, resolveErr.FamilyUnsupported)
			}
			l.failConnect(s, code)
			return
		}
		candidates = ips
	} else {
		candidates = []net.IP{net.ParseIP(req.Host)}
	}

	s.connectCandidates = socks5.OrderPreferred(candidates)
	s.connectDeadline = time.Now().Add(l.connectTimeout())
	l.tryNextCandidate(s)
}

func (l *EventLoop) resolveTimeout() time.Duration {
	return l.connectTimeout()
}

func (l *EventLoop) connectTimeout() time.Duration {
	ms := l.Store.Runtime.TimeoutMS()
	if ms <= 0 {
		ms = 10_000
	}
	return time.Duration(ms) * time.Millisecond
}

// tryNextCandidate pops the next resolved address and starts a non-blocking
// connect toward it, registering the remote socket for EPOLLOUT so
// dispatchConnecting can inspect SO_ERROR once writable.
func (l *EventLoop) tryNextCandidate(s *connSlot) {
	for len(s.connectCandidates) > 0 {
		ip := s.connectCandidates[0]
		s.connectCandidates = s.connectCandidates[1:]

		fd, err := socketConnect(ip, int(s.engine.Request.Port))
		if err != nil {
			if errors.Is(err, unix.ETIMEDOUT) {
				s.connectTimedOut = true
			} else if errors.Is(err, unix.ECONNREFUSED) {
				s.connectRefused = true
			}
			continue
		}
		s.remoteFD = fd
		l.fdToSlot[fd] = s
		if err := l.epollAdd(fd, unix.EPOLLOUT); err != nil {
			unix.Close(fd)
			delete(l.fdToSlot, fd)
			s.remoteFD = 0
			continue
		}
		return
	}

	code := socks5.ReplyGeneralFailure
	if s.connectTimedOut {
		code = socks5.ReplyHostUnreachable
	} else if s.connectRefused {
		code = socks5.ReplyConnectionRefused
	}
	l.failConnect(s, code)
}

// dispatchConnecting handles an EPOLLOUT readiness event on a slot's remote
// socket while it is mid-connect.
func (l *EventLoop) dispatchConnecting(s *connSlot) {
	if err := socketError(s.remoteFD); err != nil {
		l.closeRemoteCandidate(s, err)
		l.tryNextCandidate(s)
		return
	}

	bndIP, bndPort, err := localAddr(s.remoteFD)
	if err != nil {
		l.failConnect(s, socks5.ReplyGeneralFailure)
		return
	}
	atyp := socks5.ATYPIPv4
	if bndIP.To4() == nil {
		atyp = socks5.ATYPIPv6
	}

	reply := s.engine.CompleteConnect(socks5.ReplySucceeded, byte(atyp), bndIP, bndPort)
	l.writeToClient(s, reply)

	if err := l.epollMod(s.remoteFD, unix.EPOLLIN); err != nil {
		l.teardownSlot(s, "epoll_mod_failed")
		return
	}
	if l.Dissector != nil {
		l.Dissector.Reset()
	}
	if s.engine.AuthenticatedUser != "" {
		l.Store.UpdateUserConnectionState(s.engine.AuthenticatedUser, 1)
		s.userConnCounted = true
	}
	l.logConnectOutcome(s, true)
	s.lastActivity = time.Now()
}

// logConnectOutcome emits the spec §6 connect-outcome access-log line and
// the matching audit-trail event once CONNECTING resolves, success or not.
func (l *EventLoop) logConnectOutcome(s *connSlot, success bool) {
	dest := fmt.Sprintf("%s:%d", s.engine.Request.Host, s.engine.Request.Port)
	status := "CONNECT_FAILED"
	event := "connect_failed"
	if success {
		status = "CONNECT_OK"
		event = "connected"
	}
	if l.AccessLog != nil {
		l.AccessLog.Record(s.engine.AuthenticatedUser, status, dest)
	}
	l.recordConnEvent(s, event)
}

func (l *EventLoop) closeRemoteCandidate(s *connSlot, err error) {
	if errors.Is(err, unix.ETIMEDOUT) {
		s.connectTimedOut = true
	} else if errors.Is(err, unix.ECONNREFUSED) {
		s.connectRefused = true
	}
	l.epollDel(s.remoteFD)
	delete(l.fdToSlot, s.remoteFD)
	unix.Close(s.remoteFD)
	s.remoteFD = 0
}

func (l *EventLoop) failConnect(s *connSlot, code byte) {
	reply := s.engine.CompleteConnect(code, socks5.ATYPIPv4, nil, 0)
	l.writeToClient(s, reply)
	l.logConnectOutcome(s, false)
	l.teardownSlot(s, "connect_failed")
}

// sweepConnecting tears down connect attempts that exceeded their deadline,
// called from sweep's 1-second tick alongside the relaying idle sweep
// (sweepIdle).
func (l *EventLoop) sweepConnecting() {
	now := time.Now()
	for i := range l.slots {
		s := &l.slots[i]
		if !s.inUse || s.state() != socks5.StateConnecting {
			continue
		}
		if s.connectDeadline.IsZero() || now.Before(s.connectDeadline) {
			continue
		}
		s.connectTimedOut = true
		if s.remoteFD > 0 {
			l.closeRemoteCandidate(s, unix.ETIMEDOUT)
		}
		l.failConnect(s, socks5.ReplyHostUnreachable)
	}
}
