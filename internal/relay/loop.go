package relay

import (
	"context"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kestrelnet/socks5gate/internal/accesslog"
	"github.com/kestrelnet/socks5gate/internal/dissector/pop3"
	"github.com/kestrelnet/socks5gate/internal/pool"
	"github.com/kestrelnet/socks5gate/internal/socks5"
	"github.com/kestrelnet/socks5gate/internal/store"
)

// tickInterval is the epoll_wait timeout, giving the loop a chance to check
// ctx cancellation and idle timeouts even with no socket activity (spec
// §4.6: "driven by a readiness primitive... with a 1-second tick").
const tickInterval = 1 * time.Second

// AuditRecorder is the subset of *audit.DB the event loop needs to record
// connection lifecycle events, kept as an interface so tests can substitute
// a stub instead of pulling in a real SQLite database.
type AuditRecorder interface {
	RecordConnectionEvent(connID uint64, event, username, peerAddr, destHost string, destPort int, bytes uint64) error
}

// EventLoop is the single-threaded, non-blocking proxy core (component F).
// It exclusively owns connection slots and their sockets; all shared state
// goes through store.Store's mutexes.
type EventLoop struct {
	Logger    *slog.Logger
	Store     *store.Store
	Resolver  socks5.Resolver
	Dissector *pop3.Dissector // single process-global instance, spec §9

	// Audit, if non-nil, receives a connection-lifecycle event at accept,
	// auth outcome, connect outcome, and teardown — backing the
	// dashboard's recent-activity view (spec's access-log supplement).
	Audit AuditRecorder

	// AccessLog, if non-nil, appends the spec §6-literal plain-text
	// metrics.log entries: AUTH_SUCCESS, AUTH_FAIL, CONNECT_REQUEST, and
	// the connect outcome.
	AccessLog *accesslog.Logger

	listenFD int
	epfd     int

	slots    []connSlot
	fdToSlot map[int]*connSlot

	bufPool *pool.Pool[[]byte]
}

// NewEventLoop creates a loop ready to listen once Run is called. audit and
// accessLog are both optional (nil disables each independently).
func NewEventLoop(st *store.Store, resolver socks5.Resolver, dissector *pop3.Dissector, audit AuditRecorder, accessLog *accesslog.Logger, logger *slog.Logger) (*EventLoop, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	maxClients := st.Runtime.MaxClients()
	return &EventLoop{
		Logger:    logger,
		Store:     st,
		Resolver:  resolver,
		Dissector: dissector,
		Audit:     audit,
		AccessLog: accessLog,
		epfd:      epfd,
		listenFD:  -1,
		slots:     make([]connSlot, maxClients),
		fdToSlot:  make(map[int]*connSlot, maxClients),
		bufPool:   pool.New(func() []byte { return make([]byte, st.Runtime.BufferSize()) }),
	}, nil
}

// getReadBuf borrows a read buffer from the pool, reallocating if the
// runtime buffer size has changed since it was last returned.
func (l *EventLoop) getReadBuf() []byte {
	buf := l.bufPool.Get()
	if want := l.Store.Runtime.BufferSize(); len(buf) != want {
		return make([]byte, want)
	}
	return buf
}

// putReadBuf returns a read buffer to the pool for reuse.
func (l *EventLoop) putReadBuf(buf []byte) {
	l.bufPool.Put(buf)
}

// Run binds the SOCKS5 listener on host:port and drives the loop until ctx
// is cancelled.
func (l *EventLoop) Run(ctx context.Context, host string, port int) error {
	fd, err := listenNonblocking(familyForHost(host), host, port)
	if err != nil {
		return err
	}
	l.listenFD = fd
	defer unix.Close(l.listenFD)

	if err := l.epollAdd(l.listenFD, unix.EPOLLIN); err != nil {
		return err
	}
	defer unix.Close(l.epfd)

	l.Logger.Info("socks5 listener started", "host", host, "port", port)

	events := make([]unix.EpollEvent, 256)
	for {
		if err := ctx.Err(); err != nil {
			l.teardownAll()
			return nil
		}

		n, err := unix.EpollWait(l.epfd, events, int(tickInterval.Milliseconds()))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			mask := events[i].Events

			if fd == l.listenFD {
				l.acceptLoop()
				continue
			}
			slot, ok := l.fdToSlot[fd]
			if !ok {
				continue // stale event for an already torn-down slot
			}
			l.dispatch(slot, fd, mask)
		}

		l.sweep()
	}
}

func (l *EventLoop) epollAdd(fd int, events uint32) error {
	return unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

func (l *EventLoop) epollMod(fd int, events uint32) error {
	return unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

func (l *EventLoop) epollDel(fd int) {
	_ = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// acceptLoop drains all pending accepts, bounded by max_clients (spec §4.6
// item 1: "Reject when full: close immediately").
func (l *EventLoop) acceptLoop() {
	for {
		fd, sa, err := unix.Accept4(l.listenFD, unix.SOCK_NONBLOCK)
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			l.Logger.Warn("accept failed", "err", err)
			return
		}

		slot := l.freeSlot()
		if slot == nil {
			unix.Close(fd)
			l.Logger.Warn("rejecting connection: no free slot", "max_clients", l.Store.Runtime.MaxClients())
			continue
		}

		slot.inUse = true
		slot.clientFD = fd
		slot.connID = l.Store.NextConnectionID()
		slot.engine = socks5.NewEngine(l.Store.HasUsers(), l.Store)
		slot.engine.Logger = l.Logger
		slot.engine.SetConnID(slot.connID)
		slot.clientToRemote = newPendingBuffer(l.Store.Runtime.BufferSize())
		slot.remoteToClient = newPendingBuffer(l.Store.Runtime.BufferSize())
		now := time.Now()
		slot.lastActivity = now
		slot.openedAt = now
		slot.peerAddr = sockaddrToNetAddr(sa)

		l.Store.UpdateGlobalStats(0, 1)
		l.fdToSlot[fd] = slot
		if err := l.epollAdd(fd, unix.EPOLLIN); err != nil {
			l.Logger.Warn("epoll add failed", "err", err)
			l.teardownSlot(slot, "epoll_add_failed")
			continue
		}

		l.Logger.Info("accepted socks5 client", "conn_id", slot.connID, "peer", slot.peerAddr)
		l.recordConnEvent(slot, "opened")
	}
}

// recordConnEvent mirrors a connection-lifecycle event into the audit
// trail, if one is attached. A nil Audit is a no-op.
func (l *EventLoop) recordConnEvent(s *connSlot, event string) {
	if l.Audit == nil {
		return
	}
	var user, peer, destHost string
	var destPort int
	if s.engine != nil {
		user = s.engine.AuthenticatedUser
		destHost = s.engine.Request.Host
		destPort = int(s.engine.Request.Port)
	}
	if s.peerAddr != nil {
		peer = s.peerAddr.String()
	}
	if err := l.Audit.RecordConnectionEvent(s.connID, event, user, peer, destHost, destPort, 0); err != nil {
		l.Logger.Warn("audit: record connection event", "conn_id", s.connID, "event", event, "error", err)
	}
}

func (l *EventLoop) freeSlot() *connSlot {
	for i := range l.slots {
		if !l.slots[i].inUse {
			return &l.slots[i]
		}
	}
	return nil
}

func sockaddrToNetAddr(sa unix.Sockaddr) net.Addr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: append([]byte(nil), a.Addr[:]...), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: append([]byte(nil), a.Addr[:]...), Port: a.Port}
	default:
		return nil
	}
}

func (l *EventLoop) sweepIdle() {
	timeout := time.Duration(l.Store.Runtime.IdleTimeoutMS()) * time.Millisecond
	if timeout <= 0 {
		return
	}
	now := time.Now()
	for i := range l.slots {
		s := &l.slots[i]
		if !s.inUse || s.state() != socks5.StateRelaying {
			continue
		}
		if now.Sub(s.lastActivity) > timeout {
			l.Logger.Info("idle session timeout", "conn_id", s.connID)
			l.teardownSlot(s, "idle_timeout")
		}
	}
}

// teardownSlot closes both sockets, deregisters from epoll, updates stats,
// and returns the slot to the free pool (spec §4.6: "both sockets closed,
// file-descriptor sets cleared, pending buffers reset").
func (l *EventLoop) teardownSlot(s *connSlot, reason string) {
	if !s.inUse {
		return
	}
	if s.clientFD > 0 {
		l.epollDel(s.clientFD)
		delete(l.fdToSlot, s.clientFD)
		unix.Close(s.clientFD)
	}
	if s.remoteFD > 0 {
		l.epollDel(s.remoteFD)
		delete(l.fdToSlot, s.remoteFD)
		unix.Close(s.remoteFD)
	}

	// acceptLoop's global +1 is unconditional and per-slot, so teardown's
	// global -1 mirrors it unconditionally too. The per-user connection
	// credit dispatchConnecting hands out on a successful CONNECT is
	// separate bookkeeping (UpdateUserConnectionState doesn't touch
	// GlobalStats), so it's reversed independently here rather than
	// cascaded through UpdateUserStats, which would double-decrement
	// CurrentConnections against the accept-time +1.
	l.Store.UpdateGlobalStats(0, -1)
	if s.userConnCounted {
		l.Store.UpdateUserConnectionState(s.engine.AuthenticatedUser, -1)
	}

	l.recordConnEvent(s, "closed")

	connID := s.connID
	duration := time.Since(s.openedAt)
	s.reset()
	l.Logger.Info("connection closed", "conn_id", connID, "reason", reason, "duration", duration)
}

func (l *EventLoop) teardownAll() {
	for i := range l.slots {
		if l.slots[i].inUse {
			l.teardownSlot(&l.slots[i], "shutdown")
		}
	}
}

