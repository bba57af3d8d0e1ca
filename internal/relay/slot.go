package relay

import (
	"net"
	"time"

	"github.com/kestrelnet/socks5gate/internal/socks5"
)

// connSlot is a live proxy client, owned exclusively by the event loop
// (spec §3 "Connection slot", §5 "The event loop owns all proxy sockets").
type connSlot struct {
	inUse bool

	clientFD int
	remoteFD int // 0 until the first connect attempt starts in CONNECTING

	connID uint64

	engine   *socks5.Engine
	destPort uint16
	peerAddr net.Addr

	clientToRemote *pendingBuffer
	remoteToClient *pendingBuffer

	clientReadable bool
	clientWritable bool
	remoteReadable bool
	remoteWritable bool

	// connectCandidates holds addresses still to try, in preference order,
	// consumed one at a time while in CONNECTING.
	connectCandidates []net.IP
	connectDeadline   time.Time
	connectTimedOut   bool
	connectRefused    bool

	lastActivity time.Time
	openedAt     time.Time

	// userConnCounted is set once dispatchConnecting credits a successful
	// CONNECT to an authenticated user's CurrentConnections, so teardownSlot
	// knows whether to reverse that credit.
	userConnCounted bool
}

func (s *connSlot) reset() {
	*s = connSlot{}
}

// state reports the slot's position, always delegating to the protocol
// engine (which also holds RELAYING, DONE and ERROR); a slot with no engine
// reports ERROR.
func (s *connSlot) state() socks5.State {
	if s.engine == nil {
		return socks5.StateError
	}
	return s.engine.State()
}
