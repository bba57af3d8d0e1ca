// Package relay implements the single-threaded event loop that accepts SOCKS5
// clients, drives the protocol engine, and pumps bytes between client and
// remote sockets once a connection reaches RELAYING (component F).
package relay

// pendingBuffer is a fixed-capacity staging area for bytes read from one
// side of a connection but not yet fully written to the other, because the
// destination was not writable. Invariant: offset <= len(data) <= cap(data).
type pendingBuffer struct {
	data   []byte
	offset int
}

func newPendingBuffer(capacity int) *pendingBuffer {
	return &pendingBuffer{data: make([]byte, 0, capacity)}
}

// HasData reports whether there are unflushed bytes waiting.
func (p *pendingBuffer) HasData() bool {
	return p.offset < len(p.data)
}

// Reset clears the buffer for reuse on slot teardown or after a full flush.
func (p *pendingBuffer) Reset() {
	p.data = p.data[:0]
	p.offset = 0
}

// Unflushed returns the slice of bytes still owed to the destination.
func (p *pendingBuffer) Unflushed() []byte {
	return p.data[p.offset:]
}

// Advance records that n bytes of the unflushed tail were written.
func (p *pendingBuffer) Advance(n int) {
	p.offset += n
	if p.offset >= len(p.data) {
		p.Reset()
	}
}

// Stage appends tail to the pending buffer, capped at its capacity. Bytes
// beyond capacity are silently dropped — callers only stage the unsent tail
// of a short write, which by construction never exceeds BUFFER_SIZE.
func (p *pendingBuffer) Stage(tail []byte) {
	room := cap(p.data) - len(p.data)
	if room <= 0 {
		return
	}
	if len(tail) > room {
		tail = tail[:room]
	}
	p.data = append(p.data, tail...)
}
