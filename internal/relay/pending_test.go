package relay

import "testing"

func TestPendingBufferHasDataTracksOffsetVsLen(t *testing.T) {
	p := newPendingBuffer(16)
	if p.HasData() {
		t.Fatalf("fresh buffer should have no data")
	}
	p.Stage([]byte("hello"))
	if !p.HasData() {
		t.Fatalf("expected data after Stage")
	}
	p.Advance(5)
	if p.HasData() {
		t.Fatalf("expected empty after full Advance")
	}
}

func TestPendingBufferPartialAdvance(t *testing.T) {
	p := newPendingBuffer(16)
	p.Stage([]byte("hello"))
	p.Advance(2)
	if string(p.Unflushed()) != "llo" {
		t.Fatalf("got %q", p.Unflushed())
	}
	if !p.HasData() {
		t.Fatalf("expected remaining data")
	}
}

func TestPendingBufferStageCapsAtCapacity(t *testing.T) {
	p := newPendingBuffer(4)
	p.Stage([]byte("abcdef"))
	if len(p.data) != 4 {
		t.Fatalf("expected staged data capped at capacity 4, got %d", len(p.data))
	}
	if string(p.Unflushed()) != "abcd" {
		t.Fatalf("got %q", p.Unflushed())
	}
}

func TestPendingBufferResetClearsOffsetAndLen(t *testing.T) {
	p := newPendingBuffer(8)
	p.Stage([]byte("abc"))
	p.Reset()
	if p.HasData() || len(p.data) != 0 || p.offset != 0 {
		t.Fatalf("expected cleared buffer, got data=%v offset=%d", p.data, p.offset)
	}
}
