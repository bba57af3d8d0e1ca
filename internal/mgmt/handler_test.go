package mgmt

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/kestrelnet/socks5gate/internal/config"
	"github.com/kestrelnet/socks5gate/internal/store"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	cfg := config.Defaults()
	cfg.UserDBPath = filepath.Join(t.TempDir(), "auth.db")
	s, err := store.New(cfg, nil)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return &Handler{Store: s}
}

func TestHandleAddUserThenDuplicateFails(t *testing.T) {
	h := newTestHandler(t)

	var buf bytes.Buffer
	if err := h.Handle(&buf, Request{Command: CmdAddUser, Username: "alice", Password: "secret"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	resp := decodeSimple(t, buf.Bytes())
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}

	buf.Reset()
	if err := h.Handle(&buf, Request{Command: CmdAddUser, Username: "alice", Password: "other"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	resp = decodeSimple(t, buf.Bytes())
	if resp.Success {
		t.Fatal("expected duplicate ADD_USER to fail")
	}
}

func TestHandleSetTimeoutRejectsNonPositive(t *testing.T) {
	h := newTestHandler(t)
	var buf bytes.Buffer
	if err := h.Handle(&buf, Request{Command: CmdSetTimeout, Username: "-5"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	resp := decodeSimple(t, buf.Bytes())
	if resp.Success {
		t.Fatal("expected SET_TIMEOUT with negative argument to fail")
	}
}

func TestHandleSetBufferRejectsOutOfRange(t *testing.T) {
	h := newTestHandler(t)

	var buf bytes.Buffer
	if err := h.Handle(&buf, Request{Command: CmdSetBuffer, Username: "128"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	resp := decodeSimple(t, buf.Bytes())
	if resp.Success {
		t.Fatal("expected SET_BUFFER below MinBufferSize to fail")
	}

	buf.Reset()
	if err := h.Handle(&buf, Request{Command: CmdSetBuffer, Username: "4194304"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	resp = decodeSimple(t, buf.Bytes())
	if resp.Success {
		t.Fatal("expected SET_BUFFER above MaxBufferCapacity to fail")
	}

	buf.Reset()
	if err := h.Handle(&buf, Request{Command: CmdSetBuffer, Username: "65536"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	resp = decodeSimple(t, buf.Bytes())
	if !resp.Success {
		t.Fatalf("expected SET_BUFFER within range to succeed, got %+v", resp)
	}
}

func TestHandleUnknownCommand(t *testing.T) {
	h := newTestHandler(t)
	var buf bytes.Buffer
	if err := h.Handle(&buf, Request{Command: Command(999)}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	resp := decodeSimple(t, buf.Bytes())
	if resp.Success {
		t.Fatal("expected unknown command to fail")
	}
}

func TestEnableDisableDissectorsIdempotent(t *testing.T) {
	h := newTestHandler(t)
	var buf bytes.Buffer

	for i := 0; i < 2; i++ {
		buf.Reset()
		if err := h.Handle(&buf, Request{Command: CmdEnableDissectors}); err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if !decodeSimple(t, buf.Bytes()).Success {
			t.Fatal("expected ENABLE_DISSECTORS to succeed")
		}
	}
	if !h.Store.Runtime.DissectorsEnabled() {
		t.Fatal("expected dissectors enabled")
	}

	buf.Reset()
	if err := h.Handle(&buf, Request{Command: CmdDisableDissectors}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if h.Store.Runtime.DissectorsEnabled() {
		t.Fatal("expected dissectors disabled")
	}
}

func decodeSimple(t *testing.T, b []byte) SimpleResponse {
	t.Helper()
	if len(b) != simpleResponseSize {
		t.Fatalf("response size = %d, want %d", len(b), simpleResponseSize)
	}
	success := hostEndian.Uint32(b[0:4]) == 1
	msg := cstring(b[4 : 4+messageFieldLen])
	return SimpleResponse{Success: success, Message: msg}
}
