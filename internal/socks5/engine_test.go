package socks5

import (
	"errors"
	"testing"
)

type stubValidator struct {
	users map[string]string
}

func (s stubValidator) ValidateUser(username, password string) bool {
	want, ok := s.users[username]
	return ok && want == password
}

func TestEngineNoAuthFlow(t *testing.T) {
	e := NewEngine(false, nil)

	reply, ready, err := e.Feed([]byte{Version5, 1, MethodNoAuth})
	if err != nil {
		t.Fatalf("greeting: unexpected error: %v", err)
	}
	if ready {
		t.Fatalf("greeting should not report ready")
	}
	if string(reply) != string([]byte{Version5, MethodNoAuth}) {
		t.Fatalf("unexpected greeting reply: %v", reply)
	}
	if e.State() != StateRequest {
		t.Fatalf("state = %v, want REQUEST", e.State())
	}

	connectBuf := []byte{Version5, CmdConnect, 0x00, ATYPIPv4, 127, 0, 0, 1, 0x1F, 0x90}
	reply, ready, err = e.Feed(connectBuf)
	if err != nil {
		t.Fatalf("request: unexpected error: %v", err)
	}
	if !ready {
		t.Fatalf("expected ready after REQUEST parsed")
	}
	if reply != nil {
		t.Fatalf("REQUEST parse should not itself produce a reply, got %v", reply)
	}
	if e.State() != StateConnecting {
		t.Fatalf("state = %v, want CONNECTING", e.State())
	}
	if e.Request.Host != "127.0.0.1" || e.Request.Port != 8080 {
		t.Fatalf("unexpected request: %+v", e.Request)
	}
}

func TestEngineUserPassAuthFlow(t *testing.T) {
	v := stubValidator{users: map[string]string{"alice": "secret"}}
	e := NewEngine(true, v)

	reply, _, err := e.Feed([]byte{Version5, 1, MethodUserPass})
	if err != nil {
		t.Fatalf("greeting: unexpected error: %v", err)
	}
	if string(reply) != string([]byte{Version5, MethodUserPass}) {
		t.Fatalf("unexpected greeting reply: %v", reply)
	}
	if e.State() != StateAuth {
		t.Fatalf("state = %v, want AUTH", e.State())
	}

	authBuf := []byte{AuthVer1, 5, 'a', 'l', 'i', 'c', 'e', 6, 's', 'e', 'c', 'r', 'e', 't'}
	reply, _, err = e.Feed(authBuf)
	if err != nil {
		t.Fatalf("auth: unexpected error: %v", err)
	}
	if string(reply) != string([]byte{AuthVer1, AuthSuccess}) {
		t.Fatalf("unexpected auth reply: %v", reply)
	}
	if e.State() != StateRequest {
		t.Fatalf("state = %v, want REQUEST", e.State())
	}
	if e.AuthenticatedUser != "alice" {
		t.Fatalf("AuthenticatedUser = %q", e.AuthenticatedUser)
	}
}

func TestEngineAuthFailureEntersError(t *testing.T) {
	v := stubValidator{users: map[string]string{"alice": "secret"}}
	e := NewEngine(true, v)
	e.Feed([]byte{Version5, 1, MethodUserPass})

	authBuf := []byte{AuthVer1, 5, 'a', 'l', 'i', 'c', 'e', 5, 'w', 'r', 'o', 'n', 'g'}
	reply, _, err := e.Feed(authBuf)
	if !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("expected ErrAuthFailure, got %v", err)
	}
	if string(reply) != string([]byte{AuthVer1, AuthFailure}) {
		t.Fatalf("unexpected auth reply: %v", reply)
	}
	if e.State() != StateError {
		t.Fatalf("state = %v, want ERROR", e.State())
	}
}

func TestEngineNoAcceptableMethod(t *testing.T) {
	e := NewEngine(false, nil)
	reply, _, err := e.Feed([]byte{Version5, 1, MethodUserPass})
	if !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("expected ErrAuthFailure, got %v", err)
	}
	if reply[1] != MethodNoAcceptable {
		t.Fatalf("expected 0xFF reply, got %v", reply)
	}
	if e.State() != StateError {
		t.Fatalf("state = %v, want ERROR", e.State())
	}
}

func TestEngineUnsupportedCommandYieldsReply07(t *testing.T) {
	e := NewEngine(false, nil)
	e.Feed([]byte{Version5, 1, MethodNoAuth})

	buf := []byte{Version5, CmdBind, 0x00, ATYPIPv4, 1, 2, 3, 4, 0, 80}
	reply, ready, err := e.Feed(buf)
	if !errors.Is(err, ErrUnsupportedCmd) {
		t.Fatalf("expected ErrUnsupportedCmd, got %v", err)
	}
	if ready {
		t.Fatalf("should not report ready on error")
	}
	if reply[1] != ReplyCommandNotSupported {
		t.Fatalf("expected reply code 0x07, got %#x", reply[1])
	}
}

func TestEngineUnsupportedATYPYieldsReply08(t *testing.T) {
	e := NewEngine(false, nil)
	e.Feed([]byte{Version5, 1, MethodNoAuth})

	buf := []byte{Version5, CmdConnect, 0x00, 0x02, 0, 0}
	reply, _, err := e.Feed(buf)
	if !errors.Is(err, ErrUnsupportedATYP) {
		t.Fatalf("expected ErrUnsupportedATYP, got %v", err)
	}
	if reply == nil || reply[1] != ReplyAddrTypeNotSupp {
		t.Fatalf("expected reply code 0x08, got %v", reply)
	}
}

func TestEngineFeedSplitAcrossChunks(t *testing.T) {
	e := NewEngine(false, nil)
	_, ready, err := e.Feed([]byte{Version5})
	if err != nil || ready {
		t.Fatalf("partial greeting should be incomplete, not error/ready: ready=%v err=%v", ready, err)
	}
	reply, _, err := e.Feed([]byte{1, MethodNoAuth})
	if err != nil {
		t.Fatalf("unexpected error completing greeting: %v", err)
	}
	if string(reply) != string([]byte{Version5, MethodNoAuth}) {
		t.Fatalf("unexpected reply: %v", reply)
	}
}

func TestEngineCompleteConnectTransitionsToRelaying(t *testing.T) {
	e := NewEngine(false, nil)
	e.Feed([]byte{Version5, 1, MethodNoAuth})
	e.Feed([]byte{Version5, CmdConnect, 0x00, ATYPIPv4, 127, 0, 0, 1, 0x1F, 0x90})

	reply := e.CompleteConnect(ReplySucceeded, ATYPIPv4, []byte{127, 0, 0, 1}, 5555)
	if e.State() != StateRelaying {
		t.Fatalf("state = %v, want RELAYING", e.State())
	}
	if reply[1] != ReplySucceeded {
		t.Fatalf("expected success reply code, got %#x", reply[1])
	}
}

func TestEngineCompleteConnectFailureTransitionsToError(t *testing.T) {
	e := NewEngine(false, nil)
	e.Feed([]byte{Version5, 1, MethodNoAuth})
	e.Feed([]byte{Version5, CmdConnect, 0x00, ATYPIPv4, 127, 0, 0, 1, 0x1F, 0x90})

	e.CompleteConnect(ReplyHostUnreachable, ATYPIPv4, nil, 0)
	if e.State() != StateError {
		t.Fatalf("state = %v, want ERROR", e.State())
	}
}
