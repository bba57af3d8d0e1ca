package config

import "testing"

func TestDefaultsNormalize(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("defaults should normalize cleanly: %v", err)
	}
}

func TestNormalizeRejectsBadTimeout(t *testing.T) {
	cfg := Defaults()
	cfg.Runtime.TimeoutMS = 0
	if err := cfg.Normalize(); err == nil {
		t.Fatal("expected error for zero timeout")
	}
}

func TestNormalizeRejectsBadBufferSize(t *testing.T) {
	cfg := Defaults()
	cfg.Runtime.BufferSize = MinBufferSize - 1
	if err := cfg.Normalize(); err == nil {
		t.Fatal("expected error for undersized buffer")
	}
	cfg.Runtime.BufferSize = MaxBufferCapacity + 1
	if err := cfg.Normalize(); err == nil {
		t.Fatal("expected error for oversized buffer")
	}
}

func TestNormalizeRejectsBadPort(t *testing.T) {
	cfg := Defaults()
	cfg.Socks.Port = 0
	if err := cfg.Normalize(); err == nil {
		t.Fatal("expected error for invalid socks port")
	}
}
