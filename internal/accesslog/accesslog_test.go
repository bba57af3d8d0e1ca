package accesslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecordAppendsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.log")
	l := New(path)

	l.Record("alice", "AUTH_SUCCESS", "")
	l.Record("alice", "CONNECT_REQUEST", "example.com:443")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	if !strings.Contains(lines[0], "user=alice") || !strings.Contains(lines[0], "status=AUTH_SUCCESS") {
		t.Fatalf("unexpected line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "details=example.com:443") {
		t.Fatalf("unexpected line: %q", lines[1])
	}
}

func TestRecordWithEmptyUserUsesPlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.log")
	l := New(path)
	l.Record("", "AUTH_FAIL", "bad credentials")

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "user=-") {
		t.Fatalf("expected placeholder for empty user, got %q", data)
	}
}

func TestNilLoggerRecordIsNoop(t *testing.T) {
	var l *Logger
	l.Record("alice", "AUTH_SUCCESS", "") // must not panic
}

func TestZeroValuePathNoop(t *testing.T) {
	l := &Logger{}
	l.Record("alice", "AUTH_SUCCESS", "") // no Path set: no-op, no panic
}
