package audit

import (
	"path/filepath"
	"testing"
)

func TestOpenRunsMigrationsAndRecordsEvents(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Health(); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if err := db.RecordMgmtEvent("ADD_USER", "alice", "added via test"); err != nil {
		t.Fatalf("RecordMgmtEvent: %v", err)
	}
	if err := db.RecordConnectionEvent(1, "opened", "", "1.2.3.4:5555", "", 0, 0); err != nil {
		t.Fatalf("RecordConnectionEvent: %v", err)
	}
	if err := db.RecordConnectionEvent(1, "closed", "", "1.2.3.4:5555", "example.com", 80, 4096); err != nil {
		t.Fatalf("RecordConnectionEvent: %v", err)
	}

	events, err := db.RecentConnectionEvents(10)
	if err != nil {
		t.Fatalf("RecentConnectionEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Event != "closed" {
		t.Fatalf("expected newest-first ordering, got %+v", events[0])
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	db1, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	db1.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("second Open (re-running migrations) failed: %v", err)
	}
	defer db2.Close()
}
