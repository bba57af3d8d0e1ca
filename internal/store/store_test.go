package store

import (
	"path/filepath"
	"testing"

	"github.com/kestrelnet/socks5gate/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Defaults()
	cfg.UserDBPath = filepath.Join(t.TempDir(), "auth.db")
	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestAddDeleteUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	before := len(s.ListActiveUsers())

	if err := s.AddUser("alice", "secret"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if err := s.DeleteUser("alice"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if got := len(s.ListActiveUsers()); got != before {
		t.Fatalf("user count = %d, want %d after add+delete", got, before)
	}
}

func TestAddUserDuplicateRejected(t *testing.T) {
	s := newTestStore(t)
	if err := s.AddUser("alice", "secret"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if err := s.AddUser("alice", "other"); err == nil {
		t.Fatal("expected error adding duplicate username")
	}
	users := s.ListActiveUsers()
	count := 0
	for _, u := range users {
		if u.Username == "alice" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one alice record, got %d", count)
	}
}

func TestListActiveUsersNeverListsInactive(t *testing.T) {
	s := newTestStore(t)
	_ = s.AddUser("alice", "secret")
	for _, u := range s.ListActiveUsers() {
		if !u.Active {
			t.Fatalf("found inactive user in ListActiveUsers: %+v", u)
		}
	}
}

func TestValidateUserChecksStoreThenCLI(t *testing.T) {
	cfg := config.Defaults()
	cfg.UserDBPath = filepath.Join(t.TempDir(), "auth.db")
	s, err := New(cfg, nil, WithCLIUsers(map[string]string{"clibob": "climpwd"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = s.AddUser("alice", "secret")

	if !s.ValidateUser("alice", "secret") {
		t.Fatal("expected alice/secret to validate")
	}
	if s.ValidateUser("alice", "wrong") {
		t.Fatal("expected wrong password to fail")
	}
	if !s.ValidateUser("clibob", "climpwd") {
		t.Fatal("expected CLI-provided user to validate")
	}
}

func TestConnectionIDsMonotoneFromOne(t *testing.T) {
	s := newTestStore(t)
	for i := uint64(1); i <= 5; i++ {
		if got := s.NextConnectionID(); got != i {
			t.Fatalf("connection id %d, want %d", got, i)
		}
	}
}

func TestPeakNeverBelowCurrent(t *testing.T) {
	s := newTestStore(t)
	s.UpdateGlobalStats(0, 1)
	s.UpdateGlobalStats(0, 1)
	s.UpdateGlobalStats(0, 1)
	snap := s.GlobalSnapshot()
	if snap.PeakConnections < snap.CurrentConnections {
		t.Fatalf("peak %d < current %d", snap.PeakConnections, snap.CurrentConnections)
	}
	s.UpdateGlobalStats(0, -2)
	snap = s.GlobalSnapshot()
	if snap.PeakConnections < snap.CurrentConnections {
		t.Fatalf("peak %d < current %d after close", snap.PeakConnections, snap.CurrentConnections)
	}
	if snap.PeakConnections != 3 {
		t.Fatalf("peak = %d, want 3 (monotone non-decreasing)", snap.PeakConnections)
	}
}

func TestUpdateUserStatsAlsoUpdatesGlobal(t *testing.T) {
	s := newTestStore(t)
	_ = s.AddUser("alice", "secret")

	s.UpdateUserStats("alice", 100, 1)
	snap := s.GlobalSnapshot()
	if snap.TotalBytes != 100 || snap.CurrentConnections != 1 {
		t.Fatalf("global snapshot not updated by per-user call: %+v", snap)
	}
	us, ok := s.UserStatsSnapshot("alice")
	if !ok {
		t.Fatal("expected alice stats to exist")
	}
	if us.TotalBytes != 100 || us.FirstConnectionTime.IsZero() {
		t.Fatalf("unexpected user stats: %+v", us)
	}
}

func TestUpdateUserConnectionStateLeavesGlobalUntouched(t *testing.T) {
	s := newTestStore(t)
	_ = s.AddUser("alice", "secret")

	s.UpdateGlobalStats(0, 1) // e.g. accept-time bookkeeping, done independently

	s.UpdateUserConnectionState("alice", 1)
	snap := s.GlobalSnapshot()
	if snap.CurrentConnections != 1 {
		t.Fatalf("global CurrentConnections = %d, want 1 (UpdateUserConnectionState must not cascade)", snap.CurrentConnections)
	}
	us, ok := s.UserStatsSnapshot("alice")
	if !ok || us.CurrentConnections != 1 || us.FirstConnectionTime.IsZero() {
		t.Fatalf("unexpected user stats after open: %+v", us)
	}

	s.UpdateUserConnectionState("alice", -1)
	us, _ = s.UserStatsSnapshot("alice")
	if us.CurrentConnections != 0 {
		t.Fatalf("user CurrentConnections = %d, want 0 after close", us.CurrentConnections)
	}
	snap = s.GlobalSnapshot()
	if snap.CurrentConnections != 1 {
		t.Fatalf("global CurrentConnections = %d, want unchanged at 1", snap.CurrentConnections)
	}
}
