package userdb

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	records, err := Load(filepath.Join(t.TempDir(), "missing.db"), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty database, got %v", records)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.db")
	want := []Record{{Username: "alice", Password: "secret"}, {Username: "bob", Password: "hunter2"}}
	Save(path, want, nil)

	got, err := Load(path, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLoadTruncatesToMaxUsersAndDedupesFirstWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.db")
	Save(path, []Record{
		{Username: "alice", Password: "first"},
		{Username: "alice", Password: "second"},
		{Username: "bob", Password: "b"},
		{Username: "carol", Password: "c"},
	}, nil)

	got, err := Load(path, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected truncation to 2 records, got %d", len(got))
	}
	if got[0].Username != "alice" || got[0].Password != "first" {
		t.Fatalf("expected first entry to win on duplicate username, got %+v", got[0])
	}
}
