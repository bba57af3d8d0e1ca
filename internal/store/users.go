package store

import (
	"fmt"

	"github.com/kestrelnet/socks5gate/internal/config"
	"github.com/kestrelnet/socks5gate/internal/userdb"
)

// AddUser adds a new active user, persisting the updated table. Returns an
// error if the username already exists (active=true) or the table is at
// capacity — spec §3's invariants: "unique (username, active=true)" and
// "capacity <= MAX_USERS".
func (s *Store) AddUser(username, password string) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	if _, exists := s.users[username]; exists {
		return fmt.Errorf("user %q already exists", username)
	}
	if len(s.users) >= config.MaxUsers {
		return fmt.Errorf("user table full (max %d)", config.MaxUsers)
	}

	s.users[username] = &User{Username: username, Password: password, Active: true}
	s.userOrder = append(s.userOrder, username)
	s.persistLocked()
	return nil
}

// DeleteUser removes a user by username, persisting the updated table.
// Returns an error if the user does not exist.
func (s *Store) DeleteUser(username string) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	if _, exists := s.users[username]; !exists {
		return fmt.Errorf("user %q not found", username)
	}
	delete(s.users, username)
	for i, u := range s.userOrder {
		if u == username {
			s.userOrder = append(s.userOrder[:i], s.userOrder[i+1:]...)
			break
		}
	}
	s.persistLocked()
	return nil
}

// ListActiveUsers returns the active users in enumeration (insertion) order.
// Per spec §8, this never includes a user with active=false — the table
// only ever holds active users, so this is simply every row.
func (s *Store) ListActiveUsers() []User {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	out := make([]User, 0, len(s.userOrder))
	for _, name := range s.userOrder {
		if u, ok := s.users[name]; ok {
			out = append(out, *u)
		}
	}
	return out
}

// ValidateUser checks username/password against the merged persisted +
// in-memory table first, then the ephemeral CLI-provided users — the three
// sources named in spec §4.5's AUTH state (the persisted file and the
// in-memory table are the same records once loaded, since Load merges them).
func (s *Store) ValidateUser(username, password string) bool {
	s.usersMu.RLock()
	u, ok := s.users[username]
	s.usersMu.RUnlock()
	if ok && u.Active && u.Password == password {
		return true
	}

	if p, ok := s.cliUsers[username]; ok && p == password {
		return true
	}
	return false
}

// persistLocked rewrites the user database file. Caller must hold usersMu.
func (s *Store) persistLocked() {
	records := make([]userdb.Record, 0, len(s.userOrder))
	for _, name := range s.userOrder {
		u := s.users[name]
		records = append(records, userdb.Record{Username: u.Username, Password: u.Password})
	}
	userdb.Save(s.userDBPath, records, s.logger)
}
