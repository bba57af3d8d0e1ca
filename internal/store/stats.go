package store

import "time"

// UpdateGlobalStats applies a traffic delta to the whole-process counters.
//
// Contract (spec §4.1): if connDelta > 0, increment totals and current, and
// bump peak if current now exceeds it. If connDelta < 0, decrement current
// only (totals are monotonic). bytes is always added to total and current
// byte counters.
func (s *Store) UpdateGlobalStats(bytes uint64, connDelta int) {
	if connDelta > 0 {
		s.global.TotalConnections.Add(uint64(connDelta))
		cur := s.global.CurrentConnections.Add(int64(connDelta))
		for {
			peak := s.global.PeakConnections.Load()
			if cur <= peak {
				break
			}
			if s.global.PeakConnections.CompareAndSwap(peak, cur) {
				break
			}
		}
	} else if connDelta < 0 {
		s.global.CurrentConnections.Add(int64(connDelta))
	}

	if bytes > 0 {
		s.global.TotalBytes.Add(bytes)
		s.global.CurrentBytes.Add(bytes)
	}
}

// GlobalSnapshot returns a point-in-time copy of the global counters.
func (s *Store) GlobalSnapshot() GlobalStatsSnapshot {
	return GlobalStatsSnapshot{
		TotalConnections:   s.global.TotalConnections.Load(),
		TotalBytes:         s.global.TotalBytes.Load(),
		CurrentConnections: s.global.CurrentConnections.Load(),
		CurrentBytes:       s.global.CurrentBytes.Load(),
		PeakConnections:    s.global.PeakConnections.Load(),
		StartTime:          s.global.StartTime,
	}
}

// UpdateUserStats applies a traffic delta to one user's counters and always
// also calls UpdateGlobalStats, so "per-user calls are sufficient once an
// authenticated user exists" (spec §4.1) for deltas that have no other
// global accounting of their own (e.g. relayed bytes, which are only ever
// charged once, through this call). On a connection-open delta it stamps
// first/last connection time; on a close delta it accumulates
// last_connection_time -> now into total connected seconds.
func (s *Store) UpdateUserStats(username string, bytes uint64, connDelta int) {
	s.UpdateGlobalStats(bytes, connDelta)
	s.updateUserFields(username, bytes, connDelta)
}

// UpdateUserConnectionState adjusts only a user's own connection counters
// (TotalConnections/CurrentConnections, first/last connection time, total
// connected seconds) without touching GlobalStats. Global connection counts
// are already tracked independently, once per slot, at accept/teardown
// (relay.EventLoop's acceptLoop/teardownSlot); routing the per-user
// CONNECT-success/teardown delta through UpdateUserStats instead would
// double-count those events into GlobalStats.CurrentConnections.
func (s *Store) UpdateUserConnectionState(username string, connDelta int) {
	s.updateUserFields(username, 0, connDelta)
}

func (s *Store) updateUserFields(username string, bytes uint64, connDelta int) {
	s.usersMu.RLock()
	u, ok := s.users[username]
	s.usersMu.RUnlock()
	if !ok {
		return
	}

	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	now := time.Now()
	if connDelta > 0 {
		u.Stats.TotalConnections += uint64(connDelta)
		u.Stats.CurrentConnections += int64(connDelta)
		if u.Stats.FirstConnectionTime.IsZero() {
			u.Stats.FirstConnectionTime = now
		}
		u.Stats.LastConnectionTime = now
	} else if connDelta < 0 {
		u.Stats.CurrentConnections += int64(connDelta)
		if !u.Stats.LastConnectionTime.IsZero() {
			u.Stats.TotalConnectedSeconds += now.Sub(u.Stats.LastConnectionTime).Seconds()
		}
		u.Stats.LastConnectionTime = now
	}

	if bytes > 0 {
		u.Stats.TotalBytes += bytes
		u.Stats.CurrentBytes += bytes
	}
}

// UserStatsSnapshot returns a copy of one user's stats, or false if unknown.
func (s *Store) UserStatsSnapshot(username string) (UserStats, bool) {
	s.usersMu.RLock()
	u, ok := s.users[username]
	s.usersMu.RUnlock()
	if !ok {
		return UserStats{}, false
	}
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return u.Stats, true
}
