package audit

// RecordMgmtEvent appends one management-plane mutation (ADD_USER, DEL_USER,
// SET_* commands, ENABLE_/DISABLE_DISSECTORS, RELOAD_CONFIG) to the audit
// trail. Failures are the caller's to log; an audit write error never fails
// the management response itself.
func (db *DB) RecordMgmtEvent(kind, username, detail string) error {
	_, err := db.conn.Exec(
		`INSERT INTO audit_events (kind, username, detail) VALUES (?, ?, ?)`,
		kind, username, detail,
	)
	return err
}

// RecordConnectionEvent appends one proxy connection lifecycle event
// ("opened", "auth_ok", "auth_fail", "connected", "connect_failed",
// "closed") for the
// dashboard's recent-activity view.
func (db *DB) RecordConnectionEvent(connID uint64, event, username, peerAddr, destHost string, destPort int, bytes uint64) error {
	_, err := db.conn.Exec(
		`INSERT INTO connection_events (conn_id, event, username, peer_addr, dest_host, dest_port, bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		connID, event, username, peerAddr, destHost, destPort, bytes,
	)
	return err
}

// RecentConnectionEvent is one row as returned by RecentConnectionEvents.
type RecentConnectionEvent struct {
	ConnID     uint64
	OccurredAt string
	Event      string
	Username   string
	PeerAddr   string
	DestHost   string
	DestPort   int
	Bytes      uint64
}

// RecentConnectionEvents returns the most recent connection events, newest
// first, for the dashboard's activity feed.
func (db *DB) RecentConnectionEvents(limit int) ([]RecentConnectionEvent, error) {
	rows, err := db.conn.Query(
		`SELECT conn_id, occurred_at, event, username, peer_addr, dest_host, dest_port, bytes
		 FROM connection_events ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecentConnectionEvent
	for rows.Next() {
		var e RecentConnectionEvent
		if err := rows.Scan(&e.ConnID, &e.OccurredAt, &e.Event, &e.Username, &e.PeerAddr, &e.DestHost, &e.DestPort, &e.Bytes); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
