// ABOUTME: Storage for permission snapshot fetch outcomes.
// ABOUTME: Records which generation settled, how, and whether it was discarded as stale.

package store

import "time"

// FetchLog is one settled permission snapshot fetch
type FetchLog struct {
	ID         int64
	Timestamp  time.Time
	ServerID   string
	Viewer     string
	Generation uint64
	Outcome    string // "ok" or a fetch failure kind
	Stale      bool
	DurationMs int
}

// RecordFetch inserts a fetch outcome
func (s *Store) RecordFetch(f *FetchLog) error {
	_, err := s.db.Exec(`
		INSERT INTO permission_fetches (server_id, viewer, generation, outcome, stale, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, f.ServerID, f.Viewer, int64(f.Generation), f.Outcome, f.Stale, f.DurationMs)
	return err
}

// RecentFetches returns the latest fetch outcomes, optionally for one server
func (s *Store) RecentFetches(serverID string, limit int) ([]*FetchLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, timestamp, server_id, viewer, generation, outcome, stale, COALESCE(duration_ms, 0)
	          FROM permission_fetches`
	args := []any{}
	if serverID != "" {
		query += " WHERE server_id = ?"
		args = append(args, serverID)
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*FetchLog
	for rows.Next() {
		f := &FetchLog{}
		var gen int64
		if err := rows.Scan(&f.ID, &f.Timestamp, &f.ServerID, &f.Viewer, &gen, &f.Outcome, &f.Stale, &f.DurationMs); err != nil {
			return nil, err
		}
		f.Generation = uint64(gen)
		out = append(out, f)
	}
	return out, rows.Err()
}
