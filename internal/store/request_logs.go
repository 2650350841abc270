// ABOUTME: Request log storage operations.
// ABOUTME: Handles inserting and querying HTTP request logs by area, server and viewer.

package store

import (
	"time"
)

// Request areas
const (
	AreaChannels    = "channels"
	AreaAdmin       = "admin"
	AreaPermissions = "permissions"
	AreaTypes       = "types"
	AreaUnknown     = "unknown"
)

// RequestLog represents an HTTP request log entry
type RequestLog struct {
	ID         int64
	Timestamp  time.Time
	RequestID  string
	Area       string
	ServerID   string
	Method     string
	Path       string
	StatusCode int
	DurationMs int
	Viewer     string
	IPAddress  string
	UserAgent  string
	Error      string
}

// LogRequest inserts a request log entry
func (s *Store) LogRequest(l *RequestLog) error {
	area := l.Area
	if area == "" {
		area = AreaUnknown
	}
	_, err := s.db.Exec(`
		INSERT INTO request_logs (request_id, area, server_id, method, path, status_code, duration_ms, viewer, ip_address, user_agent, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.RequestID, area, l.ServerID, l.Method, l.Path, l.StatusCode, l.DurationMs, l.Viewer, l.IPAddress, l.UserAgent, l.Error)
	return err
}

// RequestLogQuery represents filters for request logs
type RequestLogQuery struct {
	Limit      int
	Offset     int
	Area       string
	ServerID   string
	Method     string
	PathPrefix string
	StatusCode int
	Viewer     string
}

// RequestLogStats represents aggregate statistics
type RequestLogStats struct {
	TotalRequests   int
	TodayRequests   int
	ErrorRequests   int
	DeniedRequests  int
	AvgDurationMs   int
	UniqueEndpoints int
	UniqueViewers   int
}

// GetRequestLogs retrieves request logs with filtering, newest first
func (s *Store) GetRequestLogs(q *RequestLogQuery) ([]*RequestLog, error) {
	query := `SELECT id, timestamp, request_id, area, server_id, method, path,
	          COALESCE(status_code, 0), COALESCE(duration_ms, 0), viewer,
	          COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(error, '')
	          FROM request_logs WHERE 1=1`
	args := []any{}

	if q.Area != "" {
		query += " AND area = ?"
		args = append(args, q.Area)
	}
	if q.ServerID != "" {
		query += " AND server_id = ?"
		args = append(args, q.ServerID)
	}
	if q.Method != "" {
		query += " AND method = ?"
		args = append(args, q.Method)
	}
	if q.PathPrefix != "" {
		query += ` AND path LIKE ? ESCAPE '\'`
		args = append(args, escapeSQLLike(q.PathPrefix)+"%")
	}
	if q.StatusCode > 0 {
		query += " AND status_code = ?"
		args = append(args, q.StatusCode)
	}
	if q.Viewer != "" {
		query += " AND viewer = ?"
		args = append(args, q.Viewer)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, q.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*RequestLog
	for rows.Next() {
		l := &RequestLog{}
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.RequestID, &l.Area, &l.ServerID, &l.Method, &l.Path,
			&l.StatusCode, &l.DurationMs, &l.Viewer, &l.IPAddress, &l.UserAgent, &l.Error); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// GetRequestLogStats returns aggregate statistics
func (s *Store) GetRequestLogStats() (*RequestLogStats, error) {
	stats := &RequestLogStats{}
	today := time.Now().UTC().Format("2006-01-02")

	queries := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&stats.TotalRequests, "SELECT COUNT(*) FROM request_logs", nil},
		{&stats.TodayRequests, "SELECT COUNT(*) FROM request_logs WHERE date(timestamp) = ?", []any{today}},
		{&stats.ErrorRequests, "SELECT COUNT(*) FROM request_logs WHERE status_code >= 400", nil},
		{&stats.DeniedRequests, "SELECT COUNT(*) FROM request_logs WHERE status_code IN (401, 403)", nil},
		{&stats.AvgDurationMs, "SELECT CAST(COALESCE(AVG(duration_ms), 0) AS INTEGER) FROM request_logs", nil},
		{&stats.UniqueEndpoints, "SELECT COUNT(DISTINCT path) FROM request_logs", nil},
		{&stats.UniqueViewers, "SELECT COUNT(DISTINCT viewer) FROM request_logs WHERE viewer != ''", nil},
	}
	for _, q := range queries {
		if err := s.db.QueryRow(q.query, q.args...).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// AreaCount is the number of requests in one area
type AreaCount struct {
	Area   string
	Count  int
	Errors int
}

// GetAreaCounts returns request and error counts per area since a given time
func (s *Store) GetAreaCounts(since time.Time) ([]AreaCount, error) {
	rows, err := s.db.Query(`
		SELECT area, COUNT(*), SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END)
		FROM request_logs
		WHERE timestamp >= ?
		GROUP BY area
		ORDER BY COUNT(*) DESC, area
	`, since.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []AreaCount
	for rows.Next() {
		var c AreaCount
		if err := rows.Scan(&c.Area, &c.Count, &c.Errors); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
