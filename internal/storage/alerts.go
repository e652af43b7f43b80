package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// AlertPointer returns last_alert_line, or 0 when it was never written.
func (s *Store) AlertPointer() (int, error) {
	var line int
	err := s.db.QueryRow("SELECT last_alert_line FROM alert_status WHERE id = 1").Scan(&line)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading alert status: %w", err)
	}
	return line, nil
}

// SetAlertPointer overwrites last_alert_line. Monotonicity is the caller's concern.
func (s *Store) SetAlertPointer(line int) error {
	_, err := s.db.Exec(`
		INSERT INTO alert_status (id, last_alert_line, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_alert_line = excluded.last_alert_line, updated_at = excluded.updated_at`,
		line, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("writing alert status: %w", err)
	}
	return nil
}

// AppendAlert adds a record to the alert log.
func (s *Store) AppendAlert(rec AlertRecord) error {
	lines := rec.ReasonLines
	if lines == nil {
		lines = []string{}
	}
	reasons, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshalling reason lines: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO alert_log (id, created_at, negative_count, status, reason_lines)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID, formatTime(rec.Date), rec.NegativeCount, rec.Status, string(reasons),
	)
	if err != nil {
		return fmt.Errorf("inserting alert record: %w", err)
	}
	return nil
}

// Alerts returns up to limit alert records, most recent first.
func (s *Store) Alerts(limit int) ([]AlertRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, created_at, negative_count, status, reason_lines
		FROM alert_log ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying alert log: %w", err)
	}
	defer rows.Close()

	var out []AlertRecord
	for rows.Next() {
		var r AlertRecord
		var createdAt, reasons string
		if err := rows.Scan(&r.ID, &createdAt, &r.NegativeCount, &r.Status, &reasons); err != nil {
			return nil, fmt.Errorf("scanning alert record: %w", err)
		}
		if t, err := parseTime(createdAt); err == nil {
			r.Date = t
		}
		if err := json.Unmarshal([]byte(reasons), &r.ReasonLines); err != nil {
			slog.Warn("malformed alert reason lines, treating as empty", "id", r.ID, "error", err)
			r.ReasonLines = nil
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClearAlerts empties the alert log.
func (s *Store) ClearAlerts() error {
	_, err := s.db.Exec("DELETE FROM alert_log")
	return err
}
