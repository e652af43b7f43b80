package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// AppendConcern stores a diagnostic entry and keeps only the newest maxEntries.
func (s *Store) AppendConcern(e ConcernEntry, maxEntries int) error {
	flags := e.Flags
	if flags == nil {
		flags = []string{}
	}
	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("marshalling flags: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning concern transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO concerning_log (id, created_at, sample, raw_score, adjusted_score, flags, explanation)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, formatTime(e.Timestamp), e.Sample, e.RawScore, e.AdjustedScore, string(flagsJSON), e.Explanation,
	); err != nil {
		return fmt.Errorf("inserting concern entry: %w", err)
	}

	if maxEntries > 0 {
		if _, err := tx.Exec(`DELETE FROM concerning_log WHERE rowid NOT IN (
			SELECT rowid FROM concerning_log ORDER BY created_at DESC, rowid DESC LIMIT ?)`, maxEntries); err != nil {
			return fmt.Errorf("trimming concerning log: %w", err)
		}
	}
	return tx.Commit()
}

// Concerns returns up to limit entries, most recent first.
func (s *Store) Concerns(limit int) ([]ConcernEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, created_at, sample, raw_score, adjusted_score, flags, explanation
		FROM concerning_log ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying concerning log: %w", err)
	}
	defer rows.Close()

	var out []ConcernEntry
	for rows.Next() {
		var e ConcernEntry
		var createdAt, flags string
		if err := rows.Scan(&e.ID, &createdAt, &e.Sample, &e.RawScore, &e.AdjustedScore, &flags, &e.Explanation); err != nil {
			return nil, fmt.Errorf("scanning concern entry: %w", err)
		}
		if t, err := parseTime(createdAt); err == nil {
			e.Timestamp = t
		}
		if err := json.Unmarshal([]byte(flags), &e.Flags); err != nil {
			slog.Warn("malformed concern flags, treating as empty", "id", e.ID, "error", err)
			e.Flags = nil
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ClearConcerns empties the concerning log.
func (s *Store) ClearConcerns() error {
	_, err := s.db.Exec("DELETE FROM concerning_log")
	return err
}
