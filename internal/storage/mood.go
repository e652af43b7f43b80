package storage

import (
	"fmt"
)

// AppendMood inserts entries in order and trims the table to the newest
// maxEntries rows. maxEntries <= 0 disables trimming.
func (s *Store) AppendMood(entries []MoodEntry, maxEntries int) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning mood transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO mood_history (recorded_at, score) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("preparing mood insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(formatTime(e.Timestamp), e.Score); err != nil {
			return fmt.Errorf("inserting mood entry: %w", err)
		}
	}

	if maxEntries > 0 {
		if _, err := tx.Exec(`DELETE FROM mood_history WHERE id NOT IN (
			SELECT id FROM mood_history ORDER BY id DESC LIMIT ?)`, maxEntries); err != nil {
			return fmt.Errorf("trimming mood history: %w", err)
		}
	}
	return tx.Commit()
}

// MoodHistory returns up to limit of the newest entries, oldest first.
// limit <= 0 returns everything.
func (s *Store) MoodHistory(limit int) ([]MoodEntry, error) {
	query := `SELECT recorded_at, score FROM (
		SELECT id, recorded_at, score FROM mood_history ORDER BY id DESC LIMIT ?
	) ORDER BY id ASC`
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying mood history: %w", err)
	}
	defer rows.Close()

	var out []MoodEntry
	for rows.Next() {
		var ts string
		var e MoodEntry
		if err := rows.Scan(&ts, &e.Score); err != nil {
			return nil, fmt.Errorf("scanning mood entry: %w", err)
		}
		t, err := parseTime(ts)
		if err != nil {
			// A single bad timestamp should not hide the rest of the history.
			continue
		}
		e.Timestamp = t
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountMood returns the number of persisted mood entries.
func (s *Store) CountMood() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM mood_history").Scan(&n)
	return n, err
}

// TrimMoodHistory keeps only the newest keep entries.
func (s *Store) TrimMoodHistory(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(`DELETE FROM mood_history WHERE id NOT IN (
		SELECT id FROM mood_history ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("trimming mood history: %w", err)
	}
	return res.RowsAffected()
}

// ClearMoodHistory deletes all mood entries.
func (s *Store) ClearMoodHistory() error {
	_, err := s.db.Exec("DELETE FROM mood_history")
	return err
}
