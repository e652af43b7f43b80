package storage

import (
	"fmt"
	"time"
)

// LoadCircadian reads the per-hour baselines. Hours without a row read as 0,
// so a fresh database yields a flat all-zero profile.
func (s *Store) LoadCircadian() (CircadianProfile, error) {
	var p CircadianProfile
	rows, err := s.db.Query("SELECT hour, baseline FROM circadian_profile")
	if err != nil {
		return p, fmt.Errorf("querying circadian profile: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hour int
		var baseline float64
		if err := rows.Scan(&hour, &baseline); err != nil {
			return CircadianProfile{}, fmt.Errorf("scanning circadian row: %w", err)
		}
		if hour < 0 || hour >= HoursPerDay {
			continue
		}
		p[hour] = baseline
	}
	return p, rows.Err()
}

// SaveCircadian writes all 24 hours in one transaction.
func (s *Store) SaveCircadian(p CircadianProfile) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning circadian transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO circadian_profile (hour, baseline, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(hour) DO UPDATE SET baseline = excluded.baseline, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("preparing circadian upsert: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for hour, baseline := range p {
		if _, err := stmt.Exec(hour, baseline, now); err != nil {
			return fmt.Errorf("saving hour %d: %w", hour, err)
		}
	}
	return tx.Commit()
}

// ClearCircadian drops every learned baseline.
func (s *Store) ClearCircadian() error {
	_, err := s.db.Exec("DELETE FROM circadian_profile")
	return err
}
