package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// PutVectors caches embeddings for model, replacing existing terms.
func (s *Store) PutVectors(model string, vectors []VocabVector) error {
	if len(vectors) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning vector transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO vocab_vectors (model, term, embedding, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing vector insert: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for _, v := range vectors {
		if _, err := stmt.Exec(model, v.Term, encodeFloat32s(v.Embedding), now); err != nil {
			return fmt.Errorf("inserting vector for %q: %w", v.Term, err)
		}
	}
	return tx.Commit()
}

// GetVectors returns cached embeddings for model keyed by term.
func (s *Store) GetVectors(model string) (map[string][]float32, error) {
	rows, err := s.db.Query("SELECT term, embedding FROM vocab_vectors WHERE model = ?", model)
	if err != nil {
		return nil, fmt.Errorf("querying vocab vectors: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var term string
		var blob []byte
		if err := rows.Scan(&term, &blob); err != nil {
			return nil, fmt.Errorf("scanning vocab vector: %w", err)
		}
		vec, err := decodeFloat32s(blob)
		if err != nil {
			// Corrupt rows are re-embedded on the next warm-up.
			continue
		}
		out[term] = vec
	}
	return out, rows.Err()
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeFloat32s(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
