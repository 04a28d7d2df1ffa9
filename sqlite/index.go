package sqlite

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/siteqa"
)

// Compile-time interface verification.
var _ siteqa.IndexStore = (*IndexStore)(nil)

// IndexStore persists the vector index in its own SQLite file.
//
// Replace builds a fresh database next to the target and renames it into
// place, so a failed build leaves the previous index untouched. Index
// databases use a rollback journal, so a reader of the old file keeps a
// consistent view across the rename.
type IndexStore struct {
	path string

	// Now returns the build time. Defaults to time.Now.
	Now func() time.Time
}

// NewIndexStore creates an IndexStore for the database at path.
func NewIndexStore(path string) *IndexStore {
	return &IndexStore{path: path}
}

// Replace writes meta and entries to a new database and swaps it in.
func (s *IndexStore) Replace(ctx context.Context, meta siteqa.IndexMeta, entries []siteqa.IndexEntry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return siteqa.WrapError(siteqa.EINDEX, err, "creating index directory: %v", err)
	}

	tmp := s.path + ".tmp"
	removeDB(tmp)

	if err := s.write(ctx, tmp, meta, entries); err != nil {
		removeDB(tmp)
		return err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		removeDB(tmp)
		return siteqa.WrapError(siteqa.EINDEX, err, "swapping index into place: %v", err)
	}
	return nil
}

func (s *IndexStore) write(ctx context.Context, path string, meta siteqa.IndexMeta, entries []siteqa.IndexEntry) error {
	db := NewDB(path, WithRollbackJournal())
	if err := db.Open(); err != nil {
		return siteqa.WrapError(siteqa.EINDEX, err, "opening index database: %v", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx)
	if err != nil {
		return siteqa.WrapError(siteqa.EINDEX, err, "writing index: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO index_meta (id, model, dimension, count, built_at)
		VALUES (1, ?, ?, ?, ?)
	`, meta.Model, meta.Dimension, len(entries), formatTime(s.now())); err != nil {
		return siteqa.WrapError(siteqa.EINDEX, err, "writing index metadata: %v", err)
	}

	for _, e := range entries {
		if len(e.Vector) != meta.Dimension {
			return siteqa.Errorf(siteqa.EINDEX, "entry %d has dimension %d, want %d", e.ID, len(e.Vector), meta.Dimension)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO index_entries (id, url, domain, position, text, vector)
			VALUES (?, ?, ?, ?, ?, ?)
		`, e.ID, e.Unit.URL, e.Unit.Domain, e.Unit.Position, e.Unit.Text, encodeFloat32s(e.Vector)); err != nil {
			return siteqa.WrapError(siteqa.EINDEX, err, "writing index entry %d: %v", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return siteqa.WrapError(siteqa.EINDEX, err, "committing index: %v", err)
	}
	if err := db.Close(); err != nil {
		return siteqa.WrapError(siteqa.EINDEX, err, "closing index database: %v", err)
	}
	return nil
}

// Load reads the persisted index. Returns ENOTFOUND if none was built.
func (s *IndexStore) Load(ctx context.Context) (siteqa.IndexMeta, []siteqa.IndexEntry, error) {
	var meta siteqa.IndexMeta
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return meta, nil, siteqa.Errorf(siteqa.ENOTFOUND, "no index at %s; run the index command first", s.path)
	}

	db := NewDB(s.path, WithRollbackJournal())
	if err := db.Open(); err != nil {
		return meta, nil, siteqa.WrapError(siteqa.EINDEX, err, "opening index: %v", err)
	}
	defer db.Close()

	err := db.QueryRowContext(ctx, `
		SELECT model, dimension, count FROM index_meta WHERE id = 1
	`).Scan(&meta.Model, &meta.Dimension, &meta.Count)
	if err != nil {
		return meta, nil, siteqa.WrapError(siteqa.EINDEX, err, "reading index metadata: %v", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, url, domain, position, text, vector
		FROM index_entries
		ORDER BY id ASC
	`)
	if err != nil {
		return meta, nil, siteqa.WrapError(siteqa.EINDEX, err, "reading index entries: %v", err)
	}
	defer rows.Close()

	entries := make([]siteqa.IndexEntry, 0, meta.Count)
	for rows.Next() {
		var e siteqa.IndexEntry
		var blob []byte
		if err := rows.Scan(&e.ID, &e.Unit.URL, &e.Unit.Domain, &e.Unit.Position, &e.Unit.Text, &blob); err != nil {
			return meta, nil, siteqa.WrapError(siteqa.EINDEX, err, "reading index entry: %v", err)
		}
		if e.Vector, err = decodeFloat32s(blob); err != nil {
			return meta, nil, siteqa.WrapError(siteqa.EINDEX, err, "decoding vector of entry %d: %v", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return meta, nil, siteqa.WrapError(siteqa.EINDEX, err, "reading index entries: %v", err)
	}
	return meta, entries, nil
}

func (s *IndexStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// removeDB deletes a database file and its journal.
func removeDB(path string) {
	os.Remove(path)
	os.Remove(path + "-journal")
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32s deserializes little-endian bytes into a new float32 slice.
func decodeFloat32s(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
